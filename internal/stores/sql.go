package stores

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	// Database drivers
	_ "github.com/go-sql-driver/mysql" // MySQL
	_ "github.com/lib/pq"              // PostgreSQL

	"github.com/systmms/secretctl/internal/config"
	cfgerrors "github.com/systmms/secretctl/internal/errors"
	"github.com/systmms/secretctl/pkg/secretstore"
)

// sqlDriverMap maps configured database engines onto registered driver names.
var sqlDriverMap = map[string]string{
	"postgresql": "postgres",
	"postgres":   "postgres",
	"mysql":      "mysql",
	"mariadb":    "mysql",
}

const createNamespacesTable = `
CREATE TABLE IF NOT EXISTS namespaces (
	name VARCHAR(255) PRIMARY KEY
)`

const createSecretsTable = `
CREATE TABLE IF NOT EXISTS secrets (
	namespace  VARCHAR(255) NOT NULL,
	name       VARCHAR(255) NOT NULL,
	group_name VARCHAR(255) NOT NULL,
	data       TEXT NOT NULL,
	PRIMARY KEY (namespace, name)
)`

// sqlSettings collects the configuration keys for the sql store. The
// database kind lives under the engine key because the entry's type key
// already names the store backend.
type sqlSettings struct {
	Engine   string
	Host     string
	Port     string
	Database string
	Username string
	Password string
	SSLMode  string
	Timeout  time.Duration
}

func parseSQLSettings(cfg config.StoreConfig) (sqlSettings, error) {
	s := sqlSettings{}

	if cfg.TimeoutMs > 0 {
		s.Timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}

	configMap := cfg.Config
	if engine, ok := configMap["engine"].(string); ok {
		s.Engine = strings.ToLower(engine)
	}
	if host, ok := configMap["host"].(string); ok {
		s.Host = host
	}
	switch port := configMap["port"].(type) {
	case string:
		s.Port = port
	case int:
		s.Port = strconv.Itoa(port)
	case float64:
		s.Port = strconv.Itoa(int(port))
	}
	if database, ok := configMap["database"].(string); ok {
		s.Database = database
	}
	if username, ok := configMap["username"].(string); ok {
		s.Username = username
	}
	if password, ok := configMap["password"].(string); ok {
		s.Password = password
	}
	if sslMode, ok := configMap["sslmode"].(string); ok {
		s.SSLMode = sslMode
	}

	for field, value := range map[string]string{
		"engine":   s.Engine,
		"host":     s.Host,
		"database": s.Database,
		"username": s.Username,
	} {
		if value == "" {
			return s, cfgerrors.ConfigError{
				Field:      field,
				Value:      "",
				Message:    fmt.Sprintf("sql store requires %s", field),
				Suggestion: "Set engine, host, database and username in the store config",
			}
		}
	}

	if _, ok := sqlDriverMap[s.Engine]; !ok {
		return s, cfgerrors.ConfigError{
			Field:      "engine",
			Value:      s.Engine,
			Message:    fmt.Sprintf("unsupported database engine: %s", s.Engine),
			Suggestion: "Use one of postgres, postgresql, mysql or mariadb",
		}
	}

	if s.Port == "" {
		switch sqlDriverMap[s.Engine] {
		case "postgres":
			s.Port = "5432"
		case "mysql":
			s.Port = "3306"
		}
	}

	return s, nil
}

// buildConnectionString renders the driver specific DSN.
func buildConnectionString(settings sqlSettings) string {
	switch sqlDriverMap[settings.Engine] {
	case "postgres":
		parts := []string{
			fmt.Sprintf("host=%s", settings.Host),
			fmt.Sprintf("port=%s", settings.Port),
			fmt.Sprintf("dbname=%s", settings.Database),
			fmt.Sprintf("user=%s", settings.Username),
		}
		if settings.Password != "" {
			parts = append(parts, fmt.Sprintf("password=%s", settings.Password))
		}
		if settings.SSLMode != "" {
			parts = append(parts, fmt.Sprintf("sslmode=%s", settings.SSLMode))
		} else {
			parts = append(parts, "sslmode=require")
		}
		return strings.Join(parts, " ")

	default:
		// MySQL DSN format: username:password@tcp(host:port)/database
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
			settings.Username,
			settings.Password,
			settings.Host,
			settings.Port,
			settings.Database,
		)
	}
}

// SQLStore keeps namespaces and secrets in two relational tables, for
// self-hosted clusters that already run a database.
type SQLStore struct {
	name     string
	driver   string
	db       *sql.DB
	settings sqlSettings

	schemaReady bool
}

// SQLOption configures a SQLStore.
type SQLOption func(*SQLStore)

// WithSQLDB sets an existing database handle. This is primarily for testing
// with sqlmock.
func WithSQLDB(db *sql.DB, driver string) SQLOption {
	return func(s *SQLStore) {
		s.db = db
		s.driver = driver
	}
}

// NewSQLStore creates a database backed store. The connection is established
// lazily on first use.
func NewSQLStore(name string, cfg config.StoreConfig, opts ...SQLOption) (*SQLStore, error) {
	settings, err := parseSQLSettings(cfg)
	if err != nil {
		return nil, err
	}

	s := &SQLStore{
		name:     name,
		driver:   sqlDriverMap[settings.Engine],
		settings: settings,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.db == nil {
		db, err := sql.Open(s.driver, buildConnectionString(settings))
		if err != nil {
			return nil, fmt.Errorf("failed to open database connection: %w", err)
		}
		s.db = db
	}

	return s, nil
}

var _ secretstore.Store = (*SQLStore)(nil)

// Name returns the store's configured identifier.
func (s *SQLStore) Name() string {
	return s.name
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.settings.Timeout > 0 {
		return context.WithTimeout(ctx, s.settings.Timeout)
	}
	return ctx, func() {}
}

// rebind rewrites ? placeholders into $1..$n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ensureSchema creates the tables on first use.
func (s *SQLStore) ensureSchema(ctx context.Context) error {
	if s.schemaReady {
		return nil
	}

	for _, ddl := range []string{createNamespacesTable, createSecretsTable} {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	s.schemaReady = true
	return nil
}

// NamespaceExists checks the namespaces table.
func (s *SQLStore) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.ensureSchema(ctx); err != nil {
		return false, err
	}

	var count int
	query := s.rebind("SELECT COUNT(*) FROM namespaces WHERE name = ?")
	if err := s.db.QueryRowContext(ctx, query, namespace).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to query namespace: %w", err)
	}
	return count > 0, nil
}

// EnsureNamespace inserts the namespace row if absent.
func (s *SQLStore) EnsureNamespace(ctx context.Context, namespace string) error {
	exists, err := s.NamespaceExists(ctx, namespace)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	query := s.rebind("INSERT INTO namespaces (name) VALUES (?)")
	if _, err := s.db.ExecContext(ctx, query, namespace); err != nil {
		if isDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to create namespace: %w", err)
	}
	return nil
}

// ListNamespaces returns all namespace rows.
func (s *SQLStore) ListNamespaces(ctx context.Context) ([]string, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT name FROM namespaces ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var namespaces []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		namespaces = append(namespaces, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return namespaces, nil
}

// SecretExists checks the secrets table.
func (s *SQLStore) SecretExists(ctx context.Context, namespace, name string) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.ensureSchema(ctx); err != nil {
		return false, err
	}

	var count int
	query := s.rebind("SELECT COUNT(*) FROM secrets WHERE namespace = ? AND name = ?")
	if err := s.db.QueryRowContext(ctx, query, namespace, name).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to query secret: %w", err)
	}
	return count > 0, nil
}

// CreateSecret inserts a secret row. The primary key rejects duplicates.
func (s *SQLStore) CreateSecret(ctx context.Context, namespace, name, group string, data map[string]string) error {
	payload, err := encodeSecretData(data)
	if err != nil {
		return err
	}

	exists, err := s.NamespaceExists(ctx, namespace)
	if err != nil {
		return err
	}
	if !exists {
		return secretstore.NotFoundError{Store: s.name, Namespace: namespace}
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	query := s.rebind("INSERT INTO secrets (namespace, name, group_name, data) VALUES (?, ?, ?, ?)")
	if _, err := s.db.ExecContext(ctx, query, namespace, name, group, payload); err != nil {
		if isDuplicateKeyError(err) {
			return secretstore.ValidationError{Store: s.name, Message: "secret already exists: " + name}
		}
		return fmt.Errorf("failed to create secret: %w", err)
	}
	return nil
}

// UpdateSecret replaces the payload of an existing row.
func (s *SQLStore) UpdateSecret(ctx context.Context, namespace, name string, data map[string]string) error {
	payload, err := encodeSecretData(data)
	if err != nil {
		return err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.ensureSchema(ctx); err != nil {
		return err
	}

	query := s.rebind("UPDATE secrets SET data = ? WHERE namespace = ? AND name = ?")
	result, err := s.db.ExecContext(ctx, query, payload, namespace, name)
	if err != nil {
		return fmt.Errorf("failed to update secret: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return secretstore.NotFoundError{Store: s.name, Namespace: namespace, Name: name}
	}
	return nil
}

// DeleteSecret removes the secret row.
func (s *SQLStore) DeleteSecret(ctx context.Context, namespace, name string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.ensureSchema(ctx); err != nil {
		return err
	}

	query := s.rebind("DELETE FROM secrets WHERE namespace = ? AND name = ?")
	result, err := s.db.ExecContext(ctx, query, namespace, name)
	if err != nil {
		return fmt.Errorf("failed to delete secret: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return secretstore.NotFoundError{Store: s.name, Namespace: namespace, Name: name}
	}
	return nil
}

// ListSecrets returns the namespace's secret rows, optionally filtered by
// group.
func (s *SQLStore) ListSecrets(ctx context.Context, namespace, group string) (map[string]secretstore.Record, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}

	query := "SELECT name, group_name, data FROM secrets WHERE namespace = ?"
	args := []interface{}{namespace}
	if group != "" {
		query += " AND group_name = ?"
		args = append(args, group)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list secrets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make(map[string]secretstore.Record)
	for rows.Next() {
		var name, groupName, payload string
		if err := rows.Scan(&name, &groupName, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		records[name] = secretstore.Record{
			Name:  name,
			Group: groupName,
			Data:  decodeSecretData(payload),
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	if len(records) == 0 {
		exists, err := s.NamespaceExists(ctx, namespace)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, secretstore.NotFoundError{Store: s.name, Namespace: namespace}
		}
	}

	return records, nil
}

// Validate pings the database and prepares the schema.
func (s *SQLStore) Validate(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return secretstore.AuthError{
			Store:   s.name,
			Message: fmt.Sprintf("database connection failed: %v", err),
		}
	}
	return s.ensureSchema(ctx)
}

// isDuplicateKeyError matches the driver specific unique violation text.
// pq reports "duplicate key value violates unique constraint", mysql
// "Error 1062: Duplicate entry".
func isDuplicateKeyError(err error) bool {
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "duplicate") || strings.Contains(lower, "unique constraint")
}
