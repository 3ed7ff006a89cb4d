package stores

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sso"
	"github.com/aws/aws-sdk-go-v2/service/ssooidc"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/systmms/secretctl/internal/config"
	"github.com/systmms/secretctl/internal/errors"
)

// DefaultAWSRegion is used when neither the store entry nor the environment
// names a region.
const DefaultAWSRegion = "us-east-1"

// awsSettings collects the credential keys shared by the aws.secretsmanager
// and aws.ssm store types.
type awsSettings struct {
	Region          string
	Profile         string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	AssumeRole assumeRoleSettings
	SSO        ssoSettings

	Timeout time.Duration
}

// assumeRoleSettings configures STS role assumption on top of the base
// credentials.
type assumeRoleSettings struct {
	RoleARN     string
	SessionName string
	ExternalID  string
	Duration    int32
}

// ssoSettings configures IAM Identity Center sign-in reuse. The access token
// comes from the cache 'aws sso login' writes.
type ssoSettings struct {
	StartURL  string
	AccountID string
	RoleName  string
	Region    string
	CachePath string
}

// parseAWSSettings extracts the shared AWS keys from a store entry.
func parseAWSSettings(cfg config.StoreConfig) (awsSettings, error) {
	s := awsSettings{
		Region: DefaultAWSRegion,
	}

	if cfg.TimeoutMs > 0 {
		s.Timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}

	configMap := cfg.Config
	if configMap == nil {
		return s, nil
	}

	if region, ok := configMap["region"].(string); ok && region != "" {
		s.Region = region
	}
	if profile, ok := configMap["profile"].(string); ok {
		s.Profile = profile
	}
	if endpoint, ok := configMap["endpoint"].(string); ok {
		s.Endpoint = endpoint
	}
	if accessKey, ok := configMap["access_key_id"].(string); ok {
		s.AccessKeyID = accessKey
	}
	if secretKey, ok := configMap["secret_access_key"].(string); ok {
		s.SecretAccessKey = secretKey
	}
	if sessionToken, ok := configMap["session_token"].(string); ok {
		s.SessionToken = sessionToken
	}

	if role, ok := configMap["assume_role"].(map[string]interface{}); ok {
		if roleARN, ok := role["role_arn"].(string); ok {
			s.AssumeRole.RoleARN = roleARN
		}
		if s.AssumeRole.RoleARN == "" {
			return s, errors.ConfigError{
				Field:      "assume_role.role_arn",
				Value:      "",
				Message:    "assume_role requires a role_arn",
				Suggestion: "Set role_arn to the IAM role to assume, like arn:aws:iam::123456789012:role/secretctl",
			}
		}
		if sessionName, ok := role["session_name"].(string); ok {
			s.AssumeRole.SessionName = sessionName
		}
		if externalID, ok := role["external_id"].(string); ok {
			s.AssumeRole.ExternalID = externalID
		}
		if duration, ok := role["duration_seconds"].(int); ok {
			s.AssumeRole.Duration = int32(duration)
		}
	}

	if ssoMap, ok := configMap["sso"].(map[string]interface{}); ok {
		if startURL, ok := ssoMap["start_url"].(string); ok {
			s.SSO.StartURL = startURL
		}
		if accountID, ok := ssoMap["account_id"].(string); ok {
			s.SSO.AccountID = accountID
		}
		if roleName, ok := ssoMap["role_name"].(string); ok {
			s.SSO.RoleName = roleName
		}
		if region, ok := ssoMap["region"].(string); ok {
			s.SSO.Region = region
		}
		if cachePath, ok := ssoMap["cache_path"].(string); ok {
			s.SSO.CachePath = cachePath
		}

		if s.SSO.StartURL == "" || s.SSO.AccountID == "" || s.SSO.RoleName == "" {
			return s, errors.ConfigError{
				Field:      "sso",
				Value:      "",
				Message:    "sso requires start_url, account_id, and role_name",
				Suggestion: "Copy the values from the matching profile in ~/.aws/config",
			}
		}
	}

	return s, nil
}

// loadAWSConfig builds an aws.Config from the store settings. Static keys,
// SSO sessions, and assumed roles layer in that order, so a role can be
// assumed with SSO-derived credentials.
func loadAWSConfig(ctx context.Context, s awsSettings) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(s.Region),
	}

	if s.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(s.Profile))
	}

	if s.Timeout > 0 {
		opts = append(opts, awsconfig.WithHTTPClient(&http.Client{Timeout: s.Timeout}))
	}

	if s.AccessKeyID != "" && s.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKeyID, s.SecretAccessKey, s.SessionToken)))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	if s.SSO.StartURL != "" {
		cfg.Credentials = aws.NewCredentialsCache(newSSOCredentialsProvider(cfg, s.SSO))
	}

	if s.AssumeRole.RoleARN != "" {
		cfg.Credentials = aws.NewCredentialsCache(&assumeRoleProvider{
			client:   sts.NewFromConfig(cfg),
			settings: s.AssumeRole,
		})
	}

	return cfg, nil
}

// STSClientAPI is the subset of the STS client used for role assumption.
type STSClientAPI interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

// assumeRoleProvider implements aws.CredentialsProvider by calling
// sts:AssumeRole. Callers wrap it in aws.NewCredentialsCache, which handles
// expiry-driven refresh.
type assumeRoleProvider struct {
	client   STSClientAPI
	settings assumeRoleSettings
}

// Retrieve implements aws.CredentialsProvider.
func (p *assumeRoleProvider) Retrieve(ctx context.Context) (aws.Credentials, error) {
	sessionName := p.settings.SessionName
	if sessionName == "" {
		sessionName = fmt.Sprintf("secretctl-%d", time.Now().Unix())
	}

	duration := p.settings.Duration
	if duration == 0 {
		duration = 3600
	}

	input := &sts.AssumeRoleInput{
		RoleArn:         aws.String(p.settings.RoleARN),
		RoleSessionName: aws.String(sessionName),
		DurationSeconds: aws.Int32(duration),
	}
	if p.settings.ExternalID != "" {
		input.ExternalId = aws.String(p.settings.ExternalID)
	}

	result, err := p.client.AssumeRole(ctx, input)
	if err != nil {
		return aws.Credentials{}, fmt.Errorf("failed to assume role %s: %w", p.settings.RoleARN, err)
	}

	creds := result.Credentials
	return aws.Credentials{
		AccessKeyID:     aws.ToString(creds.AccessKeyId),
		SecretAccessKey: aws.ToString(creds.SecretAccessKey),
		SessionToken:    aws.ToString(creds.SessionToken),
		CanExpire:       true,
		Expires:         aws.ToTime(creds.Expiration),
		Source:          "secretctlAssumeRole",
	}, nil
}

// SSOClientAPI is the subset of the SSO client used to exchange a cached
// sign-in for role credentials.
type SSOClientAPI interface {
	GetRoleCredentials(ctx context.Context, params *sso.GetRoleCredentialsInput, optFns ...func(*sso.Options)) (*sso.GetRoleCredentialsOutput, error)
}

// SSOOIDCClientAPI is the subset of the OIDC client used to refresh expired
// access tokens.
type SSOOIDCClientAPI interface {
	CreateToken(ctx context.Context, params *ssooidc.CreateTokenInput, optFns ...func(*ssooidc.Options)) (*ssooidc.CreateTokenOutput, error)
}

// ssoCacheEntry mirrors the JSON files 'aws sso login' writes under
// ~/.aws/sso/cache. The refresh fields are present when the session was
// registered for token refresh.
type ssoCacheEntry struct {
	StartURL     string    `json:"startUrl"`
	Region       string    `json:"region,omitempty"`
	AccessToken  string    `json:"accessToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	ClientID     string    `json:"clientId,omitempty"`
	ClientSecret string    `json:"clientSecret,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
}

// ssoCredentialsProvider implements aws.CredentialsProvider on top of an IAM
// Identity Center session. It reads the token 'aws sso login' cached,
// refreshes it through ssooidc when it has expired and a refresh token is
// available, and exchanges it for role credentials.
type ssoCredentialsProvider struct {
	ssoClient  SSOClientAPI
	oidcClient SSOOIDCClientAPI
	settings   ssoSettings

	// now is stubbed in tests
	now func() time.Time
}

func newSSOCredentialsProvider(cfg aws.Config, settings ssoSettings) *ssoCredentialsProvider {
	ssoOpts := []func(*sso.Options){}
	oidcOpts := []func(*ssooidc.Options){}
	if settings.Region != "" && settings.Region != cfg.Region {
		region := settings.Region
		ssoOpts = append(ssoOpts, func(o *sso.Options) { o.Region = region })
		oidcOpts = append(oidcOpts, func(o *ssooidc.Options) { o.Region = region })
	}

	return &ssoCredentialsProvider{
		ssoClient:  sso.NewFromConfig(cfg, ssoOpts...),
		oidcClient: ssooidc.NewFromConfig(cfg, oidcOpts...),
		settings:   settings,
		now:        time.Now,
	}
}

// Retrieve implements aws.CredentialsProvider.
func (p *ssoCredentialsProvider) Retrieve(ctx context.Context) (aws.Credentials, error) {
	entry, path, err := p.loadCacheEntry()
	if err != nil {
		return aws.Credentials{}, err
	}

	if p.now().After(entry.ExpiresAt) {
		if err := p.refreshToken(ctx, entry, path); err != nil {
			return aws.Credentials{}, err
		}
	}

	result, err := p.ssoClient.GetRoleCredentials(ctx, &sso.GetRoleCredentialsInput{
		AccountId:   aws.String(p.settings.AccountID),
		RoleName:    aws.String(p.settings.RoleName),
		AccessToken: aws.String(entry.AccessToken),
	})
	if err != nil {
		return aws.Credentials{}, fmt.Errorf("failed to get role credentials for %s: %w", p.settings.RoleName, err)
	}

	rc := result.RoleCredentials
	return aws.Credentials{
		AccessKeyID:     aws.ToString(rc.AccessKeyId),
		SecretAccessKey: aws.ToString(rc.SecretAccessKey),
		SessionToken:    aws.ToString(rc.SessionToken),
		CanExpire:       true,
		Expires:         time.UnixMilli(rc.Expiration),
		Source:          "secretctlSSO",
	}, nil
}

// refreshToken exchanges the cached refresh token for a fresh access token
// and persists it back to the cache file. Without refresh material the user
// has to sign in again.
func (p *ssoCredentialsProvider) refreshToken(ctx context.Context, entry *ssoCacheEntry, path string) error {
	if entry.RefreshToken == "" || entry.ClientID == "" || entry.ClientSecret == "" {
		return fmt.Errorf("SSO session for %s has expired, run 'aws sso login' to sign in again", p.settings.StartURL)
	}

	result, err := p.oidcClient.CreateToken(ctx, &ssooidc.CreateTokenInput{
		ClientId:     aws.String(entry.ClientID),
		ClientSecret: aws.String(entry.ClientSecret),
		GrantType:    aws.String("refresh_token"),
		RefreshToken: aws.String(entry.RefreshToken),
	})
	if err != nil {
		return fmt.Errorf("failed to refresh SSO session for %s: %w", p.settings.StartURL, err)
	}

	entry.AccessToken = aws.ToString(result.AccessToken)
	entry.ExpiresAt = p.now().Add(time.Duration(result.ExpiresIn) * time.Second)
	if result.RefreshToken != nil {
		entry.RefreshToken = aws.ToString(result.RefreshToken)
	}

	// Persisting the refreshed token is best effort; the credentials still
	// work for this process if the write fails.
	if data, err := json.Marshal(entry); err == nil {
		_ = os.WriteFile(path, data, 0600)
	}

	return nil
}

// loadCacheEntry reads and validates this session's cache file.
func (p *ssoCredentialsProvider) loadCacheEntry() (*ssoCacheEntry, string, error) {
	dir := p.settings.CachePath
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, "", fmt.Errorf("failed to locate home directory for SSO cache: %w", err)
		}
		dir = filepath.Join(home, ".aws", "sso", "cache")
	}

	path := filepath.Join(dir, ssoCacheFilename(p.settings.StartURL))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, path, fmt.Errorf("no cached SSO session for %s, run 'aws sso login' first", p.settings.StartURL)
		}
		return nil, path, fmt.Errorf("failed to read SSO token cache: %w", err)
	}

	var entry ssoCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, path, fmt.Errorf("invalid SSO token cache at %s: %w", path, err)
	}

	if entry.StartURL != "" && entry.StartURL != p.settings.StartURL {
		return nil, path, fmt.Errorf("SSO token cache start URL mismatch: cached %s, configured %s", entry.StartURL, p.settings.StartURL)
	}

	return &entry, path, nil
}

// ssoCacheFilename derives the cache file name the AWS CLI uses for a start
// URL: the hex SHA-1 of the URL plus ".json".
func ssoCacheFilename(startURL string) string {
	sum := sha1.Sum([]byte(startURL))
	return hex.EncodeToString(sum[:]) + ".json"
}
