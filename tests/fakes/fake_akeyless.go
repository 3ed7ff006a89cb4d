package fakes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/systmms/secretctl/internal/stores"
)

// FakeAkeylessClient is a test double for stores.AkeylessClientAPI
type FakeAkeylessClient struct {
	// Token is the token returned by Authenticate
	Token string

	// TokenTTL is the token lifetime returned by Authenticate
	TokenTTL time.Duration

	// Items maps full item paths to their data
	Items map[string]*FakeAkeylessItem

	// Errors maps paths to errors to return
	Errors map[string]error

	// AuthErr is returned by Authenticate if set
	AuthErr error

	// ListErr is returned by ListItems if set
	ListErr error

	// AuthCallCount tracks how many times Authenticate was called
	AuthCallCount int

	// GetCallCount tracks how many times GetSecret was called
	GetCallCount int
}

// FakeAkeylessItem holds the data for a mock Akeyless item
type FakeAkeylessItem struct {
	Value    string
	ItemType string
	Tags     []string
}

// ErrFakeAkeylessUnauthorized mimics a gateway auth rejection
var ErrFakeAkeylessUnauthorized = errors.New("unauthorized: access denied")

// NewFakeAkeylessClient creates a new fake Akeyless client with defaults
func NewFakeAkeylessClient() *FakeAkeylessClient {
	return &FakeAkeylessClient{
		Token:    "fake-akeyless-token",
		TokenTTL: 25 * time.Minute,
		Items:    make(map[string]*FakeAkeylessItem),
		Errors:   make(map[string]error),
	}
}

// AddStaticSecret adds a static secret item to the fake vault
func (f *FakeAkeylessClient) AddStaticSecret(path, value string, tags ...string) {
	f.Items[path] = &FakeAkeylessItem{
		Value:    value,
		ItemType: "STATIC_SECRET",
		Tags:     tags,
	}
}

// AddItem adds an item with an explicit type, such as a key or certificate
func (f *FakeAkeylessClient) AddItem(path, itemType string) {
	f.Items[path] = &FakeAkeylessItem{ItemType: itemType}
}

// AddError configures the fake to return an error for a specific path
func (f *FakeAkeylessClient) AddError(path string, err error) {
	f.Errors[path] = err
}

// Authenticate obtains an access token
func (f *FakeAkeylessClient) Authenticate(ctx context.Context) (string, time.Duration, error) {
	f.AuthCallCount++
	if f.AuthErr != nil {
		return "", 0, f.AuthErr
	}
	return f.Token, f.TokenTTL, nil
}

// GetSecret retrieves a static secret's value by path
func (f *FakeAkeylessClient) GetSecret(ctx context.Context, token, path string) (string, error) {
	f.GetCallCount++
	if err, exists := f.Errors[path]; exists {
		return "", err
	}

	item, exists := f.Items[path]
	if !exists {
		return "", stores.ErrAkeylessSecretNotFound
	}
	return item.Value, nil
}

// CreateSecret creates a static secret item
func (f *FakeAkeylessClient) CreateSecret(ctx context.Context, token, path, value string, tags []string) error {
	if err, exists := f.Errors[path]; exists {
		return err
	}

	if _, exists := f.Items[path]; exists {
		return fmt.Errorf("item %s already exists", path)
	}

	f.Items[path] = &FakeAkeylessItem{
		Value:    value,
		ItemType: "STATIC_SECRET",
		Tags:     tags,
	}
	return nil
}

// UpdateSecret replaces a static secret's value
func (f *FakeAkeylessClient) UpdateSecret(ctx context.Context, token, path, value string) error {
	if err, exists := f.Errors[path]; exists {
		return err
	}

	item, exists := f.Items[path]
	if !exists {
		return fmt.Errorf("item %s not found", path)
	}
	item.Value = value
	return nil
}

// DeleteItem removes an item
func (f *FakeAkeylessClient) DeleteItem(ctx context.Context, token, path string) error {
	if err, exists := f.Errors[path]; exists {
		return err
	}

	if _, exists := f.Items[path]; !exists {
		return fmt.Errorf("item %s not found", path)
	}
	delete(f.Items, path)
	return nil
}

// DescribeItem gets item metadata without the value
func (f *FakeAkeylessClient) DescribeItem(ctx context.Context, token, path string) (*stores.AkeylessItem, error) {
	if err, exists := f.Errors[path]; exists {
		return nil, err
	}

	item, exists := f.Items[path]
	if !exists {
		return nil, fmt.Errorf("item %s not found", path)
	}
	return &stores.AkeylessItem{
		Path:     path,
		ItemType: item.ItemType,
		Tags:     item.Tags,
	}, nil
}

// ListItems derives one level of the hierarchy from the stored item paths.
// Folders carry a trailing slash, matching the gateway's responses.
func (f *FakeAkeylessClient) ListItems(ctx context.Context, token, listPath string) (*stores.AkeylessListing, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	if err, exists := f.Errors[listPath]; exists {
		return nil, err
	}

	prefix := strings.TrimSuffix(listPath, "/") + "/"
	listing := &stores.AkeylessListing{}
	folders := make(map[string]bool)

	for itemPath, item := range f.Items {
		if !strings.HasPrefix(itemPath, prefix) {
			continue
		}
		rest := strings.TrimPrefix(itemPath, prefix)
		if idx := strings.Index(rest, "/"); idx >= 0 {
			folders[prefix+rest[:idx]+"/"] = true
			continue
		}
		listing.Items = append(listing.Items, stores.AkeylessItem{
			Path:     itemPath,
			ItemType: item.ItemType,
			Tags:     item.Tags,
		})
	}

	for folder := range folders {
		listing.Folders = append(listing.Folders, folder)
	}
	sort.Strings(listing.Folders)
	sort.Slice(listing.Items, func(i, j int) bool {
		return listing.Items[i].Path < listing.Items[j].Path
	})

	return listing, nil
}

// Ensure FakeAkeylessClient implements stores.AkeylessClientAPI
var _ stores.AkeylessClientAPI = (*FakeAkeylessClient)(nil)
