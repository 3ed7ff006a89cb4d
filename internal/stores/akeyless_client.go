package stores

import (
	"context"
	"fmt"
	"net/http"
	"time"

	akeyless "github.com/akeylesslabs/akeyless-go/v3"
)

// akeylessSDKClient implements AkeylessClientAPI using the official SDK.
type akeylessSDKClient struct {
	apiClient *akeyless.APIClient
	settings  akeylessSettings
}

func newAkeylessSDKClient(settings akeylessSettings) *akeylessSDKClient {
	configuration := akeyless.NewConfiguration()
	configuration.Servers = []akeyless.ServerConfiguration{
		{URL: settings.GatewayURL},
	}
	if settings.Timeout > 0 {
		configuration.HTTPClient = &http.Client{Timeout: settings.Timeout}
	}

	return &akeylessSDKClient{
		apiClient: akeyless.NewAPIClient(configuration),
		settings:  settings,
	}
}

var _ AkeylessClientAPI = (*akeylessSDKClient)(nil)

// Authenticate obtains an access token using the configured auth method.
func (c *akeylessSDKClient) Authenticate(ctx context.Context) (string, time.Duration, error) {
	authBody := akeyless.NewAuthWithDefaults()
	authBody.SetAccessId(c.settings.AccessID)

	switch c.settings.Auth.Method {
	case "api_key", "":
		authBody.SetAccessKey(c.settings.Auth.AccessKey)
	case "aws_iam":
		authBody.SetAccessType("aws_iam")
	case "azure_ad":
		authBody.SetAccessType("azure_ad")
		if c.settings.Auth.AzureADObjectID != "" {
			authBody.SetCloudId(c.settings.Auth.AzureADObjectID)
		}
	case "gcp":
		authBody.SetAccessType("gcp")
		if c.settings.Auth.GCPAudience != "" {
			authBody.SetGcpAudience(c.settings.Auth.GCPAudience)
		}
	default:
		return "", 0, fmt.Errorf("unsupported authentication method: %s", c.settings.Auth.Method)
	}

	authRes, _, err := c.apiClient.V2Api.Auth(ctx).Body(*authBody).Execute()
	if err != nil {
		return "", 0, fmt.Errorf("akeyless authentication failed: %w", err)
	}

	// Tokens last about 30 minutes; renew well before that.
	return authRes.GetToken(), 25 * time.Minute, nil
}

// GetSecret retrieves a static secret value.
func (c *akeylessSDKClient) GetSecret(ctx context.Context, token, path string) (string, error) {
	body := akeyless.NewGetSecretValue([]string{path})
	body.SetToken(token)

	res, _, err := c.apiClient.V2Api.GetSecretValue(ctx).Body(*body).Execute()
	if err != nil {
		return "", err
	}

	value, ok := res[path]
	if !ok {
		return "", ErrAkeylessSecretNotFound
	}
	return value, nil
}

// CreateSecret creates a static secret with item tags.
func (c *akeylessSDKClient) CreateSecret(ctx context.Context, token, path, value string, tags []string) error {
	body := akeyless.NewCreateSecretWithDefaults()
	body.SetName(path)
	body.SetValue(value)
	body.SetToken(token)
	if len(tags) > 0 {
		body.SetTags(tags)
	}

	_, _, err := c.apiClient.V2Api.CreateSecret(ctx).Body(*body).Execute()
	return err
}

// UpdateSecret replaces a static secret value.
func (c *akeylessSDKClient) UpdateSecret(ctx context.Context, token, path, value string) error {
	body := akeyless.NewUpdateSecretValWithDefaults()
	body.SetName(path)
	body.SetValue(value)
	body.SetToken(token)

	_, _, err := c.apiClient.V2Api.UpdateSecretVal(ctx).Body(*body).Execute()
	return err
}

// DeleteItem removes an item immediately instead of scheduling deletion.
func (c *akeylessSDKClient) DeleteItem(ctx context.Context, token, path string) error {
	body := akeyless.NewDeleteItemWithDefaults()
	body.SetName(path)
	body.SetToken(token)
	body.SetDeleteImmediately(true)
	body.SetDeleteInDays(-1)

	_, _, err := c.apiClient.V2Api.DeleteItem(ctx).Body(*body).Execute()
	return err
}

// DescribeItem returns item metadata without the secret value.
func (c *akeylessSDKClient) DescribeItem(ctx context.Context, token, path string) (*AkeylessItem, error) {
	body := akeyless.NewDescribeItem(path)
	body.SetToken(token)

	res, _, err := c.apiClient.V2Api.DescribeItem(ctx).Body(*body).Execute()
	if err != nil {
		return nil, err
	}

	item := &AkeylessItem{
		Path:     path,
		ItemType: res.GetItemType(),
	}
	if res.ItemTags != nil {
		item.Tags = *res.ItemTags
	}
	return item, nil
}

// ListItems lists one folder level of the vault.
func (c *akeylessSDKClient) ListItems(ctx context.Context, token, path string) (*AkeylessListing, error) {
	body := akeyless.NewListItems()
	body.SetPath(path)
	body.SetToken(token)

	res, _, err := c.apiClient.V2Api.ListItems(ctx).Body(*body).Execute()
	if err != nil {
		return nil, err
	}

	listing := &AkeylessListing{Folders: res.GetFolders()}
	for _, item := range res.GetItems() {
		listing.Items = append(listing.Items, AkeylessItem{
			Path:     item.GetItemName(),
			ItemType: item.GetItemType(),
			Tags:     item.GetItemTags(),
		})
	}
	return listing, nil
}
