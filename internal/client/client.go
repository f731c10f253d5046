// Package client implements the high-level API client: batch submission,
// bulk CSV loads, metadata lookups and long-running operation tracking.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pmctl-io/pmctl/internal/auth"
	"github.com/pmctl-io/pmctl/internal/constants"
	internalhttp "github.com/pmctl-io/pmctl/internal/http"
	"github.com/pmctl-io/pmctl/pkg/pmc"
)

// Static errors for err113 compliance.
var (
	ErrAPIEndpointRequired = errors.New("API endpoint is required")
)

// Client is the top-level API client.
type Client struct {
	httpClient *internalhttp.Client
	cache      pmc.Cache
	config     *pmc.Config

	batch      *BatchClient
	operations *OperationsClient
	bulk       *BulkClient
	metadata   *MetadataClient
}

// New creates a client from the given config.
func New(config *pmc.Config) (*Client, error) {
	if config == nil || config.APIEndpoint == "" {
		return nil, ErrAPIEndpointRequired
	}

	tokenManager := auth.NewStaticTokenManager(config.AccessToken, time.Time{})

	opts := []internalhttp.Option{
		internalhttp.WithDebug(config.Debug),
	}
	if config.Logger != nil {
		opts = append(opts, internalhttp.WithLogger(config.Logger))
	}

	if config.UserAgent != "" {
		opts = append(opts, internalhttp.WithUserAgent(config.UserAgent))
	}

	if config.RetryMax > 0 {
		opts = append(opts, internalhttp.WithRetryConfig(config.RetryMax, config.RetryWaitMin, config.RetryWaitMax))
	}

	httpClient := internalhttp.NewClient(config.APIEndpoint, tokenManager, opts...)

	cache, err := pmc.NewCacheFromConfig(config.Cache)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	client := &Client{
		httpClient: httpClient,
		cache:      cache,
		config:     config,
	}

	client.batch = &BatchClient{httpClient: httpClient}
	client.operations = NewOperationsClient(httpClient)
	client.metadata = &MetadataClient{httpClient: httpClient, cache: cache}
	client.bulk = &BulkClient{batch: client.batch, metadata: client.metadata}

	return client, nil
}

// Batch returns the batch submission client.
func (c *Client) Batch() *BatchClient {
	return c.batch
}

// Operations returns the long-running operation client.
func (c *Client) Operations() *OperationsClient {
	return c.operations
}

// Bulk returns the bulk data client.
func (c *Client) Bulk() *BulkClient {
	return c.bulk
}

// Metadata returns the metadata client.
func (c *Client) Metadata() *MetadataClient {
	return c.metadata
}

// WhoAmI identifies the calling principal.
func (c *Client) WhoAmI(ctx context.Context) (map[string]interface{}, error) {
	resp, err := c.httpClient.Get(ctx, constants.WhoAmIPath, nil)
	if err != nil {
		return nil, fmt.Errorf("calling WhoAmI: %w", err)
	}

	return decodeJSONMap(resp.Body)
}

func decodeJSONMap(body []byte) (map[string]interface{}, error) {
	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return result, nil
}
