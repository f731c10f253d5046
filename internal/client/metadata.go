package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/pmctl-io/pmctl/internal/constants"
	internalhttp "github.com/pmctl-io/pmctl/internal/http"
	"github.com/pmctl-io/pmctl/pkg/pmc"
)

// Static errors for err113 compliance.
var (
	ErrEntitySetNotFound = errors.New("entity set name not found in metadata")
)

const metadataCacheTTL = time.Hour

// MetadataClient resolves schema metadata, caching lookups.
type MetadataClient struct {
	httpClient *internalhttp.Client
	cache      pmc.Cache
}

// EntitySetName resolves the plural entity set name for a logical entity
// name, e.g. "account" to "accounts". Results are cached.
func (c *MetadataClient) EntitySetName(ctx context.Context, logicalName string) (string, error) {
	cacheKey := "entityset:" + logicalName

	if c.cache != nil {
		if entry, err := c.cache.Get(ctx, cacheKey); err == nil {
			return string(entry.Value), nil
		}
	}

	path := fmt.Sprintf("%s/EntityDefinitions(LogicalName='%s')",
		constants.DataAPIPath, EscapeString(logicalName))

	resp, err := c.httpClient.Get(ctx, path, url.Values{"$select": []string{"EntitySetName"}})
	if err != nil {
		return "", fmt.Errorf("fetching entity definition for %q: %w", logicalName, err)
	}

	definition, err := decodeJSONMap(resp.Body)
	if err != nil {
		return "", err
	}

	entitySet, ok := definition["EntitySetName"].(string)
	if !ok || entitySet == "" {
		return "", fmt.Errorf("%w: %s", ErrEntitySetNotFound, logicalName)
	}

	if c.cache != nil {
		now := time.Now()
		_ = c.cache.Set(ctx, cacheKey, &pmc.CacheEntry{
			Value:     []byte(entitySet),
			CreatedAt: now,
			ExpiresAt: now.Add(metadataCacheTTL),
		})
	}

	return entitySet, nil
}
