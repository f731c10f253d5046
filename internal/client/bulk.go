package client

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/pmctl-io/pmctl/internal/constants"
	"github.com/pmctl-io/pmctl/pkg/pmc"
)

// Static errors for err113 compliance.
var (
	ErrEmptyCSV        = errors.New("CSV input contains no data rows")
	ErrColumnNotFound  = errors.New("column not found in CSV header")
	ErrNoRowIdentifier = errors.New("row has no id and no key column values")
)

// BulkUpsertOptions controls how CSV rows are turned into operations.
type BulkUpsertOptions struct {
	// IDColumn names the column holding the record id. Rows with a value
	// there become updates addressed by id.
	IDColumn string
	// KeyColumns name alternate-key columns used to address rows without
	// an id value. When empty, such rows become inserts.
	KeyColumns []string
	// ChunkSize caps how many rows go into one batch request.
	ChunkSize int
	// Send tunes the per-chunk batch submission.
	Send *pmc.SendOptions
}

// BulkClient loads CSV data through batched upserts.
type BulkClient struct {
	batch    *BatchClient
	metadata *MetadataClient
}

// UpsertCSV reads CSV rows and submits them as batched PATCH or POST
// operations against the entity set. Results from all chunks are merged,
// with operation indexes numbering rows across the whole file.
func (c *BulkClient) UpsertCSV(ctx context.Context, entitySet string, reader io.Reader, opts *BulkUpsertOptions) (*pmc.BatchSendResult, error) {
	if opts == nil {
		opts = &BulkUpsertOptions{}
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = constants.DefaultBulkChunkSize
	}

	ops, err := csvOperations(entitySet, reader, opts)
	if err != nil {
		return nil, err
	}

	merged := &pmc.BatchSendResult{RetryCounts: map[int]int{}}

	for offset := 0; offset < len(ops); offset += chunkSize {
		end := offset + chunkSize
		if end > len(ops) {
			end = len(ops)
		}

		result, err := c.batch.Send(ctx, ops[offset:end], opts.Send)
		if err != nil {
			return nil, fmt.Errorf("sending chunk starting at row %d: %w", offset, err)
		}

		merged.Attempts += result.Attempts

		for _, op := range result.Operations {
			op.OperationIndex += offset
			merged.Operations = append(merged.Operations, op)
		}

		for idx, count := range result.RetryCounts {
			merged.RetryCounts[idx+offset] = count
		}
	}

	return merged, nil
}

// UpsertCSVByLogicalName resolves the entity set name from metadata before
// loading, so callers can pass the logical entity name instead.
func (c *BulkClient) UpsertCSVByLogicalName(ctx context.Context, logicalName string, reader io.Reader, opts *BulkUpsertOptions) (*pmc.BatchSendResult, error) {
	entitySet, err := c.metadata.EntitySetName(ctx, logicalName)
	if err != nil {
		return nil, err
	}

	return c.UpsertCSV(ctx, entitySet, reader, opts)
}

// csvOperations converts CSV rows into batch operations.
func csvOperations(entitySet string, reader io.Reader, opts *BulkUpsertOptions) ([]pmc.Operation, error) {
	records, err := csv.NewReader(reader).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}

	if len(records) < 2 {
		return nil, ErrEmptyCSV
	}

	header := records[0]
	columns := make(map[string]int, len(header))

	for i, name := range header {
		columns[name] = i
	}

	if opts.IDColumn != "" {
		if _, ok := columns[opts.IDColumn]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, opts.IDColumn)
		}
	}

	for _, keyColumn := range opts.KeyColumns {
		if _, ok := columns[keyColumn]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, keyColumn)
		}
	}

	skip := map[string]bool{opts.IDColumn: true}
	for _, keyColumn := range opts.KeyColumns {
		skip[keyColumn] = true
	}

	basePath := constants.DataAPIPath + "/"
	ops := make([]pmc.Operation, 0, len(records)-1)

	for rowNum, row := range records[1:] {
		body := make(map[string]interface{}, len(header))

		for i, name := range header {
			if i < len(row) && !skip[name] && row[i] != "" {
				body[name] = row[i]
			}
		}

		op, err := rowOperation(basePath, entitySet, columns, row, body, opts)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum+1, err)
		}

		ops = append(ops, op)
	}

	return ops, nil
}

func rowOperation(basePath, entitySet string, columns map[string]int, row []string, body map[string]interface{}, opts *BulkUpsertOptions) (pmc.Operation, error) {
	if opts.IDColumn != "" {
		if id := cell(row, columns[opts.IDColumn]); id != "" {
			return pmc.Operation{
				Method: "PATCH",
				URL:    fmt.Sprintf("%s%s(%s)", basePath, entitySet, id),
				Body:   body,
			}, nil
		}
	}

	if len(opts.KeyColumns) > 0 {
		keys := make(map[string]string, len(opts.KeyColumns))

		for _, keyColumn := range opts.KeyColumns {
			value := cell(row, columns[keyColumn])
			if value == "" {
				return pmc.Operation{}, fmt.Errorf("%w: empty %s", ErrNoRowIdentifier, keyColumn)
			}

			keys[keyColumn] = value
		}

		return pmc.Operation{
			Method: "PATCH",
			URL:    basePath + AlternateKeySegment(entitySet, keys),
			Body:   body,
		}, nil
	}

	return pmc.Operation{
		Method: "POST",
		URL:    basePath + entitySet,
		Body:   body,
	}, nil
}

func cell(row []string, index int) string {
	if index < len(row) {
		return row[index]
	}

	return ""
}
