package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pmctl-io/pmctl/pkg/pmc"
)

// NewBatchCommand creates the batch command group.
func NewBatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Submit grouped data operations",
		Long:  "Submit multiple data operations as a single multipart batch request",
	}

	cmd.AddCommand(newBatchSendCommand())

	return cmd
}

func newBatchSendCommand() *cobra.Command {
	var (
		filePath   string
		maxRetries int
		backoff    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a batch of operations from a file",
		Long: `Read operations from a JSON file and submit them as one batch.

The file holds an array of operations:

  [
    {"method": "PATCH", "url": "/api/data/v9.2/accounts(1)", "body": {"name": "Contoso"}},
    {"method": "GET",   "url": "/api/data/v9.2/accounts?$top=3"}
  ]

Consecutive writes are grouped into an atomic changeset. Operations that
fail with a transient status are retried individually.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := loadOperationsFile(filePath)
			if err != nil {
				return err
			}

			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			opts := pmc.DefaultSendOptions()
			opts.MaxRetries = maxRetries
			opts.BaseBackoff = backoff

			result, err := apiClient.Batch().Send(context.Background(), ops, opts)
			if err != nil {
				return fmt.Errorf("sending batch: %w", err)
			}

			if renderErr := renderBatchResult(result, viper.GetString("output")); renderErr != nil {
				return renderErr
			}

			if result.Failed() > 0 {
				return ErrBatchHadFailures
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "JSON file with the operations to send")
	cmd.Flags().IntVar(&maxRetries, "max-retries", pmc.DefaultMaxRetries, "retry budget per operation")
	cmd.Flags().DurationVar(&backoff, "backoff", pmc.DefaultBaseBackoff, "base backoff between retry rounds")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// operationSpec is the on-disk shape of one operation.
type operationSpec struct {
	Method string      `json:"method"`
	URL    string      `json:"url"`
	Body   interface{} `json:"body,omitempty"`
}

func loadOperationsFile(path string) ([]pmc.Operation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading operations file: %w", err)
	}

	var specs []operationSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parsing operations file: %w", err)
	}

	if len(specs) == 0 {
		return nil, ErrNoOperationsInFile
	}

	ops := make([]pmc.Operation, len(specs))
	for i, spec := range specs {
		ops[i] = pmc.Operation{Method: spec.Method, URL: spec.URL, Body: spec.Body}
	}

	return ops, nil
}
