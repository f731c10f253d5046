package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pmctl-io/pmctl/internal/client"
	"github.com/pmctl-io/pmctl/internal/constants"
)

// NewBulkCommand creates the bulk command group.
func NewBulkCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Load data in bulk",
		Long:  "Load CSV data through batched create and update operations",
	}

	cmd.AddCommand(newBulkUpsertCommand())

	return cmd
}

func newBulkUpsertCommand() *cobra.Command {
	var (
		filePath    string
		idColumn    string
		keyColumns  []string
		chunkSize   int
		logicalName bool
	)

	cmd := &cobra.Command{
		Use:   "upsert ENTITY_SET",
		Short: "Upsert CSV rows into an entity set",
		Long: `Read a CSV file and upsert each row into the given entity set.

Rows with a value in the id column are updated in place. Rows without one
are matched by the alternate key columns when given, and created otherwise.
Rows are grouped into batch requests to limit round trips.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(filePath)
			if err != nil {
				return fmt.Errorf("opening CSV file: %w", err)
			}
			defer func() { _ = file.Close() }()

			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			opts := &client.BulkUpsertOptions{
				IDColumn:   idColumn,
				KeyColumns: keyColumns,
				ChunkSize:  chunkSize,
			}

			ctx := context.Background()

			upsert := apiClient.Bulk().UpsertCSV
			if logicalName {
				upsert = apiClient.Bulk().UpsertCSVByLogicalName
			}

			result, err := upsert(ctx, args[0], file, opts)
			if err != nil {
				return fmt.Errorf("bulk upsert: %w", err)
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

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "CSV file to load")
	cmd.Flags().StringVar(&idColumn, "id-column", "", "column holding the record id")
	cmd.Flags().StringSliceVar(&keyColumns, "key-columns", nil, "alternate key columns for rows without an id")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", constants.DefaultBulkChunkSize, "rows per batch request")
	cmd.Flags().BoolVar(&logicalName, "logical-name", false, "treat ENTITY_SET as a logical name and resolve it from metadata")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
