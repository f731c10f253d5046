package commands

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewWhoAmICommand creates the whoami command.
func NewWhoAmICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated principal",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			result, err := apiClient.WhoAmI(context.Background())
			if err != nil {
				return err
			}

			if viper.GetString("output") == OutputFormatYAML {
				return renderYAML(result)
			}

			return renderJSON(result)
		},
	}
}
