package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/pmctl-io/pmctl/internal/client"
	"github.com/pmctl-io/pmctl/internal/constants"
	"github.com/pmctl-io/pmctl/pkg/pmc"
)

// NewOperationCommand creates the operation command group.
func NewOperationCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "operation",
		Short: "Track long-running operations",
	}

	cmd.AddCommand(newOperationGetCommand())
	cmd.AddCommand(newOperationWaitCommand())

	return cmd
}

func newOperationGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get OPERATION_PATH",
		Short: "Show an operation's current status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			status, err := apiClient.Operations().Get(context.Background(), args[0])
			if err != nil {
				return err
			}

			if viper.GetString("output") == OutputFormatYAML {
				return renderYAML(status)
			}

			return renderJSON(status)
		},
	}
}

func newOperationWaitCommand() *cobra.Command {
	var (
		interval time.Duration
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "wait OPERATION_PATH",
		Short: "Wait for an operation to finish",
		Long: `Poll an operation's status document until it reaches a terminal state.

Exits non-zero when the operation fails, is canceled, or the timeout
elapses first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient, err := CreateClient()
			if err != nil {
				return err
			}

			operations := apiClient.Operations()
			operations.SetPollTiming(interval, timeout)

			// Progress lines only when stderr is a terminal.
			var onUpdate func(pmc.OperationStatus)
			if term.IsTerminal(int(os.Stderr.Fd())) {
				onUpdate = func(status pmc.OperationStatus) {
					_, _ = fmt.Fprintf(os.Stderr, "operation state: %s\n", client.StateOf(status))
				}
			}

			status, err := operations.Watch(context.Background(), args[0], onUpdate)
			if err != nil {
				if pmc.IsPollTimeout(err) {
					return fmt.Errorf("operation still %s: %w", client.StateOf(status), err)
				}

				return err
			}

			if viper.GetString("output") == OutputFormatYAML {
				return renderYAML(status)
			}

			return renderJSON(status)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", constants.DefaultPollInterval, "time between status checks")
	cmd.Flags().DurationVar(&timeout, "timeout", constants.DefaultPollTimeout, "how long to wait overall")

	return cmd
}
