package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/pmctl-io/pmctl/internal/client"
	"github.com/pmctl-io/pmctl/pkg/pmc"
)

// Output formats.
const (
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"
)

// Common static errors used throughout the commands package.
var (
	ErrAPIEndpointRequired = errors.New("API endpoint is required (use --api or set PMCTL_API)")
	ErrBatchHadFailures    = errors.New("batch completed with failed operations")
	ErrNoOperationsInFile  = errors.New("operations file contains no operations")
)

// CreateClient builds an API client from the effective configuration.
func CreateClient() (*client.Client, error) {
	endpoint := viper.GetString("api")
	if endpoint == "" {
		return nil, ErrAPIEndpointRequired
	}

	config := &pmc.Config{
		APIEndpoint: endpoint,
		AccessToken: viper.GetString("token"),
		UserAgent:   "pmctl",
		Debug:       viper.GetBool("debug"),
	}

	if config.Debug {
		config.Logger = &stderrLogger{}
	}

	return client.New(config)
}

// stderrLogger writes structured log lines to stderr.
type stderrLogger struct{}

func (l *stderrLogger) log(level, msg string, fields map[string]interface{}) {
	_, _ = fmt.Fprintf(os.Stderr, "[%s] %s %v\n", level, msg, fields)
}

func (l *stderrLogger) Debug(msg string, fields map[string]interface{}) { l.log("DEBUG", msg, fields) }
func (l *stderrLogger) Info(msg string, fields map[string]interface{})  { l.log("INFO", msg, fields) }
func (l *stderrLogger) Warn(msg string, fields map[string]interface{})  { l.log("WARN", msg, fields) }
func (l *stderrLogger) Error(msg string, fields map[string]interface{}) { l.log("ERROR", msg, fields) }

// renderJSON writes indented JSON to stdout.
func renderJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	return encoder.Encode(data)
}

// renderYAML writes YAML to stdout.
func renderYAML(data interface{}) error {
	encoder := yaml.NewEncoder(os.Stdout)

	return encoder.Encode(data)
}

// renderBatchResult prints a batch outcome in the requested format.
func renderBatchResult(result *pmc.BatchSendResult, output string) error {
	switch output {
	case OutputFormatJSON:
		return renderJSON(result)
	case OutputFormatYAML:
		return renderYAML(result)
	default:
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Index", "Status", "Reason", "Retries")

		for _, op := range result.Operations {
			reason := op.Reason
			if reason == "" && op.OK() {
				reason = "OK"
			}

			_ = table.Append(
				strconv.Itoa(op.OperationIndex),
				strconv.Itoa(op.StatusCode),
				reason,
				strconv.Itoa(result.RetryCounts[op.OperationIndex]),
			)
		}

		_ = table.Render()

		_, _ = fmt.Fprintf(os.Stdout, "\n%d succeeded, %d failed, %d round(s)\n",
			result.Succeeded(), result.Failed(), result.Attempts)

		return nil
	}
}
