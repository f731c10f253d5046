package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pmctl-io/pmctl/internal/constants"
	internalhttp "github.com/pmctl-io/pmctl/internal/http"
	"github.com/pmctl-io/pmctl/pkg/pmc"
)

// Static errors for err113 compliance.
var (
	ErrOperationFailed = errors.New("operation finished in a failed state")
)

// statusFields are checked in order when extracting an operation's state.
var statusFields = []string{"status", "state", "provisioningState", "statuscode"}

// terminalStates are the states after which an operation will not change.
var terminalStates = map[string]bool{
	"succeeded": true,
	"completed": true,
	"failed":    true,
	"canceled":  true,
	"cancelled": true,
	"faulted":   true,
	"error":     true,
}

// failureStates are the terminal states reported as errors.
var failureStates = map[string]bool{
	"failed":    true,
	"canceled":  true,
	"cancelled": true,
	"faulted":   true,
	"error":     true,
}

// OperationsClient tracks long-running asynchronous operations.
type OperationsClient struct {
	httpClient   *internalhttp.Client
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// NewOperationsClient creates an operations client with default poll timing.
func NewOperationsClient(httpClient *internalhttp.Client) *OperationsClient {
	return &OperationsClient{
		httpClient:   httpClient,
		pollInterval: constants.DefaultPollInterval,
		pollTimeout:  constants.DefaultPollTimeout,
	}
}

// SetPollTiming overrides the poll interval and overall timeout.
func (c *OperationsClient) SetPollTiming(interval, timeout time.Duration) {
	if interval > 0 {
		c.pollInterval = interval
	}

	if timeout > 0 {
		c.pollTimeout = timeout
	}
}

// Get fetches the current status document of an operation.
func (c *OperationsClient) Get(ctx context.Context, path string) (pmc.OperationStatus, error) {
	resp, err := c.httpClient.Get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching operation status: %w", err)
	}

	status, err := decodeJSONMap(resp.Body)
	if err != nil {
		return nil, err
	}

	return status, nil
}

// StateOf extracts the operation's state from its status document.
// An empty string means no recognized field was present.
func StateOf(status pmc.OperationStatus) string {
	for _, field := range statusFields {
		if value, ok := status[field].(string); ok && value != "" {
			return strings.ToLower(value)
		}
	}

	return ""
}

// IsTerminal reports whether the status document describes a finished
// operation.
func IsTerminal(status pmc.OperationStatus) bool {
	return terminalStates[StateOf(status)]
}

// Watch polls the operation until it reaches a terminal state or the
// timeout elapses. onUpdate, when non-nil, receives every observed status.
// Failed terminal states return ErrOperationFailed together with the final
// status document.
func (c *OperationsClient) Watch(ctx context.Context, path string, onUpdate func(pmc.OperationStatus)) (pmc.OperationStatus, error) {
	opts := &pmc.PollOptions[pmc.OperationStatus]{
		Interval: c.pollInterval,
		Timeout:  c.pollTimeout,
		OnUpdate: onUpdate,
	}

	status, err := pmc.PollUntil(
		func() (pmc.OperationStatus, error) { return c.Get(ctx, path) },
		IsTerminal,
		opts,
	)
	if err != nil {
		return status, err
	}

	if state := StateOf(status); failureStates[state] {
		return status, fmt.Errorf("%w: %s", ErrOperationFailed, state)
	}

	return status, nil
}
