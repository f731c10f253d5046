package pmc

import (
	"context"
	"net/http"
	"time"
)

// Operation is a single logical request inside a batch. Its position in the
// slice passed to SendBatch is its operation index: results refer back to it
// and it is stable across every retry round. Operations are never mutated.
type Operation struct {
	Method string      `json:"method"         yaml:"method"`
	URL    string      `json:"url"            yaml:"url"`
	Body   interface{} `json:"body,omitempty" yaml:"body,omitempty"`
}

// OperationResult is the decoded outcome of one response part.
//
// ContentID is round-local: a retried operation is re-encoded with a fresh
// Content-ID on the next round, so it must not be used to correlate results
// across rounds. OperationIndex is -1 until the coordinator resolves the
// result back to its input operation.
type OperationResult struct {
	OperationIndex int         `json:"operation_index"      yaml:"operation_index"`
	ContentID      *int        `json:"content_id,omitempty" yaml:"content_id,omitempty"`
	StatusCode     int         `json:"status_code"          yaml:"status_code"`
	Reason         string      `json:"reason"               yaml:"reason"`
	JSONBody       interface{} `json:"json_body,omitempty"  yaml:"json_body,omitempty"`
	TextBody       string      `json:"text_body,omitempty"  yaml:"text_body,omitempty"`
}

// OK reports whether the result carries a 2xx status.
func (r *OperationResult) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// BatchSendResult is the final outcome of one SendBatch call: exactly one
// result per input operation, sorted by operation index.
type BatchSendResult struct {
	Operations  []OperationResult `json:"operations"   yaml:"operations"`
	RetryCounts map[int]int       `json:"retry_counts" yaml:"retry_counts"`
	Attempts    int               `json:"attempts"     yaml:"attempts"`
}

// Succeeded returns the number of operations that ended with a 2xx status.
func (r *BatchSendResult) Succeeded() int {
	count := 0

	for i := range r.Operations {
		if r.Operations[i].OK() {
			count++
		}
	}

	return count
}

// Failed returns the number of operations that did not end with a 2xx status.
func (r *BatchSendResult) Failed() int {
	return len(r.Operations) - r.Succeeded()
}

// TransportResponse is the transport collaborator's view of an HTTP response.
type TransportResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Transport posts a batch payload. Connection-level concerns (TLS, pooling,
// transport retries) belong to the implementation, not to SendBatch.
type Transport interface {
	Post(ctx context.Context, path string, headers map[string]string, body []byte) (*TransportResponse, error)
}

// OperationStatus is the raw JSON document returned by a long-running
// operation's status endpoint.
type OperationStatus map[string]interface{}

// Logger is the logging interface used across the module.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config holds client configuration.
type Config struct {
	// APIEndpoint is the base URL of the platform API.
	APIEndpoint string

	// AccessToken is a pre-acquired bearer token. Token acquisition itself
	// is out of scope; callers bring their own.
	AccessToken string

	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// Debug enables request/response logging.
	Debug bool

	// Logger receives structured log output when set.
	Logger Logger

	// Transport-level retry configuration.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// Cache configures the metadata cache backend.
	Cache *CacheConfig
}
