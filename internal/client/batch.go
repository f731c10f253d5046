package client

import (
	"context"
	"net/http"

	"github.com/pmctl-io/pmctl/internal/constants"
	internalhttp "github.com/pmctl-io/pmctl/internal/http"
	"github.com/pmctl-io/pmctl/pkg/pmc"
)

// BatchClient submits grouped operations through the batch endpoint.
type BatchClient struct {
	httpClient *internalhttp.Client
}

// Send encodes the operations into a multipart batch, posts it and retries
// transient per-operation failures. A nil opts uses the defaults.
func (c *BatchClient) Send(ctx context.Context, ops []pmc.Operation, opts *pmc.SendOptions) (*pmc.BatchSendResult, error) {
	if opts == nil {
		opts = pmc.DefaultSendOptions()
	}

	opts.Path = constants.BatchPath

	return pmc.SendBatch(ctx, &httpTransport{client: c.httpClient}, ops, opts)
}

// httpTransport adapts the internal HTTP client to the pmc.Transport
// interface. Error statuses are not turned into errors here because the
// batch coordinator inspects per-part statuses itself.
type httpTransport struct {
	client *internalhttp.Client
}

func (t *httpTransport) Post(ctx context.Context, path string, headers map[string]string, body []byte) (*pmc.TransportResponse, error) {
	resp, err := t.client.Do(ctx, &internalhttp.Request{
		Method:  http.MethodPost,
		Path:    path,
		Headers: headers,
		Body:    body,
	})
	if err != nil && resp == nil {
		return nil, err
	}

	return &pmc.TransportResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}, nil
}
