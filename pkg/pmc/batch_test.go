package pmc_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pmctl-io/pmctl/pkg/pmc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func splitBatchParts(body, boundary string) []string {
	var parts []string

	for _, raw := range strings.Split(body, "--"+boundary) {
		stripped := strings.TrimSpace(raw)
		if stripped == "" || stripped == "--" {
			continue
		}

		parts = append(parts, stripped)
	}

	return parts
}

func buildResponseBody(boundary string, statuses []int) []byte {
	var segments []string

	for i, status := range statuses {
		reason := "OK"
		if status >= 400 {
			reason = "Error"
		}

		segments = append(segments, strings.Join([]string{
			"--" + boundary,
			"Content-Type: application/http",
			"Content-Transfer-Encoding: binary",
			fmt.Sprintf("Content-ID: %d", i+1),
			"",
			fmt.Sprintf("HTTP/1.1 %d %s", status, reason),
			"",
			"{}",
		}, "\r\n"))
	}

	segments = append(segments, "--"+boundary+"--")

	return []byte(strings.Join(segments, "\r\n"))
}

func TestBuildBatch_GetsOutsideChangesets(t *testing.T) {
	t.Parallel()

	ops := []pmc.Operation{
		{Method: "GET", URL: "/api/data/v9.2/accounts?$top=1"},
		{Method: "PATCH", URL: "/api/data/v9.2/accounts(1)", Body: map[string]string{"name": "Updated"}},
		{Method: "GET", URL: "/api/data/v9.2/contacts?$top=1"},
		{Method: "POST", URL: "/api/data/v9.2/leads", Body: map[string]string{"subject": "New"}},
	}

	boundary, payload, err := pmc.BuildBatch(ops)
	require.NoError(t, err)

	text := string(payload)
	parts := splitBatchParts(text, boundary)
	require.Len(t, parts, 4)

	assert.True(t, strings.HasPrefix(parts[0], "Content-Type: application/http"))
	assert.Contains(t, parts[0], "GET /api/data/v9.2/accounts?$top=1 HTTP/1.1")

	assert.True(t, strings.HasPrefix(parts[1], "Content-Type: multipart/mixed; boundary="))
	assert.Contains(t, parts[1], "PATCH /api/data/v9.2/accounts(1) HTTP/1.1")
	assert.NotContains(t, parts[1], "GET")

	assert.True(t, strings.HasPrefix(parts[2], "Content-Type: application/http"))
	assert.Contains(t, parts[2], "GET /api/data/v9.2/contacts?$top=1 HTTP/1.1")

	assert.True(t, strings.HasPrefix(parts[3], "Content-Type: multipart/mixed; boundary="))
	assert.Contains(t, parts[3], "POST /api/data/v9.2/leads HTTP/1.1")

	for _, part := range parts {
		if strings.HasPrefix(part, "Content-Type: application/http") {
			assert.NotContains(t, part, "--changeset")
		}
	}
}

func TestBuildBatch_Grouping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		methods        []string
		wantChangesets int
		wantStandalone int
	}{
		{"two gets", []string{"GET", "GET"}, 0, 2},
		{"two posts", []string{"POST", "POST"}, 1, 0},
		{"post get post", []string{"POST", "GET", "POST"}, 2, 1},
		{"writes only", []string{"PATCH", "DELETE", "POST"}, 1, 0},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			ops := make([]pmc.Operation, len(testCase.methods))
			for i, method := range testCase.methods {
				ops[i] = pmc.Operation{Method: method, URL: fmt.Sprintf("/api/data/v9.2/things(%d)", i)}
			}

			boundary, payload, err := pmc.BuildBatch(ops)
			require.NoError(t, err)

			parts := splitBatchParts(string(payload), boundary)
			require.Len(t, parts, testCase.wantChangesets+testCase.wantStandalone)

			changesets := 0
			standalone := 0

			for _, part := range parts {
				if strings.HasPrefix(part, "Content-Type: multipart/mixed; boundary=") {
					changesets++
				} else {
					standalone++
				}
			}

			assert.Equal(t, testCase.wantChangesets, changesets)
			assert.Equal(t, testCase.wantStandalone, standalone)
		})
	}
}

func TestBuildBatch_ChangesetInnerParts(t *testing.T) {
	t.Parallel()

	ops := []pmc.Operation{
		{Method: "POST", URL: "/api/data/v9.2/leads", Body: map[string]string{"subject": "a"}},
		{Method: "POST", URL: "/api/data/v9.2/leads", Body: map[string]string{"subject": "b"}},
	}

	boundary, payload, err := pmc.BuildBatch(ops)
	require.NoError(t, err)

	parts := splitBatchParts(string(payload), boundary)
	require.Len(t, parts, 1)

	csBoundary := strings.TrimSpace(strings.SplitN(parts[0], "boundary=", 2)[1])
	csBoundary = strings.SplitN(csBoundary, "\r\n", 2)[0]
	inner := splitBatchParts(parts[0], csBoundary)
	require.Len(t, inner, 2)

	assert.Contains(t, inner[0], `{"subject":"a"}`)
	assert.Contains(t, inner[1], `{"subject":"b"}`)
}

func TestBuildBatch_ContentIDsSequential(t *testing.T) {
	t.Parallel()

	ops := []pmc.Operation{
		{Method: "POST", URL: "/api/data/v9.2/a"},
		{Method: "GET", URL: "/api/data/v9.2/b"},
		{Method: "PATCH", URL: "/api/data/v9.2/c(1)"},
		{Method: "GET", URL: "/api/data/v9.2/d"},
	}

	_, payload, err := pmc.BuildBatch(ops)
	require.NoError(t, err)

	text := string(payload)
	for id := 1; id <= 4; id++ {
		assert.Contains(t, text, fmt.Sprintf("Content-ID: %d", id))
	}

	// Counter is shared across standalone and nested parts in caller order.
	assert.Less(t,
		strings.Index(text, "Content-ID: 1"),
		strings.Index(text, "Content-ID: 2"))
	assert.Less(t,
		strings.Index(text, "Content-ID: 2"),
		strings.Index(text, "Content-ID: 3"))
}

func TestBuildBatch_FreshBoundaryPerCall(t *testing.T) {
	t.Parallel()

	ops := []pmc.Operation{{Method: "GET", URL: "/api/data/v9.2/accounts"}}

	first, _, err := pmc.BuildBatch(ops)
	require.NoError(t, err)

	second, _, err := pmc.BuildBatch(ops)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestBuildBatch_ClosingMarker(t *testing.T) {
	t.Parallel()

	boundary, payload, err := pmc.BuildBatch([]pmc.Operation{{Method: "GET", URL: "/x"}})
	require.NoError(t, err)
	assert.Contains(t, string(payload), "--"+boundary+"--")
}

func TestBuildBatch_Errors(t *testing.T) {
	t.Parallel()

	_, _, err := pmc.BuildBatch([]pmc.Operation{{Method: "PUT", URL: "/x"}})
	require.ErrorIs(t, err, pmc.ErrUnsupportedMethod)

	_, _, err = pmc.BuildBatch([]pmc.Operation{{Method: "GET"}})
	require.ErrorIs(t, err, pmc.ErrOperationURLEmpty)

	_, _, err = pmc.BuildBatch([]pmc.Operation{{Method: "POST", URL: "/x", Body: func() {}}})
	require.Error(t, err)
}

func TestParseBatchResponse_OK(t *testing.T) {
	t.Parallel()

	boundary := "batchresponse_123"
	body := strings.Join([]string{
		"--" + boundary,
		"Content-Type: application/http",
		"Content-Transfer-Encoding: binary",
		"Content-ID: 1",
		"",
		"HTTP/1.1 201 Created",
		"",
		`{"id": "1"}`,
		"--" + boundary,
		"Content-Type: application/http",
		"Content-Transfer-Encoding: binary",
		"Content-ID: 2",
		"",
		"HTTP/1.1 400 Bad Request",
		"",
		`{"error": {"message": "oops"}}`,
		"--" + boundary + "--",
		"",
	}, "\r\n")

	results := pmc.ParseBatchResponse("multipart/mixed; boundary="+boundary, []byte(body))
	require.Len(t, results, 2)

	assert.Equal(t, 201, results[0].StatusCode)
	assert.Equal(t, "Created", results[0].Reason)
	require.NotNil(t, results[0].ContentID)
	assert.Equal(t, 1, *results[0].ContentID)
	assert.NotNil(t, results[0].JSONBody)

	assert.Equal(t, 400, results[1].StatusCode)
	assert.Equal(t, "Bad Request", results[1].Reason)
	require.NotNil(t, results[1].ContentID)
	assert.Equal(t, 2, *results[1].ContentID)
}

func TestParseBatchResponse_NoBoundary(t *testing.T) {
	t.Parallel()

	results := pmc.ParseBatchResponse("application/json", []byte("not multipart"))
	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].StatusCode)
	assert.Equal(t, pmc.ReasonNoBoundary, results[0].Reason)
	assert.Equal(t, "not multipart", results[0].TextBody)
}

func TestParseBatchResponse_MalformedPart(t *testing.T) {
	t.Parallel()

	boundary := "batchresponse_bad"
	body := strings.Join([]string{
		"--" + boundary,
		"garbage with no status line at all",
		"--" + boundary,
		"Content-Type: application/http",
		"Content-ID: 2",
		"",
		"HTTP/1.1 204 No Content",
		"",
		"",
		"--" + boundary + "--",
	}, "\r\n")

	results := pmc.ParseBatchResponse("multipart/mixed; boundary="+boundary, []byte(body))
	require.Len(t, results, 2)

	assert.Equal(t, 0, results[0].StatusCode)
	assert.Equal(t, pmc.ReasonUnknown, results[0].Reason)
	assert.Nil(t, results[0].ContentID)

	assert.Equal(t, 204, results[1].StatusCode)
	assert.Equal(t, "No Content", results[1].Reason)
}

func TestParseBatchResponse_NonJSONBody(t *testing.T) {
	t.Parallel()

	boundary := "batchresponse_text"
	body := strings.Join([]string{
		"--" + boundary,
		"Content-Type: application/http",
		"Content-ID: 1",
		"",
		"HTTP/1.1 200 OK",
		"",
		"plain text, not json",
		"--" + boundary + "--",
	}, "\r\n")

	results := pmc.ParseBatchResponse("multipart/mixed; boundary="+boundary, []byte(body))
	require.Len(t, results, 1)
	assert.Equal(t, 200, results[0].StatusCode)
	assert.Nil(t, results[0].JSONBody)
	assert.Contains(t, results[0].TextBody, "plain text, not json")
}

func TestParseBatchResponse_CaseInsensitiveHeaders(t *testing.T) {
	t.Parallel()

	boundary := "batchresponse_case"
	body := strings.Join([]string{
		"--" + boundary,
		"content-type: application/http",
		"content-id: 7",
		"",
		"HTTP/1.1 200 OK",
		"",
		"{}",
		"--" + boundary + "--",
	}, "\r\n")

	results := pmc.ParseBatchResponse("Multipart/Mixed; BOUNDARY="+boundary, []byte(body))
	require.Len(t, results, 1)
	require.NotNil(t, results[0].ContentID)
	assert.Equal(t, 7, *results[0].ContentID)
}

func TestParseBatchResponse_BodyAfterEmbeddedHeaders(t *testing.T) {
	t.Parallel()

	boundary := "batchresponse_hdrs"
	body := strings.Join([]string{
		"--" + boundary,
		"Content-Type: application/http",
		"Content-ID: 1",
		"",
		"HTTP/1.1 200 OK",
		"OData-Version: 4.0",
		"Content-Type: application/json; odata.metadata=minimal",
		"",
		`{"value": []}`,
		"--" + boundary + "--",
	}, "\r\n")

	results := pmc.ParseBatchResponse("multipart/mixed; boundary="+boundary, []byte(body))
	require.Len(t, results, 1)
	assert.Equal(t, 200, results[0].StatusCode)
	assert.NotNil(t, results[0].JSONBody)
	assert.Contains(t, results[0].TextBody, `"value"`)
}
