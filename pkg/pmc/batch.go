package pmc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Wire format constants for multipart batch payloads.
const (
	batchBoundaryPrefix     = "batch_"
	changesetBoundaryPrefix = "changeset_"
	crlf                    = "\r\n"
)

// BatchContentType returns the request Content-Type header value for a
// payload built with the given boundary.
func BatchContentType(boundary string) string {
	return "multipart/mixed; boundary=" + boundary
}

// isWriteMethod reports whether the method belongs inside a changeset.
// GETs are always emitted as standalone top-level parts.
func isWriteMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// BuildBatch serializes operations into one multipart/mixed batch body.
//
// Writes (POST, PATCH, DELETE) are buffered and flushed as a single
// changeset part, its own nested multipart document, immediately before any
// GET is emitted; the GET itself becomes a standalone top-level part.
// Trailing writes are flushed after the last operation. This preserves the
// caller-specified relative ordering between reads and writes while keeping
// write groups atomic. Content-IDs are assigned from one strictly-increasing
// counter shared across all parts, nested or not, starting at 1.
//
// It returns the top-level boundary token (for the request's Content-Type
// header) and the encoded body. Errors are reserved for programmer mistakes:
// an unknown method, an empty URL, or a body that cannot be marshaled.
func BuildBatch(ops []Operation) (string, []byte, error) {
	boundary := batchBoundaryPrefix + uuid.NewString()

	var lines []string

	contentID := 0
	var buffered []Operation

	flush := func() {
		if len(buffered) == 0 {
			return
		}

		csBoundary := changesetBoundaryPrefix + uuid.NewString()

		lines = append(lines,
			"--"+boundary,
			"Content-Type: multipart/mixed; boundary="+csBoundary,
			"")

		for _, op := range buffered {
			contentID++
			lines = append(lines, "--"+csBoundary)
			lines = append(lines, encodePart(op, contentID)...)
			lines = append(lines, "")
		}

		lines = append(lines, "--"+csBoundary+"--", "")
		buffered = buffered[:0]
	}

	for i, op := range ops {
		if op.URL == "" {
			return "", nil, fmt.Errorf("operation %d: %w", i, ErrOperationURLEmpty)
		}

		switch {
		case isWriteMethod(op.Method):
			if _, err := marshalOperationBody(op); err != nil {
				return "", nil, fmt.Errorf("operation %d: %w", i, err)
			}

			buffered = append(buffered, op)
		case op.Method == http.MethodGet:
			flush()
			contentID++
			lines = append(lines, "--"+boundary)
			lines = append(lines, encodePart(op, contentID)...)
			lines = append(lines, "")
		default:
			return "", nil, fmt.Errorf("operation %d: %w: %q", i, ErrUnsupportedMethod, op.Method)
		}
	}

	flush()

	lines = append(lines, "--"+boundary+"--", "")

	return boundary, []byte(strings.Join(lines, crlf)), nil
}

// encodePart renders one application/http part: part headers, a blank line,
// then the synthetic embedded request.
func encodePart(op Operation, contentID int) []string {
	body, _ := marshalOperationBody(op)

	return []string{
		"Content-Type: application/http",
		"Content-Transfer-Encoding: binary",
		"Content-ID: " + strconv.Itoa(contentID),
		"",
		op.Method + " " + op.URL + " HTTP/1.1",
		"Content-Type: application/json; charset=utf-8",
		"",
		body,
	}
}

func marshalOperationBody(op Operation) (string, error) {
	if op.Body == nil {
		return "", nil
	}

	data, err := json.Marshal(op.Body)
	if err != nil {
		return "", fmt.Errorf("marshaling operation body: %w", err)
	}

	return string(data), nil
}

var (
	boundaryRe  = regexp.MustCompile(`(?i)boundary=([\w.\-]+)`)
	contentIDRe = regexp.MustCompile(`(?i)Content-ID:\s*(\d+)`)
	statusRe    = regexp.MustCompile(`HTTP/\d\.\d[ \t]+(\d{3})[ \t]*([^\r\n]*)`)
	blankLineRe = regexp.MustCompile(`\r?\n\r?\n`)
)

// ParseBatchResponse parses a multipart/mixed batch response into one result
// per part, in arrival order. Arrival order is not guaranteed to match
// request order; correlation is the coordinator's job.
//
// Malformed input never produces an error. A content type without a boundary
// yields a single NoBoundary sentinel carrying the raw body; a part without
// a recognizable status line degrades to status 0 / Unknown; a body that is
// not JSON keeps its text form only. OperationIndex is -1 on every result
// until the coordinator assigns it.
func ParseBatchResponse(contentType string, body []byte) []OperationResult {
	match := boundaryRe.FindStringSubmatch(contentType)
	if match == nil {
		return []OperationResult{{
			OperationIndex: -1,
			Reason:         ReasonNoBoundary,
			TextBody:       string(body),
		}}
	}

	boundary := match[1]
	results := []OperationResult{}

	for _, raw := range strings.Split(string(body), "--"+boundary) {
		part := strings.TrimSpace(raw)
		if part == "" || part == "--" {
			continue
		}

		results = append(results, parsePart(raw))
	}

	return results
}

// parsePart extracts Content-ID, status line, and body text from one part.
func parsePart(part string) OperationResult {
	result := OperationResult{
		OperationIndex: -1,
		Reason:         ReasonUnknown,
	}

	if m := contentIDRe.FindStringSubmatch(part); m != nil {
		id, err := strconv.Atoi(m[1])
		if err == nil {
			result.ContentID = &id
		}
	}

	rest := part

	if loc := statusRe.FindStringSubmatchIndex(part); loc != nil {
		code, _ := strconv.Atoi(part[loc[2]:loc[3]])
		result.StatusCode = code

		reason := strings.TrimSpace(part[loc[4]:loc[5]])
		if reason != "" {
			result.Reason = reason
		}

		rest = part[loc[1]:]
	}

	if pieces := blankLineRe.Split(rest, 2); len(pieces) > 1 {
		result.TextBody = pieces[1]
	}

	if trimmed := strings.TrimSpace(result.TextBody); trimmed != "" {
		var parsed interface{}
		if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
			result.JSONBody = parsed
		}
	}

	return result
}
