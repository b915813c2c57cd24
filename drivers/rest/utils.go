package rest

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// MaxResponseSize bounds the bytes read from any single backend response.
// DRS metadata is small; anything bigger is not a DRS response.
const MaxResponseSize int64 = 16 << 20

// maxErrorBody bounds how much of an error body ends up in an error message
const maxErrorBody = 512

// ReadResponse reads a response body up to MaxResponseSize bytes
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeResponse reads a response body (up to MaxResponseSize bytes)
// and JSON-decodes it into v
func DecodeResponse(body io.Reader, v interface{}) error {
	data, err := ReadResponse(body)
	if err != nil {
		return errors.Wrap(err, "reading response body")
	}
	return json.Unmarshal(data, v)
}

// ErrorBody reads an error response body for use in a diagnostic message.
// Read errors are ignored; a partial body is still useful.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	return strings.TrimSpace(string(data))
}
