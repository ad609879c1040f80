package cloud

import (
	"fmt"
	"io"
	"net/http"

	"github.com/mtsgi/tasket/store"
)

// UnsupportedProviderError is returned by New for provider values it does
// not recognize.
type UnsupportedProviderError struct {
	Provider store.Provider
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported provider: %s", e.Provider)
}

// CredentialMissingError is returned when a required connection field is
// empty after decryption.
type CredentialMissingError struct {
	Field string
}

func (e *CredentialMissingError) Error() string {
	return fmt.Sprintf("missing credential: %s", e.Field)
}

// FetchError carries the status and response body of a failed remote call.
type FetchError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: remote returned %d: %s", e.Op, e.StatusCode, e.Body)
}

// ParseError wraps a failure to decode a remote response.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse response: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

const errorBodyLimit = 2048

// newFetchError drains up to errorBodyLimit bytes of the response body so
// the failure reason is preserved in the error.
func newFetchError(op string, resp *http.Response) *FetchError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	return &FetchError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
}
