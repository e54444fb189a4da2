package falcon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/go-openapi/runtime"
	"golang.org/x/oauth2"
)

// Error kinds. Every error returned by Client wraps exactly one of these.
var (
	ErrAuth        = errors.New("authentication failed")
	ErrRateLimited = errors.New("rate limited")
	ErrNetwork     = errors.New("network failure")
	ErrAPI         = errors.New("api error")
)

// CallError describes a failed API operation.
type CallError struct {
	Kind error  // One of ErrAuth, ErrRateLimited, ErrNetwork, ErrAPI
	Err  error  // Underlying SDK or transport error
	Op   string // SDK operation name, e.g. QueryDevicesByFilter
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *CallError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Kind returns the error kind wrapped by err, or nil when err did not come from Client.
func Kind(err error) error {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return nil
}

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrNetwork)
}

// statusCoder is implemented by the typed responses go-swagger generates for
// documented non-2xx codes (e.g. QueryDevicesByFilterForbidden).
type statusCoder interface {
	Code() int
}

// classify wraps err in a CallError with the matching kind.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CallError
	if errors.As(err, &ce) {
		return err
	}
	return &CallError{Op: op, Kind: kindOf(err), Err: err}
}

func kindOf(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		// Token endpoint throttling is still throttling.
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode == http.StatusTooManyRequests {
			return ErrRateLimited
		}
		return ErrAuth
	}

	var apiErr *runtime.APIError
	if errors.As(err, &apiErr) {
		return kindForStatus(apiErr.Code)
	}

	var coded statusCoder
	if errors.As(err, &coded) {
		return kindForStatus(coded.Code())
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrNetwork
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ErrNetwork
	}

	return ErrAPI
}

func kindForStatus(code int) error {
	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ErrAuth
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	case code >= http.StatusInternalServerError:
		return ErrNetwork
	default:
		return ErrAPI
	}
}
