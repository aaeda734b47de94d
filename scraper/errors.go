package scraper

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-bursaries/models"
	"github.com/aluiziolira/go-scrape-bursaries/parser"
)

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrHTTPStatus indicates a non-2xx response.
type ErrHTTPStatus struct {
	StatusCode int
	Err        error
}

func (e ErrHTTPStatus) Error() string {
	return fmt.Errorf("http status %d: %w", e.StatusCode, e.Err).Error()
}

func (e ErrHTTPStatus) Unwrap() error {
	return e.Err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var status ErrHTTPStatus
	if errors.As(err, &status) {
		switch status.StatusCode {
		case 403:
			return "forbidden"
		case 404:
			return "not_found"
		case 429:
			return "rate_limited"
		}
		return "http_status"
	}
	var structural parser.ErrStructural
	if errors.As(err, &structural) {
		return "structural"
	}
	var parse parser.ErrParse
	if errors.As(err, &parse) {
		return "parse"
	}
	return "other"
}

// sentinelFor maps a detail fetch failure onto the sentinel written to output.
func sentinelFor(err error) models.Kind {
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return models.KindTimeout
	}
	var status ErrHTTPStatus
	if errors.As(err, &status) {
		return models.KindCheckLink
	}
	return models.KindError
}
