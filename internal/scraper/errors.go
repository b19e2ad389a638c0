package scraper

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

var (
	// ErrExhaustedRetries is returned once a retry or discovery-cycle ceiling is
	// reached. It is joined with the last underlying failure.
	ErrExhaustedRetries = errors.New("retries exhausted")

	// ErrPaginationStructure means the landing page has no usable pagination
	// control. It ends the crawl attempt.
	ErrPaginationStructure = errors.New("pagination control not found")

	errFieldNotFound = errors.New("element not found")
	errLabelMismatch = errors.New("label mismatch")
)

type FailureClass int

const (
	FailureFatal FailureClass = iota
	FailureConnection
	FailureTimeout
)

func (c FailureClass) String() string {
	switch c {
	case FailureConnection:
		return "connection"
	case FailureTimeout:
		return "timeout"
	default:
		return "fatal"
	}
}

// RenderError wraps a failure of the rendering agent.
type RenderError struct {
	Op  string
	URL string
	Err error
}

func (e *RenderError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("render %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("render %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// ClassifyTransport sorts a plain HTTP failure into the class that decides its
// backoff. Cancellation is never retried.
func ClassifyTransport(err error) FailureClass {
	if err == nil || errors.Is(err, context.Canceled) {
		return FailureFatal
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return FailureTimeout
	}
	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return FailureConnection
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return FailureConnection
	}
	if isTLSFailure(err) {
		return FailureConnection
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return FailureConnection
	}
	return FailureFatal
}

// isTLSFailure matches handshake and certificate errors, which net/http
// returns without a *net.OpError around them.
func isTLSFailure(err error) bool {
	var (
		verifyErr    *tls.CertificateVerificationError
		authorityErr x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidErr   x509.CertificateInvalidError
		headerErr    tls.RecordHeaderError
		alertErr     tls.AlertError
	)
	return errors.As(err, &verifyErr) ||
		errors.As(err, &authorityErr) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidErr) ||
		errors.As(err, &headerErr) ||
		errors.As(err, &alertErr)
}

// ClassifyRender treats every automation failure as connection class.
func ClassifyRender(err error) FailureClass {
	if err == nil || errors.Is(err, context.Canceled) {
		return FailureFatal
	}
	return FailureConnection
}

// IsTransient reports whether err (or anything it wraps) is a connection,
// timeout or rendering failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var re *RenderError
	if errors.As(err, &re) {
		return !errors.Is(err, context.Canceled)
	}
	return ClassifyTransport(err) != FailureFatal
}
