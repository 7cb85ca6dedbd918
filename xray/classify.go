package xray

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"

	"github.com/shogo82148/xray-httpclient-go/xray/schema"
)

// Outcome is the classification of a traced call.
type Outcome int

const (
	// OutcomeOK is no error.
	OutcomeOK Outcome = iota

	// OutcomeError is a client error, e.g. 4xx status codes.
	OutcomeError

	// OutcomeThrottle is a rate-limited client error, e.g. 429 Too Many Requests.
	// It implies OutcomeError.
	OutcomeThrottle

	// OutcomeFault is a server fault, e.g. 5xx status codes.
	OutcomeFault
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeError:
		return "error"
	case OutcomeThrottle:
		return "throttle"
	case OutcomeFault:
		return "fault"
	}
	return "unknown"
}

// ClassifyStatus maps an HTTP status code to the outcome.
//
//   - 429: throttle
//   - 400-499: error
//   - 500 or more: fault
//   - others: ok
func ClassifyStatus(code int) Outcome {
	switch {
	case code == http.StatusTooManyRequests:
		return OutcomeThrottle
	case code >= 400 && code < 500:
		return OutcomeError
	case code >= 500:
		return OutcomeFault
	}
	return OutcomeOK
}

// ErrorCategory is the stable tag recorded as the type of the exceptions.
type ErrorCategory string

const (
	// CategoryNameResolution is a failure of name resolution, e.g. "no such host".
	CategoryNameResolution ErrorCategory = "name-resolution-failure"

	// CategoryConnectionRefused is a refused connection.
	CategoryConnectionRefused ErrorCategory = "connection-refused"

	// CategoryInvalidTarget is a malformed target, e.g. a URL without any scheme.
	CategoryInvalidTarget ErrorCategory = "invalid-target"

	// CategoryTransport is any other error, including cancellation and timeouts.
	CategoryTransport ErrorCategory = "generic-transport-error"
)

// the messages of unexported errors in net/http that reject the target.
var invalidTargetMessages = []string{
	"unsupported protocol scheme",
	"no Host in request URL",
	"nil Request.URL",
	"missing protocol scheme",
	"invalid URL",
}

// ClassifyError maps a transport error to the category.
// It returns an empty string if err is nil.
func ClassifyError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return CategoryNameResolution
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return CategoryConnectionRefused
	}
	if isInvalidTarget(err) {
		return CategoryInvalidTarget
	}
	return CategoryTransport
}

func isInvalidTarget(err error) bool {
	var addrErr *net.AddrError
	if errors.As(err, &addrErr) {
		return true
	}
	var invalidAddrErr net.InvalidAddrError
	if errors.As(err, &invalidAddrErr) {
		return true
	}
	var escapeErr url.EscapeError
	if errors.As(err, &escapeErr) {
		return true
	}
	var hostErr url.InvalidHostError
	if errors.As(err, &hostErr) {
		return true
	}

	for ; err != nil; err = errors.Unwrap(err) {
		if urlErr, ok := err.(*url.Error); ok && urlErr.Op == "parse" {
			return true
		}
		msg := err.Error()
		for _, m := range invalidTargetMessages {
			if strings.Contains(msg, m) {
				return true
			}
		}
	}
	return false
}

const maxExceptionDepth = 16

// newExceptions describes err and the errors it wraps, the outermost first.
// Each exception points to the exception that caused it.
func newExceptions(err error) []schema.Exception {
	var ret []schema.Exception
	for depth := 0; err != nil && depth < maxExceptionDepth; depth++ {
		ret = append(ret, schema.Exception{
			ID:      newExceptionID(),
			Type:    string(ClassifyError(err)),
			Message: err.Error(),
		})
		err = errors.Unwrap(err)
	}
	for i := 0; i+1 < len(ret); i++ {
		ret[i].Cause = ret[i+1].ID
	}
	return ret
}
