package xrayhttp

import (
	"net"
	"net/http"
	"net/url"
	"strings"

	forwarded "github.com/shogo82148/forwarded-header"

	"github.com/shogo82148/xray-httpclient-go/internal/pattern"
	"github.com/shogo82148/xray-httpclient-go/xray"
	"github.com/shogo82148/xray-httpclient-go/xray/schema"
)

// TracingNamer is the interface for naming service node.
type TracingNamer interface {
	TracingName(r *http.Request) string
}

// FixedTracingNamer records the fixed name of service node.
type FixedTracingNamer string

// TracingName implements TracingNamer.
func (tn FixedTracingNamer) TracingName(r *http.Request) string {
	return string(tn)
}

// DynamicTracingNamer names the service node after the host of the request
// if the host matches RecognizedHosts.
type DynamicTracingNamer struct {
	// FallbackName is the name used when the host is not recognized.
	FallbackName string

	// RecognizedHosts is the wildcard pattern of the host names, e.g. "*.example.com".
	// '*' matches any characters and '?' matches a character.
	RecognizedHosts string
}

// TracingName implements TracingNamer.
func (tn DynamicTracingNamer) TracingName(r *http.Request) string {
	if host := GetHostname(r.Host); host != "" && pattern.Match(tn.RecognizedHosts, host) {
		return host
	}
	return tn.FallbackName
}

type httpTracer struct {
	tn TracingNamer
	h  http.Handler
}

// Handler wraps the provided http handler.
// It begins a segment per request, taking over the trace header of the request,
// and records the request and the response.
func Handler(tn TracingNamer, h http.Handler) http.Handler {
	return &httpTracer{
		tn: tn,
		h:  h,
	}
}

func (tracer *httpTracer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := tracer.tn.TracingName(r)
	ctx, seg := xray.BeginSegmentWithRequest(r.Context(), name, r)
	defer seg.Close()

	clientIP, fromHeader := clientIP(r)
	seg.SetHTTPRequest(&schema.HTTPRequest{
		Method:        r.Method,
		URL:           requestURL(r),
		ClientIP:      clientIP,
		XForwardedFor: fromHeader,
		UserAgent:     r.UserAgent(),
	})

	rw := &responseTracer{rw: w}
	tracer.h.ServeHTTP(rw, r.WithContext(ctx))

	status := rw.statusCode()
	seg.SetHTTPResponse(&schema.HTTPResponse{
		Status:        status,
		ContentLength: rw.size,
	})
	seg.SetOutcome(xray.ClassifyStatus(status))
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	} else if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(proto)
	}
	u := &url.URL{
		Scheme: scheme,
		Host:   r.Host,
	}
	if r.URL != nil {
		u.Path = r.URL.Path
		u.RawPath = r.URL.RawPath
		u.RawQuery = r.URL.RawQuery
	}
	return recordedURL(u)
}

// clientIP returns the address of the client,
// and whether it is read from the headers that could have been forged.
func clientIP(r *http.Request) (string, bool) {
	if values := r.Header.Values("Forwarded"); len(values) > 0 {
		if nodes, err := forwarded.Parse(values); err == nil {
			for _, f := range nodes {
				if f.For.IP.IsValid() {
					return f.For.IP.String(), true
				}
			}
		}
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first, true
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr, false
	}
	return host, false
}

// responseTracer records the status code and the size of the response.
// Optional interfaces, e.g. http.Flusher, are available via http.ResponseController.
type responseTracer struct {
	rw          http.ResponseWriter
	status      int
	size        int64
	wroteHeader bool
}

func (rw *responseTracer) Header() http.Header {
	return rw.rw.Header()
}

func (rw *responseTracer) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.rw.Write(b)
	rw.size += int64(n)
	return n, err
}

func (rw *responseTracer) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	if code >= 100 && code < 200 && code != http.StatusSwitchingProtocols {
		// informational headers may be followed by the final one.
		rw.rw.WriteHeader(code)
		return
	}
	rw.status = code
	rw.wroteHeader = true
	rw.rw.WriteHeader(code)
}

// Unwrap returns the original http.ResponseWriter for http.ResponseController.
func (rw *responseTracer) Unwrap() http.ResponseWriter {
	return rw.rw
}

func (rw *responseTracer) statusCode() int {
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}
