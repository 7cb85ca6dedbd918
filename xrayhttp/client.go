package xrayhttp

import (
	"context"
	"net/http"

	"github.com/shogo82148/xray-httpclient-go/xray"
	"github.com/shogo82148/xray-httpclient-go/xray/schema"
	"github.com/shogo82148/xray-httpclient-go/xray/xraylog"
)

const emptyHostRename = "empty_host_error"

// Option configures the round tripper.
type Option func(*roundtripper)

// WithSubsegmentNamer overwrites the name of the subsegments.
// If namer returns an empty string, the host name of the request is used.
func WithSubsegmentNamer(namer func(*http.Request) string) Option {
	return func(rt *roundtripper) {
		rt.namer = namer
	}
}

// WithoutClientTrace disables the subsegments for
// connecting, name resolution, dialing, TLS handshakes and writing requests.
func WithoutClientTrace() Option {
	return func(rt *roundtripper) {
		rt.noClientTrace = true
	}
}

// Client creates a shallow copy of the provided http client,
// defaulting to http.DefaultClient, with roundtripper wrapped
// with xrayhttp.RoundTripper.
func Client(client *http.Client, opts ...Option) *http.Client {
	if client == nil {
		client = http.DefaultClient
	}
	ret := *client
	ret.Transport = RoundTripper(ret.Transport, opts...)
	return &ret
}

// Install wraps the transport of client in place,
// defaulting to http.DefaultClient.
// Installing twice does nothing.
// It is not safe to call Install while the client is in use.
func Install(client *http.Client, opts ...Option) {
	if client == nil {
		client = http.DefaultClient
	}
	client.Transport = RoundTripper(client.Transport, opts...)
}

// Uninstall restores the transport of client that is replaced by Install,
// defaulting to http.DefaultClient.
// Uninstalling the client that is not installed does nothing.
func Uninstall(client *http.Client) {
	if client == nil {
		client = http.DefaultClient
	}
	client.Transport = Unwrap(client.Transport)
}

// RoundTripper wraps the provided http roundtripper,
// sets HTTP-specific xray fields, and adds the trace header to the outbound request.
// A nil rt means http.DefaultTransport.
// The round tripper that is already wrapped is returned as is.
func RoundTripper(rt http.RoundTripper, opts ...Option) http.RoundTripper {
	if _, ok := rt.(*roundtripper); ok {
		// X-Ray SDK is already installed
		return rt
	}
	ret := &roundtripper{
		base: rt,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Unwrap returns the round tripper wrapped by RoundTripper.
// If rt is not wrapped, it returns rt.
func Unwrap(rt http.RoundTripper) http.RoundTripper {
	if t, ok := rt.(*roundtripper); ok {
		return t.base
	}
	return rt
}

type roundtripper struct {
	// base may be nil. it means http.DefaultTransport.
	base http.RoundTripper

	namer         func(*http.Request) string
	noClientTrace bool
}

func (rt *roundtripper) RoundTrip(req *http.Request) (*http.Response, error) {
	base := rt.base
	if base == nil {
		base = http.DefaultTransport
	}

	seg, out, cleanup := rt.begin(req)
	if seg == nil {
		return base.RoundTrip(req)
	}
	defer seg.Close()
	if cleanup != nil {
		defer cleanup()
	}
	if out == nil {
		out = req
	}

	resp, err := base.RoundTrip(out)
	rt.end(req.Context(), seg, resp, err)
	return resp, err
}

// begin opens the subsegment of the call.
// If it panics, seg and cleanup that are already created are returned.
func (rt *roundtripper) begin(req *http.Request) (seg *xray.Segment, out *http.Request, cleanup func()) {
	ctx := req.Context()
	defer recoverInstrumentation(ctx, "beginning subsegment")

	name, hasHost := rt.subsegmentName(req)
	ctx, seg = xray.BeginSubsegment(ctx, name)
	if hasHost {
		seg.SetNamespace("remote")
	}

	if seg.IsSampled() {
		method := req.Method
		if method == "" {
			method = http.MethodGet
		}
		seg.SetHTTPRequest(&schema.HTTPRequest{
			Method: method,
			URL:    recordedURL(req.URL),
		})
		if !rt.noClientTrace {
			ctx, cleanup = withClientTrace(ctx)
		}
	}

	out = req.Clone(ctx)
	if out.Header == nil {
		out.Header = make(http.Header)
	}
	if header := xray.DownstreamHeader(ctx).String(); header != "" {
		out.Header.Set(xray.TraceIDHeaderKey, header)
	}
	return seg, out, cleanup
}

// end records the result of the call.
func (rt *roundtripper) end(ctx context.Context, seg *xray.Segment, resp *http.Response, err error) {
	defer recoverInstrumentation(ctx, "recording response")

	if err != nil {
		seg.AddError(err)
		return
	}
	if resp == nil {
		return
	}
	if seg.IsSampled() {
		responseInfo := &schema.HTTPResponse{
			Status: resp.StatusCode,
		}
		if resp.ContentLength > 0 {
			responseInfo.ContentLength = resp.ContentLength
		}
		seg.SetHTTPResponse(responseInfo)
	}
	seg.SetOutcome(xray.ClassifyStatus(resp.StatusCode))
}

// subsegmentName returns the name of the subsegment and whether the request has any host.
func (rt *roundtripper) subsegmentName(req *http.Request) (string, bool) {
	if rt.namer != nil {
		if name := rt.callNamer(req); name != "" {
			return name, true
		}
	}

	host := req.Host
	if host == "" && req.URL != nil {
		host = req.URL.Host
	}
	if name := GetHostname(host); name != "" {
		return name, true
	}

	// best effort for the request without any host.
	if req.URL != nil {
		if name := GetHostname(req.URL.String()); name != "" {
			return name, true
		}
	}
	return emptyHostRename, false
}

func (rt *roundtripper) callNamer(req *http.Request) (name string) {
	defer recoverInstrumentation(req.Context(), "naming subsegment")
	return rt.namer(req)
}

func recoverInstrumentation(ctx context.Context, step string) {
	if err := recover(); err != nil {
		xraylog.Errorf(ctx, "xrayhttp: panic in %s: %v", step, err)
	}
}
