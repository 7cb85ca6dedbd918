// Package xrayhttp traces the HTTP requests.
//
// # HTTP Client
//
// [Client] wraps the provided [net/http.Client].
// The wrapped [net/http.Client] creates a subsegment per call, sets HTTP-specific xray fields,
// and adds the trace header to the outbound request.
//
//	client := xrayhttp.Client(nil)
//	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.com", nil)
//	if seg.AddError(err) {
//	  panic(err)
//	}
//	resp, err := client.Do(req)
//	if seg.AddError(err) {
//	  panic(err)
//	}
//	defer resp.Body.Close()
//
// [Install] wraps the transport of the client in place, and [Uninstall] restores it.
//
//	xrayhttp.Install(http.DefaultClient)
//	defer xrayhttp.Uninstall(http.DefaultClient)
//
// # HTTP Server
//
// [Handler] wraps the provided [net/http.Handler].
// The wrapped [http.Handler] begins a segment and collects information of the request.
//
//	namer := xrayhttp.FixedTracingNamer("myApp")
//	h := xrayhttp.Handler(namer, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	  w.Write([]byte("Hello, World!"))
//	}))
//	http.ListenAndServe(":8080", h)
package xrayhttp
