package xrayprom

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/shogo82148/xray-httpclient-go/xray"
	"github.com/shogo82148/xray-httpclient-go/xray/schema"
	"github.com/shogo82148/xray-httpclient-go/xrayhttp"
)

func TestPlugin_HandleSegment(t *testing.T) {
	p := NewPlugin(prometheus.NewRegistry())
	doc := &schema.Segment{
		Name: "root",
		Subsegments: []*schema.Segment{
			{
				Name:      "example.com",
				Namespace: "remote",
				StartTime: 1,
				EndTime:   1.5,
				HTTP:      &schema.HTTP{},
			},
			{
				Name:      "example.com",
				Namespace: "remote",
				StartTime: 1,
				EndTime:   2,
				Error:     true,
				Throttle:  true,
				HTTP:      &schema.HTTP{},
				Subsegments: []*schema.Segment{
					// not a call
					{Name: "connect", StartTime: 1, EndTime: 1.1},
				},
			},
			{
				Name:      "empty_host_error",
				StartTime: 1,
				EndTime:   1,
				Fault:     true,
				HTTP:      &schema.HTTP{},
			},
		},
	}
	p.HandleSegment(nil, doc)

	tc := []struct {
		namespace string
		outcome   string
		want      float64
	}{
		{"remote", "ok", 1},
		{"remote", "throttle", 1},
		{"remote", "error", 0},
		{"local", "fault", 1},
	}
	for _, tt := range tc {
		got := testutil.ToFloat64(p.calls.WithLabelValues(tt.namespace, tt.outcome))
		if got != tt.want {
			t.Errorf("%s/%s: want %f, got %f", tt.namespace, tt.outcome, tt.want, got)
		}
	}
	if got := testutil.CollectAndCount(p.duration); got != 2 {
		t.Errorf("want 2 series, got %d", got)
	}
}

func TestPlugin_Client(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPlugin(reg)
	xray.AddPlugin(p)
	defer xray.RemovePlugin(p)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fault" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	ctx, td := xray.NewTestDaemon()
	defer td.Close()

	func() {
		ctx, root := xray.BeginSegment(ctx, "test")
		defer root.Close()
		client := xrayhttp.Client(ts.Client())
		for _, path := range []string{"/ok", "/fault", "/ok"} {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+path, nil)
			if err != nil {
				t.Fatal(err)
			}
			resp, err := client.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
		}
	}()
	if _, err := td.Recv(); err != nil {
		t.Fatal(err)
	}

	if got := testutil.ToFloat64(p.calls.WithLabelValues("remote", "ok")); got != 2 {
		t.Errorf("want 2, got %f", got)
	}
	if got := testutil.ToFloat64(p.calls.WithLabelValues("remote", "fault")); got != 1 {
		t.Errorf("want 1, got %f", got)
	}
}
