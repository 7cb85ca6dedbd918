package xray

import (
	"context"
	"strings"
	"unicode"

	"github.com/shogo82148/xray-httpclient-go/internal/envconfig"
	"github.com/shogo82148/xray-httpclient-go/xray/ctxmissing"
	"github.com/shogo82148/xray-httpclient-go/xray/sampling"
	"github.com/shogo82148/xray-httpclient-go/xray/xraylog"
)

// Config is a configure for connecting AWS X-Ray daemon
type Config struct {
	// DaemonAddress is the address for connecting AWS X-Ray daemon.
	// Its overwrites the address from AWS_XRAY_DAEMON_ADDRESS environment value.
	// By default, the SDK sends the trace data to 127.0.0.1:2000 over UDP.
	// The format is "address:port" or "tcp:address:port udp:address:port";
	// the TCP address is accepted but not used.
	DaemonAddress string

	// SamplingStrategy makes the sampling decisions of the root segments.
	// By default, all segments are sampled.
	SamplingStrategy sampling.Strategy

	// ContextMissingStrategy is called when a subsegment is begun without any segment.
	// It overwrites the strategy from AWS_XRAY_CONTEXT_MISSING environment value.
	ContextMissingStrategy ctxmissing.Strategy

	// Emitter receives the completed segments.
	// By default, they are sent to the daemon.
	Emitter Emitter
}

const defaultDaemonAddress = "127.0.0.1:2000"

// daemonAddress returns the UDP address that the trace data is sent to.
func (c *Config) daemonAddress() string {
	var addr string
	if c != nil && c.DaemonAddress != "" {
		addr = c.DaemonAddress
	} else {
		addr = envconfig.DaemonAddress()
	}
	return parseDaemonAddress(addr)
}

// parseDaemonAddress parses the value of AWS_XRAY_DAEMON_ADDRESS.
// The TCP address is for the centralized sampling, so "tcp:" entries are skipped.
func parseDaemonAddress(addr string) string {
	udp := defaultDaemonAddress
	for _, endpoint := range strings.FieldsFunc(addr, unicode.IsSpace) {
		switch {
		case strings.HasPrefix(endpoint, "tcp:"):
		case strings.HasPrefix(endpoint, "udp:"):
			udp = endpoint[len("udp:"):]
		default:
			udp = endpoint
		}
	}
	return udp
}

func (c *Config) samplingStrategy() sampling.Strategy {
	if c != nil && c.SamplingStrategy != nil {
		return c.SamplingStrategy
	}
	return sampling.NewAllStrategy()
}

func (c *Config) ctxmissingStrategy() ctxmissing.Strategy {
	if c != nil && c.ContextMissingStrategy != nil {
		return c.ContextMissingStrategy
	}
	s, err := ctxmissing.New(envconfig.ContextMissingStrategy())
	if err != nil {
		xraylog.Warnf(context.Background(), "%v, fallback to %s", err, ctxmissing.NameLogError)
		return ctxmissing.NewLogErrorStrategy()
	}
	return s
}
