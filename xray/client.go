package xray

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/shogo82148/go-retry/v2"

	"github.com/shogo82148/xray-httpclient-go/internal/envconfig"
	"github.com/shogo82148/xray-httpclient-go/xray/ctxmissing"
	"github.com/shogo82148/xray-httpclient-go/xray/sampling"
	"github.com/shogo82148/xray-httpclient-go/xray/schema"
	"github.com/shogo82148/xray-httpclient-go/xray/xraylog"
)

const emitTimeout = 100 * time.Millisecond

var header = []byte(`{"format":"json","version":1}` + "\n")
var dialer = net.Dialer{
	Timeout: emitTimeout,
}

// Emitter sends the completed segment documents off-process.
type Emitter interface {
	// Emit is called once per trace, after the root segment and
	// all of its subsegments are closed.
	Emit(ctx context.Context, doc *schema.Segment)
}

// EmitterFunc is an adapter to allow the use of ordinary functions as emitters.
type EmitterFunc func(ctx context.Context, doc *schema.Segment)

// Emit implements Emitter.
func (f EmitterFunc) Emit(ctx context.Context, doc *schema.Segment) {
	f(ctx, doc)
}

var muDefaultClient sync.RWMutex
var defaultClient = New(nil)

func getDefaultClient() *Client {
	muDefaultClient.RLock()
	defer muDefaultClient.RUnlock()
	return defaultClient
}

// Configure replaces the default client.
// The segments that are already begun keep using the previous client.
func Configure(config *Config) {
	client := New(config)
	muDefaultClient.Lock()
	defer muDefaultClient.Unlock()
	defaultClient = client
}

// Client is a client for AWS X-Ray daemon.
type Client struct {
	// the UDP address of the AWS X-Ray daemon
	udp string

	samplingStrategy   sampling.Strategy
	ctxmissingStrategy ctxmissing.Strategy
	emitter            Emitter
	policy             *retry.Policy

	pool sync.Pool

	mu   sync.Mutex
	conn net.Conn
}

// New returns a new Client.
func New(config *Config) *Client {
	client := &Client{
		udp:                config.daemonAddress(),
		samplingStrategy:   config.samplingStrategy(),
		ctxmissingStrategy: config.ctxmissingStrategy(),
		policy: &retry.Policy{
			MinDelay: 5 * time.Millisecond,
			MaxDelay: 20 * time.Millisecond,
			MaxCount: envconfig.EmitAttempts(),
		},
		pool: sync.Pool{
			New: func() interface{} {
				return new(bytes.Buffer)
			},
		},
	}
	if config != nil && config.Emitter != nil {
		client.emitter = config.Emitter
	} else {
		client.emitter = client
	}
	return client
}

// Emit sends doc to X-Ray daemon.
func (c *Client) Emit(ctx context.Context, doc *schema.Segment) {
	buf := c.pool.Get().(*bytes.Buffer)
	defer c.pool.Put(buf)
	buf.Reset()
	buf.Write(header)
	enc := json.NewEncoder(buf)
	if err := enc.Encode(doc); err != nil {
		xraylog.Errorf(ctx, "failed to encode: %v", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		if err := c.dialLocked(); err != nil {
			xraylog.Errorf(ctx, "failed to dial: %v", err)
			return
		}
	}
	if _, err := c.conn.Write(buf.Bytes()); err != nil {
		xraylog.Errorf(ctx, "failed to write: %v", err)
		// the connection may be broken. reconnect in the next emission.
		c.conn.Close()
		c.conn = nil
		return
	}
}

// dialLocked connects to the daemon. c.mu should be locked.
func (c *Client) dialLocked() error {
	ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
	defer cancel()

	return c.policy.Do(ctx, func() error {
		conn, err := dialer.DialContext(ctx, "udp", c.udp)
		if err != nil {
			return err
		}
		c.conn = conn
		return nil
	})
}

// Close closes the client.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
