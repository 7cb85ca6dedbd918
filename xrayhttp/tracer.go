package xrayhttp

import (
	"context"
	"crypto/tls"
	"net/http/httptrace"
	"sync"

	"github.com/shogo82148/xray-httpclient-go/xray"
)

// clientTracer records the phases of a round trip as subsegments
// of the subsegment of the call.
type clientTracer struct {
	mu     sync.Mutex
	ctx    context.Context
	closed bool

	connCtx context.Context
	connSeg *xray.Segment
	dnsSeg  *xray.Segment
	tlsSeg  *xray.Segment
	reqSeg  *xray.Segment

	// the dialer may race the connections to the addresses.
	dialSegs map[string]*xray.Segment
}

func (t *clientTracer) GetConn(hostPort string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.connSeg != nil {
		return
	}
	t.connCtx, t.connSeg = xray.BeginSubsegment(t.ctx, "connect")
}

func (t *clientTracer) GotConn(info httptrace.GotConnInfo) {
	type connInfo struct {
		Reused   bool  `json:"reused"`
		WasIdle  bool  `json:"was_idle"`
		IdleTime int64 `json:"idle_time_ns,omitempty"`
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if t.connSeg != nil {
		t.connSeg.AddMetadataToNamespace("http", "connection", connInfo{
			Reused:   info.Reused,
			WasIdle:  info.WasIdle,
			IdleTime: info.IdleTime.Nanoseconds(),
		})
		t.connSeg.Close()
		t.connCtx, t.connSeg = nil, nil
	}
	if t.reqSeg == nil {
		_, t.reqSeg = xray.BeginSubsegment(t.ctx, "request")
	}
}

func (t *clientTracer) DNSStart(info httptrace.DNSStartInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.connSeg == nil {
		return
	}
	_, t.dnsSeg = xray.BeginSubsegment(t.connCtx, "dns")
}

func (t *clientTracer) DNSDone(info httptrace.DNSDoneInfo) {
	type dnsDoneInfo struct {
		Addresses []string `json:"addresses"`
		Coalesced bool     `json:"coalesced"`
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dnsSeg == nil {
		return
	}
	addresses := make([]string, 0, len(info.Addrs))
	for _, addr := range info.Addrs {
		addresses = append(addresses, addr.String())
	}
	t.dnsSeg.AddMetadataToNamespace("http", "dns", dnsDoneInfo{
		Addresses: addresses,
		Coalesced: info.Coalesced,
	})
	t.dnsSeg.AddError(info.Err)
	t.dnsSeg.Close()
	t.dnsSeg = nil
	if info.Err != nil {
		t.failConnLocked()
	}
}

func (t *clientTracer) ConnectStart(network, addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.connSeg == nil {
		return
	}
	if t.dialSegs == nil {
		t.dialSegs = make(map[string]*xray.Segment)
	}
	key := network + " " + addr
	if _, ok := t.dialSegs[key]; ok {
		return
	}
	_, t.dialSegs[key] = xray.BeginSubsegment(t.connCtx, "dial")
}

func (t *clientTracer) ConnectDone(network, addr string, err error) {
	type dialInfo struct {
		Network string `json:"network"`
		Address string `json:"address"`
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	key := network + " " + addr
	seg, ok := t.dialSegs[key]
	if !ok {
		return
	}
	delete(t.dialSegs, key)
	seg.AddMetadataToNamespace("http", "dial", dialInfo{
		Network: network,
		Address: addr,
	})
	seg.AddError(err)
	seg.Close()
	if err != nil && len(t.dialSegs) == 0 {
		t.failConnLocked()
	}
}

func (t *clientTracer) TLSHandshakeStart() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.connSeg == nil {
		return
	}
	_, t.tlsSeg = xray.BeginSubsegment(t.connCtx, "tls")
}

func (t *clientTracer) TLSHandshakeDone(state tls.ConnectionState, err error) {
	type tlsInfo struct {
		Version            string `json:"version,omitempty"`
		DidResume          bool   `json:"did_resume,omitempty"`
		NegotiatedProtocol string `json:"negotiated_protocol,omitempty"`
		CipherSuite        string `json:"cipher_suite,omitempty"`
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tlsSeg == nil {
		return
	}
	if !t.tlsSeg.AddError(err) {
		t.tlsSeg.AddMetadataToNamespace("http", "tls", tlsInfo{
			Version:            tls.VersionName(state.Version),
			DidResume:          state.DidResume,
			NegotiatedProtocol: state.NegotiatedProtocol,
			CipherSuite:        tls.CipherSuiteName(state.CipherSuite),
		})
	}
	t.tlsSeg.Close()
	t.tlsSeg = nil
	if err != nil {
		t.failConnLocked()
	}
}

func (t *clientTracer) WroteRequest(info httptrace.WroteRequestInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.reqSeg == nil {
		return
	}
	t.reqSeg.AddError(info.Err)
	t.reqSeg.Close()
	t.reqSeg = nil
}

// failConnLocked closes the connect subsegment as a fault. t.mu must be locked.
func (t *clientTracer) failConnLocked() {
	if t.connSeg == nil {
		return
	}
	t.connSeg.SetFault()
	t.connSeg.Close()
	t.connCtx, t.connSeg = nil, nil
}

// close closes the subsegments that are still open,
// and ignores the hooks that are called after the round trip.
func (t *clientTracer) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for _, seg := range t.dialSegs {
		seg.Close()
	}
	for _, seg := range []*xray.Segment{t.dnsSeg, t.tlsSeg, t.connSeg, t.reqSeg} {
		if seg != nil {
			seg.Close()
		}
	}
	t.connCtx = nil
	t.connSeg, t.dnsSeg, t.tlsSeg, t.reqSeg = nil, nil, nil, nil
	t.dialSegs = nil
}

// withClientTrace returns a new context that traces the round trip,
// and the function that closes the remaining subsegments.
func withClientTrace(ctx context.Context) (context.Context, func()) {
	t := &clientTracer{
		ctx: ctx,
	}
	trace := &httptrace.ClientTrace{
		GetConn:           t.GetConn,
		GotConn:           t.GotConn,
		DNSStart:          t.DNSStart,
		DNSDone:           t.DNSDone,
		ConnectStart:      t.ConnectStart,
		ConnectDone:       t.ConnectDone,
		TLSHandshakeStart: t.TLSHandshakeStart,
		TLSHandshakeDone:  t.TLSHandshakeDone,
		WroteRequest:      t.WroteRequest,
	}
	return httptrace.WithClientTrace(ctx, trace), t.close
}
