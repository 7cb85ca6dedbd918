package xray

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/shogo82148/xray-httpclient-go/xray/sampling"
	"github.com/shogo82148/xray-httpclient-go/xray/schema"
	"github.com/shogo82148/xray-httpclient-go/xray/xraylog"
)

var nowFunc func() time.Time = time.Now

type segmentStatus int

const (
	segmentStatusOpen segmentStatus = iota
	segmentStatusClosed
)

// Segment is a segment or a subsegment.
// The root segment has no parent; subsegments belong to exactly one parent.
type Segment struct {
	mu        sync.RWMutex
	ctx       context.Context
	name      string
	id        string
	traceID   string
	startTime time.Time
	endTime   time.Time
	status    segmentStatus

	// sampled is inherited from the root, and immutable after creation.
	sampled bool

	// dummy is true if the segment is created without any active segment.
	// dummy segments are never emitted.
	dummy bool

	// parent segment
	// if the segment is the root, the parent is nil.
	parent *Segment

	// root segment
	// if the segment is the root, the root points the segment it self.
	root *Segment

	// subsegments in the order they are begun.
	subsegments []*Segment

	// the fields below are used in the root only, guarded by root.mu.
	client         *Client
	traceHeader    TraceHeader
	totalSegments  int
	closedSegments int
	emitted        bool

	// error information
	error    bool
	throttle bool
	fault    bool
	cause    *schema.Cause

	namespace string
	metadata  map[string]interface{}
	http      *schema.HTTP
}

// NewTraceID generates a string format of random trace ID.
func NewTraceID() string {
	var r [12]byte
	_, err := rand.Read(r[:])
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("1-%08x-%x", nowFunc().Unix(), r)
}

// NewSegmentID generates a string format of segment ID.
func NewSegmentID() string {
	var r [8]byte
	_, err := rand.Read(r[:])
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", r)
}

func newExceptionID() string {
	return NewSegmentID()
}

func sanitizeSegmentName(name string) string {
	const maxLength = 200
	var b strings.Builder
	b.Grow(len(name))
	var n int
	for _, r := range name {
		if n >= maxLength {
			break
		}
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) || strings.ContainsRune(`_.:/%&#=+\-@`, r) {
			b.WriteRune(r)
			n++
		}
	}
	return b.String()
}

// BeginSegment creates a new Segment for a given name and context.
//
// Caller should close the segment when the work is done.
func BeginSegment(ctx context.Context, name string) (context.Context, *Segment) {
	client := ContextClient(ctx)
	decision := client.samplingStrategy.ShouldTrace(&sampling.Request{
		ServiceName: name,
	})
	return beginSegment(ctx, client, name, TraceHeader{}, decision.Sample)
}

// BeginSegmentWithRequest creates a new Segment for an incoming request.
// The trace id, the parent id and the sampling decision
// are taken over from the X-Amzn-Trace-Id header if any.
//
// Caller should close the segment when the work is done.
func BeginSegmentWithRequest(ctx context.Context, name string, r *http.Request) (context.Context, *Segment) {
	client := ContextClient(ctx)
	header := ParseTraceHeader(r.Header.Get(TraceIDHeaderKey))

	var sampled bool
	switch header.SamplingDecision {
	case SamplingDecisionSampled:
		sampled = true
	case SamplingDecisionNotSampled:
		sampled = false
	default:
		decision := client.samplingStrategy.ShouldTrace(&sampling.Request{
			Host:        r.Host,
			Method:      r.Method,
			URL:         r.URL.Path,
			ServiceName: name,
		})
		sampled = decision.Sample
	}
	return beginSegment(ctx, client, name, header, sampled)
}

func beginSegment(ctx context.Context, client *Client, name string, header TraceHeader, sampled bool) (context.Context, *Segment) {
	traceID := header.TraceID
	if traceID == "" {
		traceID = NewTraceID()
	}
	seg := &Segment{
		ctx:           ctx,
		name:          sanitizeSegmentName(name),
		id:            NewSegmentID(),
		traceID:       traceID,
		startTime:     nowFunc(),
		sampled:       sampled,
		client:        client,
		traceHeader:   header,
		totalSegments: 1,
	}
	seg.root = seg
	xraylog.Debugf(ctx, "Beginning segment named %s", seg.name)
	ctx = WithSegment(ctx, seg)
	return ctx, seg
}

// BeginSubsegment creates a new subsegment under the active segment of the context.
// If there is no active segment, the context missing strategy is called,
// and a detached segment that is never emitted is returned.
//
// Caller should close the segment when the work is done.
func BeginSubsegment(ctx context.Context, name string) (context.Context, *Segment) {
	parent := ContextSegment(ctx)
	if parent == nil {
		client := ContextClient(ctx)
		client.ctxmissingStrategy.ContextMissing(ctx, fmt.Sprintf("failed to begin subsegment named '%s': segment cannot be found.", name))
		seg := &Segment{
			ctx:           ctx,
			name:          sanitizeSegmentName(name),
			id:            NewSegmentID(),
			traceID:       NewTraceID(),
			startTime:     nowFunc(),
			dummy:         true,
			client:        client,
			totalSegments: 1,
		}
		seg.root = seg
		return WithSegment(ctx, seg), seg
	}

	root := parent.root
	seg := &Segment{
		ctx:       ctx,
		name:      sanitizeSegmentName(name),
		id:        NewSegmentID(),
		parent:    parent,
		root:      root,
		traceID:   parent.traceID,
		startTime: nowFunc(),
		sampled:   parent.sampled,
		dummy:     parent.dummy,
	}
	xraylog.Debugf(ctx, "Beginning subsegment named %s", seg.name)
	ctx = WithSegment(ctx, seg)

	root.mu.Lock()
	defer root.mu.Unlock()
	if parent != root {
		parent.mu.Lock()
		defer parent.mu.Unlock()
	}
	root.totalSegments++
	parent.subsegments = append(parent.subsegments, seg)

	return ctx, seg
}

type errorPanic struct {
	err interface{}
}

func (err *errorPanic) Error() string {
	return fmt.Sprintf("%T: %v", err.err, err.err)
}

// Close closes the segment.
// Closing a segment that is already closed does nothing.
//
// If Close is deferred and the function panics,
// the panic is recorded as a fault and then Close panics again with the same value.
func (seg *Segment) Close() {
	err := recover()
	if err != nil {
		seg.AddError(&errorPanic{err: err})
	}
	seg.close()
	if err != nil {
		panic(err)
	}
}

func (seg *Segment) close() {
	root := seg.root
	root.mu.Lock()
	if seg != root {
		seg.mu.Lock()
	}
	if seg.status != segmentStatusOpen {
		if seg != root {
			seg.mu.Unlock()
		}
		root.mu.Unlock()
		xraylog.Debugf(seg.ctx, "Segment named %s is already closed", seg.name)
		return
	}
	seg.status = segmentStatusClosed
	seg.endTime = nowFunc()
	if seg != root {
		seg.mu.Unlock()
		xraylog.Debugf(seg.ctx, "Closing subsegment named %s", seg.name)
	} else {
		xraylog.Debugf(seg.ctx, "Closing segment named %s", seg.name)
	}
	root.closedSegments++

	// emit the trace after every segment in the tree is closed.
	var doc *schema.Segment
	if root.status == segmentStatusClosed && root.closedSegments == root.totalSegments && !root.emitted {
		root.emitted = true
		if root.sampled && !root.dummy {
			doc = serialize(root)
		}
	}
	root.mu.Unlock()

	if doc != nil {
		root.emit(doc)
	}
}

// emit hands doc to the plugins and the emitter.
// Their panics are logged and never reach the caller of Close.
func (seg *Segment) emit(doc *schema.Segment) {
	defer func() {
		if err := recover(); err != nil {
			xraylog.Errorf(seg.ctx, "xray: panic in emitting segment %s: %v", doc.Name, err)
		}
	}()
	for _, p := range getPlugins() {
		p.HandleSegment(seg, doc)
	}
	seg.client.emitter.Emit(seg.ctx, doc)
}

// serialize converts the tree into the document.
// root.mu must be locked.
func serialize(seg *Segment) *schema.Segment {
	originTime := seg.root.startTime
	originEpoch := float64(originTime.Unix()) + float64(originTime.Nanosecond())/1e9
	ret := &schema.Segment{
		Name:      seg.name,
		ID:        seg.id,
		StartTime: originEpoch + seg.startTime.Sub(originTime).Seconds(),

		Error:    seg.error,
		Throttle: seg.throttle,
		Fault:    seg.fault,
		Cause:    copyCause(seg.cause),

		Namespace: seg.namespace,
		Metadata:  copyMetadata(seg.metadata),
		HTTP:      copyHTTP(seg.http),
	}

	if seg.status == segmentStatusOpen {
		ret.InProgress = true
	} else {
		// use monotonic clock instead of wall clock to get correct processing time.
		// https://golang.org/pkg/time/#hdr-Monotonic_Clocks
		ret.EndTime = originEpoch + seg.endTime.Sub(originTime).Seconds()
	}

	if seg.parent == nil {
		ret.TraceID = seg.traceID
		ret.Service = ServiceData
		if parentID := seg.traceHeader.ParentID; parentID != "" {
			// the parent is on upstream
			ret.ParentID = parentID
			ret.Type = "subsegment"
		}
	}

	for _, sub := range seg.subsegments {
		sub.mu.RLock()
		ret.Subsegments = append(ret.Subsegments, serialize(sub))
		sub.mu.RUnlock()
	}
	return ret
}

// lock locks the fields of seg. The root's fields are guarded by the same lock.
func (seg *Segment) lock() func() {
	seg.mu.Lock()
	return seg.mu.Unlock
}

func (seg *Segment) rlock() func() {
	seg.mu.RLock()
	return seg.mu.RUnlock
}

// AddError records err as a fault.
// The error and the errors it wraps are recorded in the cause, the outermost first.
// It reports whether err is not nil.
func (seg *Segment) AddError(err error) bool {
	if err == nil {
		return false
	}
	if seg == nil {
		return true
	}
	exceptions := newExceptions(err)
	wd, _ := os.Getwd()

	defer seg.lock()()
	seg.fault = true
	seg.error = false
	seg.throttle = false
	if seg.cause == nil {
		seg.cause = &schema.Cause{
			WorkingDirectory: wd,
		}
	}
	seg.cause.Exceptions = append(seg.cause.Exceptions, exceptions...)
	return true
}

// AddError records err to the active segment of the context.
func AddError(ctx context.Context, err error) bool {
	return ContextSegment(ctx).AddError(err)
}

// SetError sets the error flag. It clears the fault flag.
func (seg *Segment) SetError() {
	if seg == nil {
		return
	}
	defer seg.lock()()
	seg.error = true
	seg.fault = false
}

// SetThrottle sets the throttle flag. The throttle implies the error.
func (seg *Segment) SetThrottle() {
	if seg == nil {
		return
	}
	defer seg.lock()()
	seg.error = true
	seg.throttle = true
	seg.fault = false
}

// SetFault sets the fault flag. It clears the error and throttle flags.
func (seg *Segment) SetFault() {
	if seg == nil {
		return
	}
	defer seg.lock()()
	seg.fault = true
	seg.error = false
	seg.throttle = false
}

// SetOutcome sets exactly the flags of the outcome.
func (seg *Segment) SetOutcome(o Outcome) {
	if seg == nil {
		return
	}
	defer seg.lock()()
	seg.error = o == OutcomeError || o == OutcomeThrottle
	seg.throttle = o == OutcomeThrottle
	seg.fault = o == OutcomeFault
}

// SetNamespace sets namespace
func (seg *Segment) SetNamespace(namespace string) {
	if seg == nil {
		return
	}
	defer seg.lock()()
	seg.namespace = namespace
}

// SetHTTPRequest sets the information of the HTTP request.
func (seg *Segment) SetHTTPRequest(request *schema.HTTPRequest) {
	if seg == nil {
		return
	}
	defer seg.lock()()
	if seg.http == nil {
		seg.http = &schema.HTTP{}
	}
	seg.http.Request = request
}

// SetHTTPResponse sets the information of the HTTP response.
func (seg *Segment) SetHTTPResponse(response *schema.HTTPResponse) {
	if seg == nil {
		return
	}
	defer seg.lock()()
	if seg.http == nil {
		seg.http = &schema.HTTP{}
	}
	seg.http.Response = response
}

// AddMetadata adds metadata into the default namespace.
func (seg *Segment) AddMetadata(key string, value interface{}) {
	seg.AddMetadataToNamespace("default", key, value)
}

// AddMetadataToNamespace adds metadata into the namespace.
func (seg *Segment) AddMetadataToNamespace(namespace, key string, value interface{}) {
	if seg == nil {
		return
	}
	defer seg.lock()()
	if seg.metadata == nil {
		seg.metadata = map[string]interface{}{}
	}
	ns, ok := seg.metadata[namespace].(map[string]interface{})
	if !ok {
		ns = map[string]interface{}{}
		seg.metadata[namespace] = ns
	}
	ns[key] = value
}

// AddMetadata adds metadata to the active segment of the context.
func AddMetadata(ctx context.Context, key string, value interface{}) {
	ContextSegment(ctx).AddMetadata(key, value)
}

// Name returns the name of the segment.
func (seg *Segment) Name() string {
	return seg.name
}

// ID returns the id of the segment.
func (seg *Segment) ID() string {
	return seg.id
}

// TraceID returns the trace id of the segment.
func (seg *Segment) TraceID() string {
	return seg.traceID
}

// Parent returns the parent segment. It returns nil for the root segment.
func (seg *Segment) Parent() *Segment {
	return seg.parent
}

// IsSampled reports whether the trace will be emitted.
func (seg *Segment) IsSampled() bool {
	return seg.sampled && !seg.dummy
}

// Subsegments returns the subsegments in the order they are begun.
func (seg *Segment) Subsegments() []*Segment {
	root := seg.root
	root.mu.RLock()
	defer root.mu.RUnlock()
	if seg != root {
		defer seg.rlock()()
	}
	ret := make([]*Segment, len(seg.subsegments))
	copy(ret, seg.subsegments)
	return ret
}

// IsClosed reports whether the segment is closed.
func (seg *Segment) IsClosed() bool {
	defer seg.rlock()()
	return seg.status != segmentStatusOpen
}

// IsError reports whether the error flag is set.
func (seg *Segment) IsError() bool {
	defer seg.rlock()()
	return seg.error
}

// IsThrottle reports whether the throttle flag is set.
func (seg *Segment) IsThrottle() bool {
	defer seg.rlock()()
	return seg.throttle
}

// IsFault reports whether the fault flag is set.
func (seg *Segment) IsFault() bool {
	defer seg.rlock()()
	return seg.fault
}

// Namespace returns the namespace of the segment.
func (seg *Segment) Namespace() string {
	defer seg.rlock()()
	return seg.namespace
}

// HTTP returns a copy of the HTTP information.
// It returns nil if no HTTP information is recorded.
func (seg *Segment) HTTP() *schema.HTTP {
	defer seg.rlock()()
	return copyHTTP(seg.http)
}

// Cause returns a copy of the cause of the fault.
// It returns nil if no error is recorded.
func (seg *Segment) Cause() *schema.Cause {
	defer seg.rlock()()
	return copyCause(seg.cause)
}

func copyHTTP(h *schema.HTTP) *schema.HTTP {
	if h == nil {
		return nil
	}
	ret := &schema.HTTP{}
	if h.Request != nil {
		req := *h.Request
		ret.Request = &req
	}
	if h.Response != nil {
		resp := *h.Response
		ret.Response = &resp
	}
	return ret
}

func copyCause(c *schema.Cause) *schema.Cause {
	if c == nil {
		return nil
	}
	ret := *c
	ret.Exceptions = append([]schema.Exception(nil), c.Exceptions...)
	return &ret
}

func copyMetadata(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	ret := make(map[string]interface{}, len(m))
	for namespace, v := range m {
		ns, ok := v.(map[string]interface{})
		if !ok {
			ret[namespace] = v
			continue
		}
		cp := make(map[string]interface{}, len(ns))
		for key, value := range ns {
			cp[key] = value
		}
		ret[namespace] = cp
	}
	return ret
}
