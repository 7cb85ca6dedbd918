package xray

import (
	"sort"
	"strings"
)

// TraceIDHeaderKey is the HTTP header name used for tracing.
const TraceIDHeaderKey string = "X-Amzn-Trace-Id"

// SamplingDecision is whether or not the current segment has been sampled.
type SamplingDecision rune

const (
	// SamplingDecisionSampled indicates the current segment has been
	// sampled and will be sent to the X-Ray daemon.
	SamplingDecisionSampled SamplingDecision = '1'

	// SamplingDecisionNotSampled indicates the current segment has
	// not been sampled.
	SamplingDecisionNotSampled SamplingDecision = '0'

	// SamplingDecisionRequested indicates sampling decision will be
	// made by the downstream service and propagated
	// back upstream in the response.
	SamplingDecisionRequested SamplingDecision = '?'

	// SamplingDecisionUnknown indicates no sampling decision will be made.
	SamplingDecisionUnknown SamplingDecision = 0
)

// TraceHeader is the value of X-Amzn-Trace-Id.
type TraceHeader struct {
	TraceID          string
	ParentID         string
	SamplingDecision SamplingDecision

	AdditionalData map[string]string
}

// ParseTraceHeader parses X-Amzn-Trace-Id header.
// Invalid parameters are ignored.
func ParseTraceHeader(s string) TraceHeader {
	var header TraceHeader
	for _, kv := range strings.Split(strings.TrimSpace(s), ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(kv), "=")
		if !ok {
			continue
		}
		switch {
		case strings.EqualFold(key, "Root"):
			header.TraceID = strings.ToLower(value)
		case strings.EqualFold(key, "Parent"):
			header.ParentID = strings.ToLower(value)
		case strings.EqualFold(key, "Sampled"):
			switch value {
			case "1":
				header.SamplingDecision = SamplingDecisionSampled
			case "0":
				header.SamplingDecision = SamplingDecisionNotSampled
			case "?":
				header.SamplingDecision = SamplingDecisionRequested
			}
		case strings.EqualFold(key, "Self"):
			// Ignore any "Self=" trace ids injected from ALB.
		default:
			if header.AdditionalData == nil {
				header.AdditionalData = map[string]string{}
			}
			header.AdditionalData[key] = value
		}
	}
	return header
}

func (h TraceHeader) String() string {
	params := make([]string, 0, 3+len(h.AdditionalData))
	if h.TraceID != "" {
		params = append(params, "Root="+h.TraceID)
	}
	if h.ParentID != "" {
		params = append(params, "Parent="+h.ParentID)
	}
	if h.SamplingDecision != SamplingDecisionUnknown {
		params = append(params, "Sampled="+string(rune(h.SamplingDecision)))
	}

	keys := make([]string, 0, len(h.AdditionalData))
	for key := range h.AdditionalData {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		params = append(params, key+"="+h.AdditionalData[key])
	}
	return strings.Join(params, ";")
}
