// Package schema is a utils for generating AWS X-Ray Segment Documents.
// ref. https://docs.aws.amazon.com/xray/latest/devguide/xray-api-segmentdocuments.html
package schema

// Segment is a segment
type Segment struct {
	// Required

	// The logical name of the service that handled the request, up to 200 characters.
	// For example, your application's name or domain name.
	Name string `json:"name"`

	// ID is a 64-bit identifier for the segment,
	// unique among segments in the same trace, in 16 hexadecimal digits.
	ID string `json:"id"`

	// TraceID is a unique identifier that connects all segments and subsegments originating
	// from a single client request. Trace ID Format.
	TraceID string `json:"trace_id,omitempty"`

	// StartTime is a number that is the time the segment was created,
	// in floating point seconds in epoch time.
	StartTime float64 `json:"start_time"`

	// EndTime is a number that is the time the segment was closed.
	EndTime float64 `json:"end_time,omitempty"`

	// InProgress is a boolean, set to true instead of specifying an end_time to record that a segment is started, but is not complete.
	InProgress bool `json:"in_progress,omitempty"`

	// Optional

	// ParentID is a subsegment ID you specify if the request originated from an instrumented application.
	ParentID string `json:"parent_id,omitempty"`

	// Type is "subsegment" if the document is sent independently of its parent.
	Type string `json:"type,omitempty"`

	// Namespace is "aws" for AWS SDK calls; "remote" for other downstream calls.
	Namespace string `json:"namespace,omitempty"`

	// Service is an object with information about your application.
	Service *Service `json:"service,omitempty"`

	// Error, Throttle and Fault are the error fields that indicate an error occurred
	// and that include information about the exception that caused the error.
	Error    bool   `json:"error,omitempty"`
	Throttle bool   `json:"throttle,omitempty"`
	Fault    bool   `json:"fault,omitempty"`
	Cause    *Cause `json:"cause,omitempty"`

	// HTTP objects with information about the original HTTP request.
	HTTP *HTTP `json:"http,omitempty"`

	// AWS object with information about the AWS resource on which your application served the request
	AWS AWS `json:"aws,omitempty"`

	// Metadata object with any additional data that you want to store in the segment.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// Subsegments is an array of subsegment objects.
	Subsegments []*Segment `json:"subsegments,omitempty"`
}

// Service is information about your application.
type Service struct {
	// A string that identifies the version of your application that served the request.
	Version string `json:"version,omitempty"`

	// Compiler is the name of the compiler, e.g. "gc".
	Compiler string `json:"compiler,omitempty"`

	// CompilerVersion is the version of the go runtime.
	CompilerVersion string `json:"compiler_version,omitempty"`
}

// HTTP is information about the original HTTP request.
type HTTP struct {
	Request  *HTTPRequest  `json:"request,omitempty"`
	Response *HTTPResponse `json:"response,omitempty"`
}

// HTTPRequest is information about a request.
type HTTPRequest struct {
	// Method is the request method. For example, GET.
	Method string `json:"method,omitempty"`

	// URL is the full URL of the request, compiled from the protocol, hostname, and path of the request.
	URL string `json:"url,omitempty"`

	// UserAgent is the user agent string from the requester's client.
	UserAgent string `json:"user_agent,omitempty"`

	// ClientIP is the IP address of the requester.
	ClientIP string `json:"client_ip,omitempty"`

	// XForwardedFor is a boolean indicating that the client_ip was read from an X-Forwarded-For header
	// and is not reliable as it could have been forged.
	XForwardedFor bool `json:"x_forwarded_for,omitempty"`

	// Traced is, for outgoing calls only, a boolean indicating that the downstream call is to another traced service.
	Traced bool `json:"traced,omitempty"`
}

// HTTPResponse is information about a response.
type HTTPResponse struct {
	// Status is an integer indicating the HTTP status of the response.
	Status int `json:"status,omitempty"`

	// ContentLength is an integer indicating the length of the response body in bytes.
	ContentLength int64 `json:"content_length,omitempty"`
}

// Cause is the cause of an error.
type Cause struct {
	// WorkingDirectory is the full path of the working directory when the exception occurred.
	WorkingDirectory string `json:"working_directory,omitempty"`

	// Paths is the array of paths to libraries or modules in use when the exception occurred.
	Paths []string `json:"paths,omitempty"`

	// Exceptions is the array of exception objects.
	Exceptions []Exception `json:"exceptions,omitempty"`
}

// Exception is detailed information about the error.
type Exception struct {
	// ID is a 64-bit identifier for the exception, unique among segments in the same trace, in 16 hexadecimal digits.
	ID string `json:"id"`

	// Message is the exception message.
	Message string `json:"message,omitempty"`

	// Type is the exception type.
	Type string `json:"type,omitempty"`

	// Remote is a boolean indicating that the exception was caused by an error returned by a downstream service.
	Remote bool `json:"remote,omitempty"`

	// Cause is the exception ID of the exception's parent, that is, the exception that caused this exception.
	Cause string `json:"cause,omitempty"`
}

// AWS is information about the AWS resource on which your application served the request.
type AWS map[string]interface{}

// SetXRay sets the information of the X-Ray SDK.
func (aws AWS) SetXRay(xray *XRay) {
	aws["xray"] = xray
}

// XRay is information about the X-Ray SDK.
type XRay struct {
	SDKVersion string `json:"sdk_version,omitempty"`
	SDK        string `json:"sdk,omitempty"`
}
