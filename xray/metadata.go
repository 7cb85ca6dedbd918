package xray

import (
	"runtime"

	"github.com/shogo82148/xray-httpclient-go/xray/schema"
)

const (
	// Name is the name of this SDK.
	Name = "xray-httpclient-go"

	// Version is the version of this SDK.
	Version = "0.1.0"
)

// ServiceData is the metadata for the service.
var ServiceData = &schema.Service{
	Compiler:        runtime.Compiler,
	CompilerVersion: runtime.Version(),
}
