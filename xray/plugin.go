package xray

import (
	"reflect"
	"sync"

	"github.com/shogo82148/xray-httpclient-go/xray/schema"
)

// Plugin is the interface of AWS X-Ray plugin.
type Plugin interface {
	// HandleSegment is called before submitting the root segment.
	// The document is the raw data of the trace, and plugins can rewrite it.
	HandleSegment(segment *Segment, document *schema.Segment)
}

var muPlugins sync.RWMutex
var plugins []Plugin

// AddPlugin adds a plugin.
func AddPlugin(plugin Plugin) {
	if plugin == nil {
		panic("xray: plugin should not be nil")
	}
	muPlugins.Lock()
	defer muPlugins.Unlock()
	plugins = append(plugins, plugin)
}

// RemovePlugin removes the plugin added by AddPlugin.
// Plugins are matched with ==, so only comparable plugins, e.g. pointers, can be removed.
// Removing a plugin of a non-comparable type does nothing.
func RemovePlugin(plugin Plugin) {
	if plugin == nil || !reflect.TypeOf(plugin).Comparable() {
		return
	}
	muPlugins.Lock()
	defer muPlugins.Unlock()
	ret := make([]Plugin, 0, len(plugins))
	for _, p := range plugins {
		if p != plugin {
			ret = append(ret, p)
		}
	}
	plugins = ret
}

func getPlugins() []Plugin {
	muPlugins.RLock()
	defer muPlugins.RUnlock()
	return plugins
}

// xrayPlugin injects information about this SDK.
type xrayPlugin struct{}

func init() {
	AddPlugin(xrayPlugin{})
}

// HandleSegment implements Plugin.
func (xrayPlugin) HandleSegment(seg *Segment, doc *schema.Segment) {
	if doc.AWS == nil {
		doc.AWS = schema.AWS{}
	}
	doc.AWS.SetXRay(&schema.XRay{
		SDKVersion: Version,
		SDK:        Name,
	})
}
