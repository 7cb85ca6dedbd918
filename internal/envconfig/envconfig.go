// Package envconfig reads the configuration of the SDK from the environment values.
package envconfig

import (
	"os"
	"strconv"
	"strings"
)

// DaemonAddress returns the address of the AWS X-Ray daemon.
// The format is "address:port" or "tcp:address:port udp:address:port".
func DaemonAddress() string {
	return os.Getenv("AWS_XRAY_DAEMON_ADDRESS")
}

// ContextMissingStrategy returns the name of the context missing strategy.
// The value is upper-cased, e.g. "LOG_ERROR".
func ContextMissingStrategy() string {
	return strings.ToUpper(strings.TrimSpace(os.Getenv("AWS_XRAY_CONTEXT_MISSING")))
}

// DebugMode reports whether AWS_XRAY_DEBUG_MODE is set.
func DebugMode() bool {
	return os.Getenv("AWS_XRAY_DEBUG_MODE") != ""
}

// LogLevel returns the lower-cased value of AWS_XRAY_LOG_LEVEL.
func LogLevel() string {
	return strings.ToLower(strings.TrimSpace(os.Getenv("AWS_XRAY_LOG_LEVEL")))
}

// EmitAttempts returns the number of attempts to dial the daemon
// before giving up emitting a segment.
func EmitAttempts() int {
	const defaultAttempts = 3

	attempts := os.Getenv("AWS_XRAY_EMIT_ATTEMPTS")
	if attempts == "" {
		return defaultAttempts
	}
	n, err := strconv.ParseInt(attempts, 10, 0)
	if err != nil {
		return defaultAttempts
	}
	if n < 1 {
		return defaultAttempts
	}
	return int(n)
}
