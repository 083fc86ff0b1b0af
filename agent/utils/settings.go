package utils

import (
	"sync"
	"time"
)

// HTTPReqTimeout is the default timeout for outgoing HTTP requests.
const HTTPReqTimeout = 1 * time.Minute

// Version is set by the build.
var Version = "0.1.0-dev"

// Settings is the process wide settings hub.
var Settings = &Hub{timeout: HTTPReqTimeout}

// Hub holds settings that several packages read after the command line is
// parsed. The setters are called once at startup.
type Hub struct {
	lk sync.RWMutex

	timeout time.Duration // timeout setting for http requests and connections
}

// VersionInfo is the version line of the startup logs.
func VersionInfo() string {
	return "campus-agent v. " + Version
}

// SetTimeout sets the timeout of outgoing HTTP requests. Zero keeps the
// default.
func (h *Hub) SetTimeout(t time.Duration) {
	h.lk.Lock()
	defer h.lk.Unlock()
	if t <= 0 {
		t = HTTPReqTimeout
	}
	h.timeout = t
}

// Timeout returns the timeout for outgoing HTTP requests.
func (h *Hub) Timeout() time.Duration {
	h.lk.RLock()
	defer h.lk.RUnlock()
	return h.timeout
}
