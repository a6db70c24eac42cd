package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// Serving states reported by the health endpoints.
const (
	healthStatusOK       = "ok"
	healthStatusStarting = "starting"
	healthStatusDraining = "draining"
)

// Health answers the checks a local supervisor or an MCP client makes before
// it routes requests to the daemon. A missing credential never makes the
// daemon unready: the auth endpoints must stay reachable so that a login can
// fix it.
type Health struct {
	sc      *ServerContext
	started time.Time
	ready   atomic.Bool
}

// NewHealth returns a Health that reports "starting" until SetReady(true).
// sc may be nil.
func NewHealth(sc *ServerContext) *Health {
	return &Health{sc: sc, started: time.Now()}
}

// SetReady marks the listener as accepting requests, or draining once false
// is set after a shutdown began.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// HealthReport is the body of every health endpoint.
type HealthReport struct {
	Status string `json:"status"`
	Uptime string `json:"uptime,omitempty"`

	// Credential is only filled by the detailed endpoint, and only when a
	// session is attached.
	Credential *CredentialHealth `json:"credential,omitempty"`
}

// CredentialHealth reports whether tool calls can currently succeed without
// a new login.
type CredentialHealth struct {
	Authenticated bool `json:"authenticated"`
	Refreshable   bool `json:"refreshable"`
}

// Register mounts /healthz, /readyz and /healthz/detailed on mux.
func (h *Health) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", h.serveLive)
	mux.HandleFunc("/readyz", h.serveReady)
	mux.HandleFunc("/healthz/detailed", h.serveDetailed)
}

// serving reports the daemon's state. A context that was shut down wins
// over the ready flag.
func (h *Health) serving() string {
	switch {
	case h.sc != nil && h.sc.IsShutdown():
		return healthStatusDraining
	case !h.ready.Load():
		return healthStatusStarting
	default:
		return healthStatusOK
	}
}

// serveLive answers as long as the process can handle a request at all.
func (h *Health) serveLive(w http.ResponseWriter, _ *http.Request) {
	writeHealth(w, HealthReport{Status: healthStatusOK})
}

func (h *Health) serveReady(w http.ResponseWriter, _ *http.Request) {
	writeHealth(w, HealthReport{Status: h.serving()})
}

func (h *Health) serveDetailed(w http.ResponseWriter, r *http.Request) {
	report := HealthReport{
		Status: h.serving(),
		Uptime: time.Since(h.started).Truncate(time.Second).String(),
	}
	if h.sc != nil && h.sc.Session() != nil {
		st := h.sc.Session().Status(r.Context())
		report.Credential = &CredentialHealth{
			Authenticated: st.Authenticated,
			Refreshable:   st.Refreshable,
		}
	}
	writeHealth(w, report)
}

func writeHealth(w http.ResponseWriter, report HealthReport) {
	code := http.StatusOK
	if report.Status != healthStatusOK {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(report)
}
