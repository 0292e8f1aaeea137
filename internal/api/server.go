package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sanverite/hotplugd/internal/core"
)

// Constants for route prefixing. Versioning is explicit to allow non-breaking additions.
const (
	APIVersion     = "v1"
	DefaultAddress = "127.0.0.1:8787"
)

// Suspender is the display power toggle. *hotplug.Controller implements it.
type Suspender interface {
	Suspended() bool
	SetSuspended(on bool)
}

// ProbeFunc runs a platform probe.
type ProbeFunc func(ctx context.Context) (core.PlatformSummary, error)

// ServerOptions configures the HTTP server.
// Timeouts are conservative defaults suitable for a local control-plane server.
type ServerOptions struct {
	Addr              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	Logger            logr.Logger

	// Suspender backs /v1/suspended. Nil disables the endpoint.
	Suspender Suspender
	// Probe backs POST /v1/probe. Nil disables the endpoint.
	Probe ProbeFunc
}

// Server hosts the Control Surface for the daemon.
type Server struct {
	http     *http.Server
	state    *core.State
	log      logr.Logger
	opts     ServerOptions
	listener net.Listener
}

// NewServer constructs a new API server bound to the provided State.
// The server does not listen until Listen is called.
func NewServer(state *core.State, opts ServerOptions) *Server {
	if state == nil {
		panic("api.NewServer: state is nil")
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddress
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 5 * time.Second
	}
	if opts.ReadHeaderTimeout == 0 {
		opts.ReadHeaderTimeout = 2 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}
	log := opts.Logger.WithName("api")

	mux := http.NewServeMux()
	s := &Server{
		state: state,
		log:   log,
		opts:  opts,
		http: &http.Server{
			Addr:              opts.Addr,
			Handler:           withBasicMiddleware(mux, log),
			ReadTimeout:       opts.ReadTimeout,
			ReadHeaderTimeout: opts.ReadHeaderTimeout,
			WriteTimeout:      opts.WriteTimeout,
			IdleTimeout:       opts.IdleTimeout,
			BaseContext: func(l net.Listener) context.Context {
				return context.Background()
			},
		},
	}

	// Routes
	mux.HandleFunc("/"+APIVersion+"/healthz", s.handleHealthz)
	mux.HandleFunc("/"+APIVersion+"/status", s.handleStatus)
	mux.HandleFunc("/"+APIVersion+"/tunables", s.handleTunables)
	mux.HandleFunc("/"+APIVersion+"/suspended", s.handleSuspended)
	mux.HandleFunc("/"+APIVersion+"/probe", s.handleProbe)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Listen binds the listen address. A failure here leaves the daemon running
// without its Control Surface.
func (s *Server) Listen() error {
	l, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	s.listener = l
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.opts.Addr
}

// Serve handles requests until ctx is done, then shuts down gracefully,
// waiting up to ShutdownTimeout.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", s.Addr())
		errc <- s.http.Serve(s.listener)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// handleHealthz is a simple readiness/liveness endpoint.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": TimeNow().UTC().Format(time.RFC3339),
	})
}

// handleStatus returns the current daemon snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, FromCoreSnapshot(s.state.GetSnapshot()))
}

// handleTunables reads or partially updates the operator tunables.
// Method: GET, PUT
// Request (PUT): TunablesRequest JSON; values are taken as written
// Response (200): TunablesView JSON after the update
func (s *Server) handleTunables(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet, http.MethodPut) {
		return
	}
	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, FromTunables(s.state.Tunables()))
		return
	}

	var req TunablesRequest
	if !decodeStrict(w, r, &req) {
		return
	}
	updated := s.state.UpdateTunables(req.Apply)
	s.log.Info("tunables updated", "tunables", FromTunables(updated))
	writeJSON(w, http.StatusOK, FromTunables(updated))
}

// handleSuspended reads or flips the display-off state.
// Method: GET, PUT
// Request (PUT): SuspendRequest JSON; suspending while suspended (or
// resuming while awake) is a no-op
// Response (200): SuspendView JSON
func (s *Server) handleSuspended(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet, http.MethodPut) {
		return
	}
	if s.opts.Suspender == nil {
		writeError(w, http.StatusServiceUnavailable, "controller not running")
		return
	}
	if r.Method == http.MethodPut {
		var req SuspendRequest
		if !decodeStrict(w, r, &req) {
			return
		}
		if req.Suspended == nil {
			writeError(w, http.StatusBadRequest, "suspended is required")
			return
		}
		s.opts.Suspender.SetSuspended(*req.Suspended)
	}
	writeJSON(w, http.StatusOK, SuspendView{Suspended: s.opts.Suspender.Suspended()})
}

// handleProbe reruns the platform probe and returns a PlatformView.
// Method: POST
// Response (200): PlatformView JSON (same shape as "last_probe" in /v1/status)
// Errors:
//   - 502 when the probe fails; the partial summary is still stored
func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if s.opts.Probe == nil {
		writeError(w, http.StatusServiceUnavailable, "probe not configured")
		return
	}

	summary, err := s.opts.Probe(r.Context())

	// Persist the result regardless of success.
	s.state.UpdateProbe(summary)

	if err != nil {
		writeError(w, http.StatusBadGateway, "probe failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, FromPlatformSummary(summary))
}

func allowMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

// decodeStrict decodes the body into v, rejecting unknown fields. It writes
// a 400 and returns false on failure.
func decodeStrict(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// Basic middleware: sets JSON content type and very lightweight logging.
// No CORS or auth because this is a local control-plane service.
func withBasicMiddleware(next http.Handler, log logr.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := TimeNow()
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
		log.V(1).Info("request", "method", r.Method, "path", r.URL.Path,
			"durationMs", time.Since(start).Milliseconds(), "ua", r.UserAgent())
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIError{
		Error:     msg,
		Timestamp: TimeNow().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}
