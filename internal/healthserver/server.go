package healthserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/arloliu/shardkeeper/internal/logging"
	"github.com/arloliu/shardkeeper/types"
)

// WorkerCounter reports how many workers this instance currently runs.
type WorkerCounter interface {
	Count() int
}

// PeerReporter exposes the most recently observed peer-load table, keyed
// by peer id. Optional: a Server built without one has no /peers route,
// so /peers falls through to the worker-count handler like any other path.
type PeerReporter interface {
	Peers() map[string]int
}

// Server serves the worker-count health endpoint at "/" (any path other
// than "/peers" returns 200 with the current worker count as plain text)
// and, when a PeerReporter is configured, the peer-load snapshot as JSON
// at "/peers".
type Server struct {
	workers WorkerCounter
	peers   PeerReporter
	logger  types.Logger

	mu      sync.Mutex
	started bool
	http    *http.Server
	ln      net.Listener
}

// New creates a health Server reading its count from workers.
func New(workers WorkerCounter, opts ...Option) *Server {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}

	return &Server{workers: workers, peers: o.peers, logger: o.logger}
}

type options struct {
	logger types.Logger
	peers  PeerReporter
}

// Option configures a Server.
type Option func(*options)

// WithLogger sets the logger used for server lifecycle events.
func WithLogger(l types.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithPeers enables the /peers diagnostics route, reading from reporter.
func WithPeers(reporter PeerReporter) Option {
	return func(o *options) { o.peers = reporter }
}

// Start begins listening on addr. It returns once the listener is
// bound; serve errors after that point are logged, not returned.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("healthserver: already started")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWorkerCount)
	if s.peers != nil {
		mux.HandleFunc("/peers", s.handlePeers)
	}

	s.http = &http.Server{Addr: addr, Handler: mux}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("healthserver: listen on %s: %w", addr, err)
	}

	s.ln = ln
	s.started = true

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("health server exited unexpectedly", "error", err)
		}
	}()

	s.logger.Info("health server started", "addr", addr)

	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false

	return s.http.Shutdown(ctx)
}

// Addr returns the bound listener's address. Only valid after Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln == nil {
		return ""
	}

	return s.ln.Addr().String()
}

func (s *Server) handleWorkerCount(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%d\n", s.workers.Count())
}

func (s *Server) handlePeers(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(s.peers.Peers())
}
