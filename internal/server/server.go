package server

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/copyleftdev/simplexopt/internal/config"
	apierrors "github.com/copyleftdev/simplexopt/internal/errors"
	"github.com/copyleftdev/simplexopt/internal/logging"
	"github.com/copyleftdev/simplexopt/internal/optimization/multistart"
	"github.com/copyleftdev/simplexopt/internal/optimization/problems"
)

// Logger defines the logging interface used by the server
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// Status of an optimization job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the job can no longer change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// OptimizationState tracks one optimization job. Fields other than calls
// are guarded by Server.optimizationsMu.
type OptimizationState struct {
	ID          string
	Problem     string
	Status      Status
	StartTime   time.Time
	EndTime     *time.Time
	LastUpdated time.Time
	Request     StartRequest
	Report      *multistart.Report
	Err         error
	CancelFunc  context.CancelFunc

	// calls counts objective evaluations while the job runs
	calls atomic.Int64
	done  chan struct{}
}

// Server implements the HTTP and JSON-RPC server for the optimization service.
// It manages optimization jobs and provides endpoints to start, monitor, and cancel them.
type Server struct {
	cfg      *config.Config
	logger   Logger
	zlog     *zap.Logger
	problems *problems.Registry
	metrics  *metrics

	// slots bounds the number of starting points solved at once across
	// all jobs
	slots chan struct{}
	wg    sync.WaitGroup

	optimizations   map[string]*OptimizationState
	optimizationsMu sync.RWMutex
}

// Option customizes a Server.
type Option func(*Server)

// WithProblems replaces the built-in problem registry.
func WithProblems(r *problems.Registry) Option {
	return func(s *Server) { s.problems = r }
}

// NewServer creates a new server instance with the given config and logger.
// Optimizer progress is logged through a zap logger backed by the same
// Logger.
func NewServer(cfg *config.Config, logger Logger, opts ...Option) *Server {
	workers := cfg.Optimization.WorkerCount
	if workers < 1 {
		workers = 1
	}
	s := &Server{
		cfg:           cfg,
		logger:        logger,
		zlog:          logging.NewZapLogger(logger.WithFields(map[string]interface{}{"component": "optimizer"})),
		problems:      problems.Default(),
		metrics:       newMetrics(),
		slots:         make(chan struct{}, workers),
		optimizations: make(map[string]*OptimizationState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/optimize", s.handleOptimize)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/optimization/{id}", s.handleCancel)
		r.Get("/problems", s.handleProblems)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

func (s *Server) lookup(id string) (*OptimizationState, error) {
	if id == "" {
		return nil, apierrors.New(apierrors.KindInvalidInput, "optimization_id is required")
	}
	s.optimizationsMu.RLock()
	defer s.optimizationsMu.RUnlock()
	state, ok := s.optimizations[id]
	if !ok {
		return nil, apierrors.Errorf(apierrors.KindNotFound, "optimization %s not found", id)
	}
	return state, nil
}

// Wait blocks until the job with the given id has finished or ctx is done.
func (s *Server) Wait(ctx context.Context, id string) error {
	state, err := s.lookup(id)
	if err != nil {
		return err
	}
	select {
	case <-state.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels all running optimizations and waits for them to stop.
func (s *Server) Close() error {
	s.optimizationsMu.Lock()
	for _, opt := range s.optimizations {
		if opt.CancelFunc != nil {
			opt.CancelFunc()
		}
	}
	s.optimizationsMu.Unlock()

	s.wg.Wait()
	return nil
}
