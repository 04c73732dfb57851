// Package server runs an http.Handler on a background goroutine behind an
// idempotent start/stop lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zots0127/filedrop/internal/domain/entities"
	"github.com/zots0127/filedrop/internal/domain/repository"
	"github.com/zots0127/filedrop/pkg/config"
)

// Config holds listener settings shared by every start
type Config struct {
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns listener defaults
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		ReadTimeout:     5 * time.Minute,
		WriteTimeout:    5 * time.Minute,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// StateListener is notified after every state transition
type StateListener func(status entities.ServerStatus)

// Controller owns at most one running http.Server. Start and Stop are
// serialized and idempotent.
type Controller struct {
	handler  http.Handler
	config   Config
	logger   *zap.Logger
	onChange StateListener

	// opMu serializes Start and Stop including their notifications; mu
	// guards the fields below and is never held while calling onChange
	opMu     sync.Mutex
	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	port     int
	done     chan struct{}
}

// NewController creates a stopped controller serving handler
func NewController(handler http.Handler, cfg Config, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}
	return &Controller{
		handler: handler,
		config:  cfg,
		logger:  logger,
	}
}

// OnStateChange registers a listener for running/stopped transitions. The
// listener may call Status or Addr but must not call Start or Stop.
func (c *Controller) OnStateChange(fn StateListener) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Start binds port and serves on a background goroutine. The state flips
// to running only once the bind has succeeded; a bind failure wraps
// ErrBind and leaves the controller stopped. Starting a running controller
// returns the current status unchanged.
func (c *Controller) Start(port int) (entities.ServerStatus, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.srv != nil {
		status := c.statusLocked()
		c.mu.Unlock()
		return status, nil
	}
	c.mu.Unlock()

	if err := config.ValidatePort(port); err != nil {
		return entities.ServerStatus{}, err
	}

	addr := net.JoinHostPort(c.config.Host, strconv.Itoa(port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		c.logger.Error("failed to bind", zap.String("addr", addr), zap.Error(err))
		return entities.ServerStatus{}, fmt.Errorf("%w: %s: %w", repository.ErrBind, addr, err)
	}

	srv := &http.Server{
		Handler:      c.handler,
		ReadTimeout:  c.config.ReadTimeout,
		WriteTimeout: c.config.WriteTimeout,
		IdleTimeout:  c.config.IdleTimeout,
	}
	done := make(chan struct{})

	c.mu.Lock()
	c.srv = srv
	c.listener = listener
	c.port = port
	c.done = done
	status := c.statusLocked()
	c.mu.Unlock()

	go c.serve(srv, listener, done)

	c.logger.Info("server started", zap.String("addr", status.Address))
	c.notify(status)
	return status, nil
}

func (c *Controller) serve(srv *http.Server, listener net.Listener, done chan struct{}) {
	err := srv.Serve(listener)
	close(done)

	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return
	}

	// the listener died without Stop being called
	c.logger.Error("server stopped unexpectedly", zap.Error(err))
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.srv != srv {
		c.mu.Unlock()
		return
	}
	c.reset()
	status := c.statusLocked()
	c.mu.Unlock()
	c.notify(status)
}

// Stop shuts the server down. In-flight requests get the configured grace
// period, after which their connections are closed. When Stop returns the
// port is released. Stopping a stopped controller is a no-op.
func (c *Controller) Stop(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	srv, done, port := c.srv, c.done, c.port
	c.mu.Unlock()
	if srv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, c.config.ShutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		c.logger.Warn("graceful shutdown incomplete, closing connections", zap.Error(err))
		if closeErr := srv.Close(); closeErr != nil {
			c.logger.Warn("failed to close server", zap.Error(closeErr))
		}
	}
	<-done

	c.logger.Info("server stopped", zap.Int("port", port))
	c.mu.Lock()
	c.reset()
	status := c.statusLocked()
	c.mu.Unlock()
	c.notify(status)

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		// connections were force-closed; the socket is still released
		return nil
	}
	return err
}

// Status returns the current state
func (c *Controller) Status() entities.ServerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// Addr returns the bound address while running
func (c *Controller) Addr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listener == nil {
		return nil
	}
	return c.listener.Addr()
}

func (c *Controller) reset() {
	c.srv = nil
	c.listener = nil
	c.port = 0
	c.done = nil
}

func (c *Controller) statusLocked() entities.ServerStatus {
	if c.srv == nil {
		return entities.ServerStatus{}
	}
	return entities.ServerStatus{
		Running: true,
		Port:    c.port,
		Address: c.listener.Addr().String(),
	}
}

func (c *Controller) notify(status entities.ServerStatus) {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn(status)
	}
}
