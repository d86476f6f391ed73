// Package server runs the chat server's listeners as named services with
// ordered startup and signal-driven shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// DefaultShutdownTimeout bounds how long each service may take to stop.
const DefaultShutdownTimeout = 10 * time.Second

// Service is a long-running listener.
type Service interface {
	// Start runs the service and blocks until it is stopped or fails.
	// Returning nil after Stop is a clean exit.
	Start() error
	// Stop asks the service to shut down, giving up when ctx expires.
	Stop(ctx context.Context) error
}

// FuncService adapts a start/stop function pair into the Service interface.
type FuncService struct {
	StartFn func() error
	StopFn  func(ctx context.Context) error
}

// Start calls the underlying start function.
func (f *FuncService) Start() error { return f.StartFn() }

// Stop calls the underlying stop function, if any.
func (f *FuncService) Stop(ctx context.Context) error {
	if f.StopFn == nil {
		return nil
	}
	return f.StopFn(ctx)
}

// Lifecycle manages the startup and shutdown of multiple services.
// Services are started in order and stopped in reverse order.
type Lifecycle struct {
	logger          *zap.Logger
	services        []namedService
	shutdownTimeout time.Duration
	signals         []os.Signal
	mu              sync.Mutex
}

type namedService struct {
	name    string
	service Service
}

// NewLifecycle creates a Lifecycle that stops on SIGINT or SIGTERM.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{
		logger:          logger,
		shutdownTimeout: DefaultShutdownTimeout,
		signals:         []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// SetShutdownTimeout overrides the per-service stop deadline.
func (l *Lifecycle) SetShutdownTimeout(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.shutdownTimeout = d
}

// Add registers a named service. Services start in the order they are added.
//
// Precondition: svc must be non-nil.
// Postcondition: Returns an error if name is empty or already registered.
func (l *Lifecycle) Add(name string, svc Service) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if name == "" {
		return errors.New("service name must not be empty")
	}
	for _, ns := range l.services {
		if ns.name == name {
			return fmt.Errorf("service %q already registered", name)
		}
	}
	l.services = append(l.services, namedService{name: name, service: svc})
	return nil
}

// Run starts all services and blocks until a termination signal, context
// cancellation or the first service failure, then stops every service in
// reverse order.
//
// Postcondition: All services are stopped. Returns the first service failure,
// joined with any stop errors, or nil on a requested shutdown.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	l.mu.Lock()
	services := append([]namedService(nil), l.services...)
	l.mu.Unlock()

	errCh := make(chan error, len(services))
	for _, ns := range services {
		go func() {
			l.logger.Info("starting service", zap.String("service", ns.name))
			svcStart := time.Now()
			if err := ns.service.Start(); err != nil {
				l.logger.Error("service failed",
					zap.String("service", ns.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(svcStart)),
				)
				errCh <- fmt.Errorf("service %s: %w", ns.name, err)
			}
		}()
	}

	l.logger.Info("all services started",
		zap.Int("count", len(services)),
		zap.Duration("startup", time.Since(start)),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, l.signals...)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		l.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case runErr = <-errCh:
		l.logger.Error("service error, shutting down", zap.Error(runErr))
	case <-ctx.Done():
		l.logger.Info("context cancelled, shutting down")
	}

	stopErr := l.shutdown(services)

	l.logger.Info("shutdown complete", zap.Duration("total_uptime", time.Since(start)))
	return errors.Join(runErr, stopErr)
}

func (l *Lifecycle) shutdown(services []namedService) error {
	shutdownStart := time.Now()
	l.mu.Lock()
	timeout := l.shutdownTimeout
	l.mu.Unlock()

	var errs []error
	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		svcStart := time.Now()
		l.logger.Info("stopping service", zap.String("service", ns.name))

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		err := ns.service.Stop(ctx)
		cancel()
		if err != nil {
			l.logger.Warn("service stop failed", zap.String("service", ns.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("stopping %s: %w", ns.name, err))
			continue
		}
		l.logger.Info("service stopped",
			zap.String("service", ns.name),
			zap.Duration("elapsed", time.Since(svcStart)),
		)
	}
	l.logger.Info("all services stopped", zap.Duration("shutdown_elapsed", time.Since(shutdownStart)))
	return errors.Join(errs...)
}
