package telnet

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/chatrooms/internal/config"
)

// SessionHandler runs the chat loop for one Telnet client.
type SessionHandler interface {
	HandleSession(ctx context.Context, conn *Conn) error
}

// Acceptor listens for Telnet connections on a TCP port and dispatches
// each connection to a SessionHandler.
type Acceptor struct {
	cfg     config.TelnetConfig
	handler SessionHandler
	logger  *zap.Logger

	// sessions is cancelled by Stop; every HandleSession runs under it.
	sessions context.Context
	cancel   context.CancelFunc

	mu       sync.Mutex
	listener net.Listener
	conns    map[string]*Conn
	wg       sync.WaitGroup
	running  bool
}

// NewAcceptor creates a Telnet acceptor with the given configuration.
//
// Precondition: cfg must have a valid port; handler and logger must be non-nil.
// Postcondition: Returns an Acceptor ready to be started with ListenAndServe.
func NewAcceptor(cfg config.TelnetConfig, handler SessionHandler, logger *zap.Logger) *Acceptor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Acceptor{
		cfg:      cfg,
		handler:  handler,
		logger:   logger,
		sessions: ctx,
		cancel:   cancel,
		conns:    make(map[string]*Conn),
	}
}

// ListenAndServe starts the TCP listener and accepts connections until Stop
// is called. It blocks until the acceptor is stopped.
//
// Precondition: The acceptor must not already be running.
// Postcondition: The listener is closed when this method returns.
func (a *Acceptor) ListenAndServe() error {
	start := time.Now()

	listener, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Addr(), err)
	}

	a.mu.Lock()
	a.listener = listener
	a.running = true
	a.mu.Unlock()

	a.logger.Info("telnet acceptor listening",
		zap.String("addr", listener.Addr().String()),
		zap.Duration("startup", time.Since(start)),
	)

	for {
		raw, err := listener.Accept()
		if err != nil {
			if a.sessions.Err() != nil {
				return nil
			}
			a.logger.Error("accepting connection", zap.Error(err))
			continue
		}

		conn := NewConn(raw, uuid.NewString(), a.cfg.ReadTimeout, a.cfg.WriteTimeout)
		a.mu.Lock()
		if !a.running {
			a.mu.Unlock()
			_ = raw.Close()
			return nil
		}
		a.conns[conn.ID()] = conn
		a.wg.Add(1)
		a.mu.Unlock()

		go a.handleConn(conn)
	}
}

func (a *Acceptor) handleConn(conn *Conn) {
	defer a.wg.Done()
	start := time.Now()
	fields := []zap.Field{
		zap.String("conn_id", conn.ID()),
		zap.String("remote_addr", conn.RemoteAddr().String()),
	}
	a.logger.Info("client connected", fields...)

	defer func() {
		a.mu.Lock()
		delete(a.conns, conn.ID())
		a.mu.Unlock()
		_ = conn.Close()
	}()

	if err := conn.Negotiate(); err != nil {
		a.logger.Error("telnet negotiation failed", append(fields, zap.Error(err))...)
		return
	}

	if err := a.handler.HandleSession(a.sessions, conn); err != nil {
		a.logger.Debug("session ended",
			append(fields, zap.Error(err), zap.Duration("duration", time.Since(start)))...,
		)
		return
	}
	a.logger.Info("session ended cleanly", append(fields, zap.Duration("duration", time.Since(start)))...)
}

// Stop closes the listener and every live connection, then waits for the
// session goroutines to finish or ctx to expire.
//
// Postcondition: Returns nil once all sessions have exited, or ctx.Err().
func (a *Acceptor) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	a.cancel()
	if a.listener != nil {
		_ = a.listener.Close()
	}
	for _, conn := range a.conns {
		_ = conn.Close()
	}
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		a.logger.Info("telnet acceptor stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for telnet sessions: %w", ctx.Err())
	}
}

// Addr returns the actual listening address, or empty string if not yet listening.
func (a *Acceptor) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return ""
}

// IsRunning returns whether the acceptor is currently accepting connections.
func (a *Acceptor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// ActiveConnections returns the number of open client connections.
func (a *Acceptor) ActiveConnections() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.conns)
}
