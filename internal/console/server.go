// SPDX-License-Identifier: MPL-2.0

package console

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
)

// User is the SSH user name shown in connection hints. Any user name is
// accepted; only the token matters.
const User = "operator"

type (
	// Config holds the console settings. Zero values select defaults.
	Config struct {
		// Host is the bind address (default 127.0.0.1).
		Host string
		// Port is the listen port; 0 picks a free one.
		Port int
		// HostKeyPath stores the server's ed25519 host key, created on first
		// use. Empty uses an ephemeral key.
		HostKeyPath string
		// Token is the session password. Empty generates a random one.
		Token string
		// StartupTimeout bounds Start (default 5s).
		StartupTimeout time.Duration
		// ShutdownTimeout bounds Stop (default 10s).
		ShutdownTimeout time.Duration
		// Logger defaults to a charm logger on stderr with prefix "console".
		Logger *log.Logger
	}

	// Server is a single-use SSH console. Once stopped or failed, create a
	// new one.
	Server struct {
		lifecycle

		cfg    Config
		ops    Operator
		token  string
		logger *log.Logger

		srvMu    sync.Mutex
		srv      *ssh.Server
		listener net.Listener
		addr     string
	}
)

// New creates a console over ops. It does not listen until Start.
func New(cfg Config, ops Operator) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = 5 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "console"})
	}

	token := cfg.Token
	if token == "" {
		var err error
		if token, err = generateToken(); err != nil {
			return nil, err
		}
	}

	return &Server{
		lifecycle: newLifecycle(),
		cfg:       cfg,
		ops:       ops,
		token:     token,
		logger:    logger,
	}, nil
}

func generateToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Start listens and returns once the server accepts sessions, setup fails,
// ctx is cancelled or the startup timeout passes.
func (s *Server) Start(ctx context.Context) error {
	if err := s.toStarting(ctx); err != nil {
		return err
	}

	startupCtx, cancel := context.WithTimeout(ctx, s.cfg.StartupTimeout)
	defer cancel()

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var lc net.ListenConfig
	listener, err := lc.Listen(startupCtx, "tcp", addr)
	if err != nil {
		s.toFailed(fmt.Errorf("failed to listen on %s: %w", addr, err))
		return s.lastError()
	}

	opts := []ssh.Option{
		wish.WithAddress(listener.Addr().String()),
		wish.WithPublicKeyAuth(s.publicKeyHandler),
		wish.WithPasswordAuth(s.passwordHandler),
		wish.WithMiddleware(s.sessionMiddleware()),
	}
	if s.cfg.HostKeyPath != "" {
		opts = append(opts, wish.WithHostKeyPath(s.cfg.HostKeyPath))
	}
	srv, err := wish.NewServer(opts...)
	if err != nil {
		_ = listener.Close() //nolint:errcheck // best-effort cleanup
		s.toFailed(fmt.Errorf("failed to create SSH server: %w", err))
		return s.lastError()
	}

	s.srvMu.Lock()
	s.srv = srv
	s.listener = listener
	s.addr = listener.Addr().String()
	s.srvMu.Unlock()

	s.wg.Add(1)
	go s.serve()

	select {
	case <-s.startedCh:
		s.logger.Info("console listening", "address", s.addr)
		return nil
	case err := <-s.errCh:
		s.toFailed(err)
		return err
	case <-startupCtx.Done():
		s.toFailed(fmt.Errorf("startup timeout: %w", startupCtx.Err()))
		return s.lastError()
	}
}

func (s *Server) serve() {
	defer s.wg.Done()
	s.toRunning()

	s.srvMu.Lock()
	srv, listener := s.srv, s.listener
	s.srvMu.Unlock()

	err := srv.Serve(listener)
	if err != nil && !errors.Is(err, ssh.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
		s.sendError(fmt.Errorf("serve error: %w", err))
	}
}

// Stop shuts the server down, waiting up to the shutdown timeout for open
// sessions. Calling it again, or before Start, is a no-op.
func (s *Server) Stop() error {
	if !s.toStopping() {
		s.wg.Wait()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	var shutdownErr error
	s.srvMu.Lock()
	if s.srv != nil {
		if err := s.srv.Shutdown(ctx); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Error("shutdown error", "error", err)
			shutdownErr = err
		}
	}
	if s.listener != nil {
		_ = s.listener.Close() //nolint:errcheck // already closed by Shutdown in the common case
	}
	s.srvMu.Unlock()

	s.wg.Wait()
	s.toStopped()
	s.logger.Info("console stopped")
	return shutdownErr
}

// Wait blocks until the server stops and returns the failure, if any.
func (s *Server) Wait() error {
	s.wg.Wait()
	if s.State() == StateFailed {
		return s.lastError()
	}
	return nil
}

// Err receives fatal errors after Start returned. It is closed by Stop.
func (s *Server) Err() <-chan error { return s.errCh }

// State returns the current lifecycle state.
func (s *Server) State() State { return s.current() }

// Address returns the bound host:port, empty before Start succeeds.
func (s *Server) Address() string {
	s.srvMu.Lock()
	defer s.srvMu.Unlock()
	return s.addr
}

// Token returns the session password.
func (s *Server) Token() string { return s.token }

func (s *Server) passwordHandler(ctx ssh.Context, password string) bool {
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.token)) != 1 {
		s.logger.Warn("rejected console login", "user", ctx.User(), "remote", ctx.RemoteAddr().String())
		return false
	}
	s.logger.Debug("console login", "user", ctx.User(), "remote", ctx.RemoteAddr().String())
	return true
}

// publicKeyHandler rejects every key; only the session token is accepted.
func (s *Server) publicKeyHandler(ssh.Context, ssh.PublicKey) bool {
	return false
}
