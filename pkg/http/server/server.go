// Package httpserver runs an http.Server in the background.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

const (
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 5 * time.Second
	defaultAddr            = ":80"
	defaultShutdownTimeout = 3 * time.Second
)

// Server serves a handler until Shutdown.
type Server struct {
	server          *http.Server
	listener        net.Listener
	errCh           chan error
	shutdownTimeout time.Duration
}

// Options configures a Server. Zero values take defaults.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Addr == "" {
		o.Addr = defaultAddr
	}

	if o.ReadTimeout <= 0 {
		o.ReadTimeout = defaultReadTimeout
	}

	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}

	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = defaultShutdownTimeout
	}

	return o
}

// New binds opt.Addr and starts serving handler in the background.
func New(handler http.Handler, opt Options) (*Server, error) {
	opt = opt.withDefaults()

	ln, err := net.Listen("tcp", opt.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", opt.Addr, err)
	}

	srv := &Server{
		server: &http.Server{
			Handler:           handler,
			ReadTimeout:       opt.ReadTimeout,
			ReadHeaderTimeout: opt.ReadTimeout,
			WriteTimeout:      opt.WriteTimeout,
		},
		listener:        ln,
		errCh:           make(chan error, 1),
		shutdownTimeout: opt.ShutdownTimeout,
	}

	go srv.start()

	return srv, nil
}

func (s *Server) start() {
	s.errCh <- s.server.Serve(s.listener)
	close(s.errCh)
}

// Addr returns the bound address, useful when Options.Addr used port 0.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Notify delivers the error that stopped the server, then closes.
// After Shutdown the error is http.ErrServerClosed.
func (s *Server) Notify() <-chan error {
	return s.errCh
}

// Shutdown stops accepting connections and waits for active requests.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
