package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const defaultShutdownTimeout = 20 * time.Second

type Server struct {
	*http.Server
	// CleanUpFuncs run after the http server has drained, in order. Each
	// receives the shutdown context and should respect its deadline.
	CleanUpFuncs []func(ctx context.Context)
	// ShutdownTimeout bounds graceful shutdown, including cleanup.
	// Zero means defaultShutdownTimeout.
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// Start serves until ctx is cancelled, then shuts down gracefully and runs
// the cleanup functions. It returns the listener error, if any.
func (s *Server) Start(ctx context.Context) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s.Server.BaseContext = func(_ net.Listener) context.Context {
		return ctx
	}

	done := make(chan struct{})

	go func() {
		defer close(done)
		<-ctx.Done()

		logger.Info("server shutting down")

		timeout := s.ShutdownTimeout
		if timeout == 0 {
			timeout = defaultShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := s.Server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("err", err))
		}

		for _, cf := range s.CleanUpFuncs {
			cf(shutdownCtx)
		}
	}()

	logger.Info("server started", slog.String("addr", s.Server.Addr))

	err := s.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-done
	return nil
}
