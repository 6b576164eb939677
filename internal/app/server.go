package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"garagem/internal/httpapi"
)

const shutdownTimeout = 10 * time.Second

// Handler returns the HTTP API wired to this app.
func (a *GarageApp) Handler() http.Handler {
	return httpapi.NewRouter(httpapi.Options{
		Service:        a.service,
		Engine:         a.engine,
		Scheduler:      a.scheduler,
		Sessions:       a.sessions,
		Dispatcher:     a.dispatcher,
		Ledger:         a.ledger,
		Logger:         a.logger,
		AllowedOrigins: a.cfg.HTTP.AllowedOrigins,
	})
}

// RunServer serves the HTTP API until ctx is cancelled. The reminder
// scheduler starts right away when someone is logged in and follows
// logins and logouts afterwards.
func (a *GarageApp) RunServer(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.HTTP.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.HTTP.Listen, err)
	}
	return a.serve(ctx, ln)
}

func (a *GarageApp) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	user, err := a.sessions.CurrentUser(ctx)
	if err != nil {
		a.logger.Warn("could not read session", "error", err)
	}
	if user != nil {
		a.scheduler.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		a.scheduler.Stop()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	a.scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	a.scheduler.Wait()
	return nil
}
