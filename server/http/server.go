package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/w-h-a/cervello/server"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type httpServer struct {
	options server.Options
	server  *http.Server
}

func (s *httpServer) Options() server.Options {
	return s.options
}

func (s *httpServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		slog.InfoContext(ctx, "http server listening", "name", s.options.Name, "address", s.options.Address)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
	defer cancel()

	slog.InfoContext(ctx, "http server shutting down", "name", s.options.Name)

	return s.server.Shutdown(shutdownCtx)
}

// Handler returns the fully wrapped handler the server serves.
func Handler(options server.Options) http.Handler {
	h, ok := HandlerFrom(options.Context)
	if !ok || h == nil {
		h = http.NotFoundHandler()
	}

	ms, _ := MiddlewareFrom(options.Context)

	for i := len(ms) - 1; i >= 0; i-- {
		h = ms[i](h)
	}

	return otelhttp.NewHandler(h, options.Name)
}

func NewServer(opts ...server.Option) server.Server {
	options := server.NewOptions(opts...)

	if _, ok := HandlerFrom(options.Context); !ok {
		panic("missing handler for http server")
	}

	return &httpServer{
		options: options,
		server: &http.Server{
			Addr:              options.Address,
			Handler:           Handler(options),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}
