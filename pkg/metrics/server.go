package metrics

import (
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Serve starts a metrics HTTP server on listen, answering path with the
// collector's metrics and 404 for anything else. It returns immediately;
// call Shutdown on the returned server to stop it.
func Serve(c *Collector, listen, path string, logger *zap.Logger) *fasthttp.Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	server := &fasthttp.Server{
		Handler:            Handler(c, path),
		Name:               "nativekit-metrics",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		MaxRequestBodySize: 1024,
	}
	go func() {
		logger.Info("Metrics server listening", zap.String("listen", listen), zap.String("path", path))
		if err := server.ListenAndServe(listen); err != nil {
			logger.Error("Metrics server stopped", zap.String("listen", listen), zap.Error(err))
		}
	}()
	return server
}

// Handler routes path to the collector.
func Handler(c *Collector, path string) fasthttp.RequestHandler {
	if path == "" {
		path = "/metrics"
	}
	return func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != path {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			return
		}
		c.ServeHTTP(ctx)
	}
}
