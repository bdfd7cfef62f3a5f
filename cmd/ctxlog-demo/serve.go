// Copyright 2025 The Ctxlog Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"ctxlog.dev/ctxlog/logging"
	"ctxlog.dev/ctxlog/middleware"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		addr            string
		trustProxy      bool
		tracing         bool
		banner          bool
		shutdownTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an HTTP API whose request logs carry request and trace context",
		Example: `  ctxlog-demo serve --addr :8080
  CTXLOG_KAFKA_ENABLED=true CTXLOG_KAFKA_BROKERS=localhost:9092 CTXLOG_KAFKA_TOPIC=logs ctxlog-demo serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			settings, err := root.loadSettings(ctx)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			logger, err := setup(settings, reg)
			if err != nil {
				return err
			}

			var handler http.Handler = newRouter(logger, reg, middleware.WithTrustProxy(trustProxy))
			var tp *sdktrace.TracerProvider
			if tracing {
				if tp, err = newTracerProvider(cmd.ErrOrStderr(), settings.ServiceInfo()); err != nil {
					return errors.Join(err, logger.Close(context.WithoutCancel(ctx)))
				}
				handler = withServerSpan(tp, handler)
			}

			if banner {
				printBanner(cmd.OutOrStdout(), os.Environ(), bannerInfo{addr: addr, settings: settings, tracing: tracing})
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}
			err = serve(ctx, srv, logger, shutdownTimeout)
			if tp != nil {
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
				defer cancel()
				err = errors.Join(err, errors.Wrap(tp.Shutdown(shutdownCtx), "shutdown tracer provider"))
			}
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&trustProxy, "trust-proxy", false, "take client addresses from X-Forwarded-For")
	cmd.Flags().BoolVar(&tracing, "trace", false, "start a span per request and print finished spans to stderr")
	cmd.Flags().BoolVar(&banner, "banner", true, "print the startup banner")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 15*time.Second, "time allowed for in-flight requests and the final log flush")
	return cmd
}

// serve runs srv until ctx is done, then drains requests and closes the
// logger, which flushes any queued Kafka records.
func serve(ctx context.Context, srv *http.Server, logger *logging.Logger, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "listening", logging.Fields{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
		logger.Info(context.Background(), "shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	var errs []error
	if serveErr != nil {
		errs = append(errs, errors.Wrap(serveErr, "listen"))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, errors.Wrap(err, "shutdown server"))
	}
	if err := logger.Close(shutdownCtx); err != nil {
		errs = append(errs, errors.Wrap(err, "close logger"))
	}
	return errors.Join(errs...)
}

func newRouter(logger *logging.Logger, gatherer prometheus.Gatherer, opts ...middleware.Option) *mux.Router {
	r := mux.NewRouter()
	r.Use(mux.MiddlewareFunc(middleware.New(logger, append([]middleware.Option{
		middleware.WithExcludePaths("/healthz", "/metrics"),
	}, opts...)...)))

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/hello/{name}", handleHello).Methods(http.MethodGet)
	r.HandleFunc("/work", handleWork).Methods(http.MethodPost)
	r.HandleFunc("/fail", handleFail).Methods(http.MethodGet)
	return r
}
