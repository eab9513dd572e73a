// Package middleware provides instrumentation for reactive runtimes.
//
// This package includes:
//   - Prometheus metrics for writes, recomputes, runs and flush passes
//   - OpenTelemetry spans for flushes, recomputes and runs
//   - Chain, which fans events out to several instrumentations
//
// # Prometheus Metrics
//
//	rt := reactive.NewRuntime(reactive.Config{
//	    Instrumentation: middleware.Prometheus(),
//	})
//
// Then expose metrics:
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # OpenTelemetry
//
//	middleware.OpenTelemetry(
//	    middleware.WithTracerName("my-app"),
//	    middleware.WithEventFilter(func(ev reactive.Event) bool {
//	        return ev.Kind != reactive.EventRecompute
//	    }),
//	)
//
// # Combining
//
//	reactive.Config{
//	    Instrumentation: middleware.Chain(
//	        middleware.Prometheus(),
//	        middleware.OpenTelemetry(),
//	    ),
//	}
//
// Instrumentations are called synchronously on the runtime goroutine.
package middleware
