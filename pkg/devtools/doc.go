// Package devtools serves a live view of a reactive runtime.
//
// A Hub is installed as (part of) the runtime's Instrumentation and keeps a
// ring buffer of recent events. The runtime goroutine publishes graph
// snapshots into it; Handler serves both over HTTP:
//
//	hub := devtools.NewHub(512)
//	rt := reactive.NewRuntime(reactive.Config{
//	    Instrumentation: middleware.Chain(hub, middleware.Prometheus()),
//	})
//	...
//	hub.Publish(rt.Snapshot()) // on the runtime goroutine
//
//	http.ListenAndServe(":7070", devtools.Handler(hub,
//	    devtools.WithGatherer(prometheus.DefaultGatherer),
//	))
package devtools
