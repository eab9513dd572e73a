package middleware

import "github.com/fmal/impact/pkg/reactive"

// Chain fans every event out to each non-nil instrumentation in order.
func Chain(instrumentations ...reactive.Instrumentation) reactive.Instrumentation {
	list := make([]reactive.Instrumentation, 0, len(instrumentations))
	for _, in := range instrumentations {
		if in != nil {
			list = append(list, in)
		}
	}
	return reactive.InstrumentationFunc(func(ev reactive.Event) {
		for _, in := range list {
			in.Observe(ev)
		}
	})
}
