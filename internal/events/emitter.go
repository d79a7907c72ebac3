package events

import "context"

// Emit forwards an event to the frontend. It defaults to a no-op so
// services can emit unconditionally in tests; main enables the Wails
// runtime emitter at startup.
var Emit = func(ctx context.Context, name string, evt AppEvent) {}

func EnableRuntimeEmitter() {
	Emit = func(ctx context.Context, name string, evt AppEvent) {
		if ctx == nil {
			return
		}
		emitRuntimeEvent(ctx, name, evt)
		logRuntimeEvent(ctx, name, evt)
	}
}

func SetCustomEmitter(f func(ctx context.Context, name string, evt AppEvent)) {
	if f == nil {
		Emit = func(context.Context, string, AppEvent) {}
		return
	}
	Emit = f
}
