package test

import (
	"go.uber.org/fx"
)

// LifecycleRecorder collects fx hooks so tests can run OnStart/OnStop
// by hand instead of spinning a real fx app.
type LifecycleRecorder struct {
	Hooks []fx.Hook
}

func (l *LifecycleRecorder) Append(h fx.Hook) {
	l.Hooks = append(l.Hooks, h)
}

// ShutdownerStub signals Called once per Shutdown without blocking the
// caller when nobody is receiving.
type ShutdownerStub struct {
	Called chan struct{}
}

func (s *ShutdownerStub) Shutdown(...fx.ShutdownOption) error {
	if s.Called == nil {
		return nil
	}
	select {
	case s.Called <- struct{}{}:
	default:
	}
	return nil
}
