package transport

import (
	"context"

	"github.com/meshwire/transport/internal/core/identity"
	"github.com/meshwire/transport/internal/core/shared"
	"github.com/meshwire/transport/internal/discovery"
	"github.com/meshwire/transport/pkg/interfaces"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Module wires the Core/Discoverer lifecycle into an fx.App, grounded
// on the teacher's per-package module.go convention: a default
// Discoverer is provided, and the Core singleton's start/stop edges are
// driven by fx.Lifecycle hooks rather than a bare constructor call.
// Using it is optional — Core and NewNode work standalone for callers
// (and tests) that don't want fx.
var Module = fx.Module("transport",
	fx.Provide(provideDiscoverer),
	fx.Invoke(registerCoreLifecycle),
)

func provideDiscoverer(lc fx.Lifecycle) (interfaces.Discoverer, error) {
	d, err := discovery.New(context.Background(), discovery.DefaultConfig(), ProcessID(), identity.Partition())
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return d.Close() },
	})
	return d, nil
}

func registerCoreLifecycle(lc fx.Lifecycle, discoverer interfaces.Discoverer) {
	var c *shared.Core
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			started, err := Core(ctx, discoverer)
			c = started
			return err
		},
		OnStop: func(context.Context) error {
			if c == nil {
				return nil
			}
			return c.Close()
		},
	})
}

// ZapEventLogger returns the fx event logger the teacher's own fx.go
// wires in (fxevent.ZapLogger), so embedders get the same fx startup/
// shutdown diagnostics without having to know fx's zap adapter exists.
func ZapEventLogger() fxevent.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	return &fxevent.ZapLogger{Logger: logger}
}
