package cleanup

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("cleanup",
	fx.Provide(NewWorker),
)

// Scheduled starts the periodic sweep with the application lifecycle.
var Scheduled = fx.Invoke(registerWorker)

func registerWorker(lc fx.Lifecycle, worker *Worker) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				worker.RunForever(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}
