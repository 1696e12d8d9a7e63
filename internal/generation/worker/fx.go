package worker

import (
	"context"

	appconfig "github.com/jadiazinf/condominio-core/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("generation.worker",
	fx.Provide(configFromApp),
	fx.Provide(NewWorker),
	fx.Invoke(runWorker),
)

func configFromApp(cfg appconfig.Config) Config {
	return Config{
		PollInterval: cfg.Worker.PollInterval,
		RunTimeout:   cfg.Worker.RunTimeout,
	}.withDefaults()
}

func runWorker(lc fx.Lifecycle, cfg appconfig.Config, worker *Worker) {
	if !cfg.Worker.Enabled {
		return
	}

	// The loop must outlive the OnStart context, which is cancelled as soon
	// as startup finishes.
	loopCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go worker.RunForever(loopCtx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
