// Command storefront is a terminal client for the Studioform store.
package main

import (
	"context"
	"os"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/studioform/storefront/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		return run(ctx, lg, os.Args[1:], env{
			in:  os.Stdin,
			out: os.Stdout,
			err: os.Stderr,
			opts: appkg.Options{
				TracerProvider: m.TracerProvider(),
				MeterProvider:  m.MeterProvider(),
			},
		})
	})
}
