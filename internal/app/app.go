// Package app assembles the wallet service with fx.
package app

import (
	"storefront-wallet/config"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

// Module is the whole application graph. opts are appended last so callers
// can fx.Replace or fx.Decorate parts of it.
func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		StorageModule,
		ProviderModule,
		ServiceModule,
		HTTPModule,
	}
	return fx.Options(append(modules, opts...)...)
}

// New builds the application for cfg.
func New(cfg *config.Config, log zerolog.Logger, opts ...fx.Option) *fx.App {
	return fx.New(
		fx.WithLogger(func() fxevent.Logger { return NewFxLogger(log) }),
		fx.Supply(cfg, log),
		Module(opts...),
	)
}
