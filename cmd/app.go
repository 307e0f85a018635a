package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/weldvault/qualify-cli/internal/engine"
	"github.com/weldvault/qualify-cli/internal/qualcode"
	"github.com/weldvault/qualify-cli/internal/store"
)

// app bundles the wired components every command needs.
type app struct {
	Registry *qualcode.Registry
	Engine   *engine.Engine
	Store    store.Store
}

func (a *app) Close() {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}

// newRegistry installs the built-in codes. Registration order encodes
// code priority: ASME IX before AWS D1.1.
func newRegistry() *qualcode.Registry {
	r := qualcode.NewRegistry()
	r.Register(qualcode.ASMEIX{})
	r.Register(qualcode.AWSD11{})
	return r
}

// initApp opens the store, migrates it, and wires the engine with the
// store as its read-only lookup handle.
func initApp(ctx context.Context) (*app, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	reg := newRegistry()
	return &app{
		Registry: reg,
		Engine:   engine.New(reg, st),
		Store:    st,
	}, nil
}
