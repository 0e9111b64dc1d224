package main

import (
	"github.com/danmuck/stmmctl/internal/config"
	"github.com/danmuck/stmmctl/internal/observability"
	"github.com/danmuck/stmmctl/internal/protocol/session"
	"github.com/danmuck/stmmctl/internal/tee"
	"github.com/danmuck/stmmctl/internal/tee/loopback"
	"github.com/danmuck/stmmctl/internal/tee/optee"
)

func newDialer(cfg config.Config) tee.Dialer {
	var d tee.Dialer
	switch cfg.Transport {
	case config.TransportLoopback:
		lc := loopback.DefaultConfig()
		lc.Layout = cfg.Session.Layout
		lc.PayloadSize = cfg.Loopback.PayloadSize
		lc.Status = cfg.Loopback.Status
		d = loopback.New(lc)
	default:
		od := optee.NewDialer(cfg.Device)
		od.UUID = cfg.TAUUID
		d = od
	}
	return observability.InstrumentDialer(cfg.Transport, d)
}

func newSession(cfg config.Config) *session.Session {
	return session.New(newDialer(cfg), cfg.Session)
}
