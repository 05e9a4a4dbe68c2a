package main

import (
	"log/slog"

	"github.com/ldelvillar/snap-notes-sub000/internal/config"

	"github.com/grafana/pyroscope-go"
)

// startProfiler pushes continuous profiles when PYROSCOPE_SERVER is set.
// The returned stop function is never nil.
func startProfiler(cfg config.Config, log *slog.Logger) func() {
	if cfg.PyroscopeServer == "" {
		return func() {}
	}

	p, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: "snap-notes",
		ServerAddress:   cfg.PyroscopeServer,
		Tags:            map[string]string{"store": cfg.StoreDriver},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
	if err != nil {
		// profiling is optional; the server runs without it
		log.Warn("pyroscope start failed", "server", cfg.PyroscopeServer, "err", err)
		return func() {}
	}

	log.Info("continuous profiling enabled", "server", cfg.PyroscopeServer)
	return func() {
		if err := p.Stop(); err != nil {
			log.Warn("pyroscope stop failed", "err", err)
		}
	}
}
