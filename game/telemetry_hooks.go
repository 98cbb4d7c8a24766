package game

import "log/slog"

// flushTelemetry closes the stats window when it is due.
func (g *Game) flushTelemetry() {
	if g.tick%g.statsWindowTicks != 0 {
		return
	}

	stats := g.Stats()
	perfStats := g.perfCollector.Stats()
	g.lastStats = stats
	g.windowRecovered = 0

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if stats.Recovered > 0 {
		slog.Warn("agents recovered from non-finite updates", "tick", g.tick, "recovered", stats.Recovered)
	}

	if g.outputManager != nil {
		if err := g.outputManager.WriteStats(stats); err != nil {
			slog.Error("failed to write stats", "error", err)
		}
		if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}
}
