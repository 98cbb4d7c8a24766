package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/flock/geom"
)

// spacingSample is how many agents the minimum-spacing probe scans.
const spacingSample = 64

// FlockStats is a snapshot of flock shape taken at a window boundary.
type FlockStats struct {
	WindowEndTick int32   `csv:"window_end"`
	SimTimeSec    float64 `csv:"sim_time"`

	Count     int `csv:"count"`
	NonFinite int `csv:"non_finite"`
	Recovered int `csv:"recovered"`

	// Agents in front of the follow camera. Filled in by the driver.
	Visible int `csv:"visible"`

	CenterX float64 `csv:"center_x"`
	CenterY float64 `csv:"center_y"`
	CenterZ float64 `csv:"center_z"`

	// Distance of each agent to the center.
	SpreadMean float64 `csv:"spread_mean"`
	SpreadStd  float64 `csv:"spread_std"`
	SpreadP90  float64 `csv:"spread_p90"`

	DestDistMean float64 `csv:"dest_dist_mean"`

	// Length of the mean forward vector: 1 when aligned, near 0 when not.
	Polarization float64 `csv:"polarization"`

	// Smallest neighbor distance among the first spacingSample agents.
	MinSpacing float64 `csv:"min_spacing"`
}

// ComputeFlockStats summarizes current. Agents with non-finite transforms
// are counted but excluded from every distribution.
func ComputeFlockStats(current []geom.Mat4, center, destination geom.Vec3, recovered int) FlockStats {
	s := FlockStats{
		Count:     len(current),
		Recovered: recovered,
		CenterX:   float64(center.X),
		CenterY:   float64(center.Y),
		CenterZ:   float64(center.Z),
	}

	spread := make([]float64, 0, len(current))
	destDist := make([]float64, 0, len(current))
	var fx, fy, fz float64
	for i := range current {
		m := &current[i]
		if !m.IsFinite() {
			s.NonFinite++
			continue
		}
		pos := geom.Position(m)
		spread = append(spread, float64(pos.Sub(center).Len()))
		destDist = append(destDist, float64(pos.Sub(destination).Len()))

		fwd := geom.Forward(m)
		fx += float64(fwd.X)
		fy += float64(fwd.Y)
		fz += float64(fwd.Z)
	}

	n := len(spread)
	if n == 0 {
		return s
	}

	s.SpreadMean, s.SpreadStd = stat.PopMeanStdDev(spread, nil)
	sort.Float64s(spread)
	s.SpreadP90 = stat.Quantile(0.9, stat.Empirical, spread, nil)
	s.DestDistMean = stat.Mean(destDist, nil)

	fx, fy, fz = fx/float64(n), fy/float64(n), fz/float64(n)
	s.Polarization = math.Sqrt(fx*fx + fy*fy + fz*fz)
	s.MinSpacing = minSpacing(current)
	return s
}

func minSpacing(current []geom.Mat4) float64 {
	best := math.Inf(1)
	probe := min(len(current), spacingSample)
	for i := 0; i < probe; i++ {
		if !current[i].IsFinite() {
			continue
		}
		pi := geom.Position(&current[i])
		for j := range current {
			if j == i || !current[j].IsFinite() {
				continue
			}
			if d := float64(pi.Sub(geom.Position(&current[j])).Len()); d < best {
				best = d
			}
		}
	}
	if math.IsInf(best, 1) {
		return 0
	}
	return best
}

// LogValue implements slog.LogValuer.
func (s FlockStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("count", s.Count),
		slog.Int("non_finite", s.NonFinite),
		slog.Int("recovered", s.Recovered),
		slog.Int("visible", s.Visible),
		slog.Float64("center_x", s.CenterX),
		slog.Float64("center_y", s.CenterY),
		slog.Float64("center_z", s.CenterZ),
		slog.Float64("spread_mean", s.SpreadMean),
		slog.Float64("spread_std", s.SpreadStd),
		slog.Float64("spread_p90", s.SpreadP90),
		slog.Float64("dest_dist_mean", s.DestDistMean),
		slog.Float64("polarization", s.Polarization),
		slog.Float64("min_spacing", s.MinSpacing),
	)
}

// LogStats logs the snapshot with slog.
func (s FlockStats) LogStats() {
	slog.Info("stats", "flock", s)
}
