package l4extras

import (
	"math/rand/v2"
	"sort"

	"github.com/banshee-data/anchorstage/internal/config"
	"github.com/banshee-data/anchorstage/internal/stage/raster"
	"github.com/banshee-data/anchorstage/internal/stage/scene"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// PlacementConfig controls the procedural sampler.
type PlacementConfig struct {
	Density          int                // extras wanted
	MotionMix        map[string]float64 // non-negative weights per motion type
	MinSeparation    float64            // metres between extras (default: 0.25)
	AttemptsPerExtra int                // sampling budget per extra (default: 30)

	XMin, XMax float64 // lateral placement box (default: −4..4)
	ZMin, ZMax float64 // depth placement box (default: 1.5..9)
	MaxYawDeg  float64 // yaw drawn from ±MaxYawDeg (default: 20)
}

// DefaultPlacementConfig returns the stock sampler settings for density
// extras with the given motion mix.
func DefaultPlacementConfig(density int, mix map[string]float64) PlacementConfig {
	return PlacementConfig{
		Density:          density,
		MotionMix:        mix,
		MinSeparation:    0.25,
		AttemptsPerExtra: 30,
		XMin:             -4,
		XMax:             4,
		ZMin:             1.5,
		ZMax:             9,
		MaxYawDeg:        20,
	}
}

// PlacementConfigFromTuning builds a PlacementConfig from a loaded
// TuningConfig.
func PlacementConfigFromTuning(cfg *config.TuningConfig, density int, mix map[string]float64) PlacementConfig {
	pc := DefaultPlacementConfig(density, mix)
	pc.MinSeparation = cfg.GetExtrasMinSeparation()
	pc.AttemptsPerExtra = cfg.GetExtrasAttemptsPerExtra()
	return pc
}

// Place samples up to cfg.Density placements on the ground of s and stores
// them as s.Extras, replacing any previous list. Candidates closer than
// MinSeparation to an accepted extra are rejected; sampling stops after
// Density·AttemptsPerExtra draws. No density or no assets gives an empty
// list.
func Place(s *scene.Scene, assets []scene.ExtraAsset, cfg PlacementConfig, rng *rand.Rand) []scene.ExtraPlacement {
	if cfg.Density <= 0 || len(assets) == 0 {
		s.Extras = []scene.ExtraPlacement{}
		return s.Extras
	}

	groundY := GroundHeight(s.Depth)
	placed := make([]scene.ExtraPlacement, 0, cfg.Density)
	budget := cfg.Density * cfg.AttemptsPerExtra
	attempts := 0
	for len(placed) < cfg.Density && attempts < budget {
		attempts++
		p := r3.Vec{
			X: uniform(rng, cfg.XMin, cfg.XMax),
			Y: groundY,
			Z: uniform(rng, cfg.ZMin, cfg.ZMax),
		}
		if tooClose(p, placed, cfg.MinSeparation) {
			continue
		}

		motion := SampleMotion(cfg.MotionMix, rng)
		candidates := assetsWithMotion(assets, motion)
		a := candidates[rng.IntN(len(candidates))]
		placed = append(placed, scene.ExtraPlacement{
			AssetID:       a.ID,
			WorldPosition: p,
			YawDeg:        uniform(rng, -cfg.MaxYawDeg, cfg.MaxYawDeg),
			LoopOffset:    rng.Float64(),
		})
		tracef("placed %s (%s) at %.2f,%.2f", a.ID, motion, p.X, p.Z)
	}

	diagf("scene %s: placed %d of %d extras in %d attempts", s.ID, len(placed), cfg.Density, attempts)
	s.Extras = placed
	return placed
}

// SampleMotion draws a motion type with probability proportional to its
// weight; negative weights count as zero. Keys are visited in sorted order
// so the draw is reproducible. A non-positive total gives "walk"; a draw
// that misses every bucket gives the first key.
func SampleMotion(mix map[string]float64, rng *rand.Rand) string {
	keys := make([]string, 0, len(mix))
	total := 0.0
	for k, v := range mix {
		keys = append(keys, k)
		total += max(0, v)
	}
	if total <= 0 {
		return scene.MotionWalk
	}
	sort.Strings(keys)

	t := rng.Float64() * total
	run := 0.0
	for _, k := range keys {
		run += max(0, mix[k])
		if t <= run {
			return k
		}
	}
	return keys[0]
}

// GroundHeight estimates the camera-space height of the ground plane from
// the median depth of the bottom fifth of the depth map.
func GroundHeight(d *raster.Map) float64 {
	if d == nil || d.H == 0 {
		return 0
	}
	bottom := d.Rows(int(float64(d.H)*0.8), d.H)
	if len(bottom) == 0 {
		return 0
	}
	sort.Float64s(bottom)
	return stat.Quantile(0.5, stat.LinInterp, bottom, nil) * 0.02
}

func assetsWithMotion(assets []scene.ExtraAsset, motion string) []scene.ExtraAsset {
	var out []scene.ExtraAsset
	for _, a := range assets {
		if a.MotionType == motion {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return assets
	}
	return out
}

func tooClose(p r3.Vec, placed []scene.ExtraPlacement, minDist float64) bool {
	for _, e := range placed {
		if r3.Norm(r3.Sub(p, e.WorldPosition)) < minDist {
			return true
		}
	}
	return false
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}
