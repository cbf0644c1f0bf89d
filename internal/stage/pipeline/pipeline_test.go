package pipeline

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/banshee-data/anchorstage/internal/config"
	"github.com/banshee-data/anchorstage/internal/stage/l2proxy"
	"github.com/banshee-data/anchorstage/internal/stage/l3reproject"
	"github.com/banshee-data/anchorstage/internal/stage/raster"
	"github.com/banshee-data/anchorstage/internal/stage/scene"
	"github.com/banshee-data/anchorstage/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func newPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := New(DefaultConfig())
	require.NoError(t, err)
	return p
}

func newScene(t *testing.T, p *Pipeline, h, w int) *scene.Scene {
	t.Helper()
	s, err := p.CreateScene(context.Background(), testutil.GradientPixels(h, w), "")
	require.NoError(t, err)
	return s
}

// movedCamera is the base pose nudged 10 cm right and yawed 2°.
func movedCamera(s *scene.Scene) scene.Camera {
	cam := *s.BaseCamera
	cam.Position = r3.Vec{X: 0.1}
	cam.RotationDeg = r3.Vec{Y: 2}
	return cam
}

func TestScenario_GradientReconstruction(t *testing.T) {
	t.Parallel()

	s := newScene(t, newPipeline(t), 180, 320)
	assert.Len(t, s.Splats, 57600)
	assert.NotEmpty(t, s.Regions)
	testutil.AssertUnitNormals(t, s.Normals, 0.01)
	for _, m := range s.RegionMasks() {
		assert.Equal(t, s.Depth.W, m.W)
		assert.Equal(t, s.Depth.H, m.H)
	}
}

func TestScenario_BaseCameraHasNoVoid(t *testing.T) {
	t.Parallel()

	p := newPipeline(t)
	s := newScene(t, p, 180, 320)
	out, err := p.GenerateFrame(context.Background(), s, *s.BaseCamera, nil)
	require.NoError(t, err)
	assert.Less(t, out.Void.Ratio(), 0.01)
	testutil.AssertComplement(t, out.Void, out.Known)
}

func TestScenario_LockedRegionsNeverVoid(t *testing.T) {
	t.Parallel()

	p := newPipeline(t)
	s := newScene(t, p, 36, 64)
	require.NotEmpty(t, s.Regions)
	for _, r := range s.Regions {
		require.True(t, p.LockRegion(s, r.ID))
	}

	for name, cam := range map[string]scene.Camera{"base": *s.BaseCamera, "moved": movedCamera(s)} {
		t.Run(name, func(t *testing.T) {
			out, err := p.GenerateFrame(context.Background(), s, cam, testutil.Assets())
			require.NoError(t, err)
			require.True(t, out.LockMask.Any())
			for i, locked := range out.LockMask.Bits {
				if !locked {
					continue
				}
				assert.False(t, out.Void.Bits[i], "void under lock at %d", i)
				assert.Equal(t, out.WitnessReprojected.AtIndex(i), out.WitnessRefreshed.AtIndex(i))
			}
		})
	}
}

func TestScenario_IdleMix(t *testing.T) {
	t.Parallel()

	p := newPipeline(t)
	s := newScene(t, p, 36, 64)
	assets := testutil.Assets()
	placed := p.ConfigureExtras(s, assets, 8, map[string]float64{"idle": 1.0}, 3)
	require.NotEmpty(t, placed)
	byID := scene.AssetsByID(assets)
	for _, e := range placed {
		assert.Equal(t, scene.MotionIdle, byID[e.AssetID].MotionType)
	}
}

func TestScenario_ConfidenceIsProduct(t *testing.T) {
	t.Parallel()

	p := newPipeline(t)
	s := newScene(t, p, 36, 64)
	for _, cam := range []scene.Camera{*s.BaseCamera, movedCamera(s)} {
		out, err := p.GenerateFrame(context.Background(), s, cam, nil)
		require.NoError(t, err)
		c := out.Metadata.Confidence
		assert.InDelta(t, c.VoidFactor*c.DepthConfidence*c.AngleConfidence, c.Overall, 1e-5)
		assert.Equal(t, out.Confidence, c.Overall)
		for _, v := range []float64{c.Overall, c.VoidFactor, c.DepthConfidence, c.AngleConfidence} {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestGenerateFrame_Outputs(t *testing.T) {
	t.Parallel()

	p := newPipeline(t)
	s := newScene(t, p, 36, 64)
	assets := testutil.Assets()
	p.ConfigureExtras(s, assets, 8, map[string]float64{"walk": 0.5, "idle": 0.5}, 3)

	cam := movedCamera(s)
	cam.Width, cam.Height = 80, 45
	out, err := p.GenerateFrameAt(context.Background(), s, cam, assets, 0.5)
	require.NoError(t, err)

	assert.Equal(t, 80, out.Beauty.W)
	assert.Equal(t, 45, out.Beauty.H)
	assert.Same(t, out.Beauty, out.WitnessRefreshed)
	for _, v := range out.Beauty.Pix {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	for _, d := range out.Depth.Data {
		assert.False(t, math.IsInf(d, 0) || math.IsNaN(d))
	}
	testutil.AssertComplement(t, out.Void, out.Known)
	testutil.AssertUnitNormals(t, out.Normals, 0.01)
	assert.Len(t, out.RegionMasks, len(s.Regions))

	// Known pixels survive the fill untouched.
	for i, known := range out.Known.Bits {
		if known {
			assert.Equal(t, out.WitnessReprojected.AtIndex(i), out.Beauty.AtIndex(i))
		}
	}
}

func TestGenerateFrame_Errors(t *testing.T) {
	t.Parallel()

	p := newPipeline(t)
	s := newScene(t, p, 12, 16)

	_, err := p.GenerateFrame(context.Background(), s, scene.Camera{}, nil)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.GenerateFrame(ctx, s, *s.BaseCamera, nil)
	assert.ErrorIs(t, err, context.Canceled)

	s.BaseCamera = nil
	_, err = p.GenerateFrame(context.Background(), s, scene.DefaultCamera(16, 12), nil)
	assert.ErrorIs(t, err, l3reproject.ErrNoBaseCamera)

	_, err = p.CreateScene(context.Background(), &raster.Pixels{W: 2, H: 2, Channels: 4, Data: make([]float64, 16)}, "")
	assert.ErrorIs(t, err, raster.ErrNotRGB)
}

func TestLockUnlock(t *testing.T) {
	t.Parallel()

	p := newPipeline(t)
	s := newScene(t, p, 12, 16)
	id := s.Regions[0].ID

	assert.True(t, p.LockRegion(s, id))
	assert.True(t, s.Regions[0].Locked)
	assert.True(t, p.UnlockRegion(s, id))
	assert.False(t, s.Regions[0].Locked)
	assert.False(t, p.LockRegion(s, "nope"))
	assert.False(t, p.UnlockRegion(s, "nope"))
}

func TestConfigureExtras_Deterministic(t *testing.T) {
	t.Parallel()

	p := newPipeline(t)
	s := newScene(t, p, 12, 16)
	mix := map[string]float64{"walk": 0.5, "idle": 0.5}
	a := p.ConfigureExtras(s, testutil.Assets(), 8, mix, 3)
	b := p.ConfigureExtras(s, testutil.Assets(), 8, mix, 3)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed gave different placements (-first +second):\n%s", diff)
	}
	assert.Equal(t, b, s.Extras)
}

func TestMetadata_JSONContract(t *testing.T) {
	t.Parallel()

	p := newPipeline(t)
	s := newScene(t, p, 36, 64)
	p.LockRegion(s, s.Regions[0].ID)
	p.ConfigureExtras(s, testutil.Assets(), 4, nil, 1)

	cam := movedCamera(s)
	out, err := p.GenerateFrame(context.Background(), s, cam, testutil.Assets())
	require.NoError(t, err)

	raw, err := out.Metadata.JSON()
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))

	for _, k := range []string{"scene_id", "camera", "regions", "confidence", "num_splats", "num_regions", "num_extras", "reconstruction_time_s"} {
		assert.Contains(t, doc, k)
	}
	camDoc := doc["camera"].(map[string]any)
	for _, k := range []string{"position", "rotation_xyz_deg", "focal_length_mm", "filmback_mm", "width", "height", "metric_scale"} {
		assert.Contains(t, camDoc, k)
	}
	confDoc := doc["confidence"].(map[string]any)
	for _, k := range []string{"overall", "void_factor", "depth_confidence", "angle_confidence"} {
		assert.Contains(t, confDoc, k)
	}

	m := out.Metadata
	assert.Equal(t, s.ID, m.SceneID)
	assert.Equal(t, [3]float64{0.1, 0, 0}, m.Camera.Position)
	assert.Equal(t, [3]float64{0, 2, 0}, m.Camera.RotationXYZDeg)
	assert.Equal(t, len(s.Splats), m.NumSplats)
	assert.Equal(t, len(s.Regions), m.NumRegions)
	assert.Equal(t, len(s.Extras), m.NumExtras)
	assert.Greater(t, m.ReconstructionTimeS, 0.0)
	require.Len(t, m.Regions, len(s.Regions))
	assert.True(t, m.Regions[0].Locked)
	for i, r := range s.Regions {
		assert.Equal(t, r.ID, m.Regions[i].ID)
		assert.Equal(t, r.Label, m.Regions[i].SemanticLabel)
		assert.Equal(t, r.Plane == nil, m.Regions[i].PlaneParams == nil)
	}
}

func TestMetadata_EmptyRegionsEncodeAsList(t *testing.T) {
	t.Parallel()

	m := buildMetadata(&scene.Scene{ID: "bare"}, scene.DefaultCamera(4, 4), l2proxy.Confidence{})
	raw, err := m.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"regions": []`)
}

func TestFromTuning(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultTuningConfig()
	p, err := FromTuning(cfg)
	require.NoError(t, err)
	s := newScene(t, p, 12, 16)
	_, err = p.GenerateFrame(context.Background(), s, *s.BaseCamera, nil)
	require.NoError(t, err)
}

func TestNew_RejectsInvalidReconConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero stride", func(c *Config) { c.Recon.Stride = 0 }},
		{"negative stride", func(c *Config) { c.Recon.Stride = -2 }},
		{"zero focal", func(c *Config) { c.Recon.FocalLengthMM = 0 }},
		{"negative filmback", func(c *Config) { c.Recon.FilmbackMM = -36 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			p, err := New(cfg)
			assert.Error(t, err)
			assert.Nil(t, p)
		})
	}
}
