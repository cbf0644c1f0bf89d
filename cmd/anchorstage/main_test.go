package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/anchorstage/internal/stage/imageio"
	"github.com/banshee-data/anchorstage/internal/stage/scene"
	"github.com/banshee-data/anchorstage/internal/stage/storage/sqlite"
	"github.com/banshee-data/anchorstage/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestParseMix(t *testing.T) {
	tests := []struct {
		in      string
		want    map[string]float64
		wantErr bool
	}{
		{"walk=0.5,idle=0.5", map[string]float64{"walk": 0.5, "idle": 0.5}, false},
		{" walk = 1 ", map[string]float64{"walk": 1}, false},
		{"", map[string]float64{}, false},
		{"walk", nil, true},
		{"walk=fast", nil, true},
		{"walk=-1", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseMix(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"sky", "ground"}, parseList("sky, ground,,"))
	assert.Nil(t, parseList(""))
}

func TestSweepCamera(t *testing.T) {
	base := scene.DefaultCamera(64, 36)
	base.Position = r3.Vec{Z: 1}

	cam := sweepCamera(base, 3, 0.1, 2, 0, 0)
	assert.InDelta(t, 0.3, cam.Position.X, 1e-12)
	assert.Equal(t, 1.0, cam.Position.Z)
	assert.InDelta(t, 6.0, cam.RotationDeg.Y, 1e-12)
	assert.Equal(t, 64, cam.Width)

	cam = sweepCamera(base, 0, 0.1, 2, 32, 18)
	assert.Equal(t, base.Position, cam.Position)
	assert.Equal(t, 32, cam.Width)
	assert.Equal(t, 18, cam.Height)
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "witness.png")
	require.NoError(t, imageio.WritePNG(imagePath, imageio.ToNRGBA(testutil.SkyPixelsImage(18, 32))))

	spritePath := filepath.Join(dir, "walker.png")
	require.NoError(t, imageio.WritePNG(spritePath, imageio.ToNRGBA(testutil.GradientImage(24, 16))))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets.json"),
		[]byte(`[{"id":"walker","path":"walker.png","motion_type":"walk","walk_speed":1}]`), 0644))

	out := filepath.Join(dir, "out")
	dbPath := filepath.Join(dir, "stage.db")
	opts := options{
		imagePath:  imagePath,
		outDir:     out,
		sceneID:    "e2e",
		assetsPath: filepath.Join(dir, "assets.json"),
		density:    3,
		mix:        map[string]float64{"walk": 1},
		seed:       7,
		locks:      []string{"ground", "missing"},
		frames:     3,
		dx:         0.05,
		dyaw:       1,
		fps:        12,
		dbPath:     dbPath,
		plots:      true,
	}
	require.NoError(t, run(context.Background(), opts))

	for i := 0; i < 3; i++ {
		assert.FileExists(t, filepath.Join(frameDir(out, i), "beauty.png"))
		assert.FileExists(t, filepath.Join(frameDir(out, i), "metadata.json"))
	}
	assert.FileExists(t, filepath.Join(out, "confidence_sweep.png"))
	assert.FileExists(t, filepath.Join(out, "confidence_sweep.html"))

	db, err := sqlite.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()
	frames, err := sqlite.NewFrameStore(db.DB).ListByScene(context.Background(), "e2e")
	require.NoError(t, err)
	assert.Len(t, frames, 3)

	regions, err := sqlite.NewSceneStore(db.DB).Regions(context.Background(), "e2e")
	require.NoError(t, err)
	for _, r := range regions {
		assert.Equal(t, r.RegionID == "ground", r.Locked, r.RegionID)
	}

	_, err = sqlite.NewSceneStore(db.DB).GetScene(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRun_MissingImage(t *testing.T) {
	err := run(context.Background(), options{imagePath: filepath.Join(t.TempDir(), "nope.png"), frames: 1})
	assert.Error(t, err)
}
