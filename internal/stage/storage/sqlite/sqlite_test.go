package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/anchorstage/internal/stage/raster"
	"github.com/banshee-data/anchorstage/internal/stage/scene"
	"github.com/banshee-data/anchorstage/internal/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "stage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testScene(id string) *scene.Scene {
	sky := raster.NewMask(4, 3)
	sky.Set(0, 0, true)
	sky.Set(1, 0, true)
	ground := raster.NewMask(4, 3)
	ground.Set(2, 2, true)
	plane := scene.Plane{0, 1, 0, -1.5}
	return &scene.Scene{
		ID:     id,
		Depth:  raster.NewMapFilled(4, 3, 2),
		Splats: make([]scene.Splat, 12),
		Regions: []*scene.Region{
			scene.NewRegion("sky", scene.LabelSky, sky, nil),
			scene.NewRegion("ground", scene.LabelGround, ground, &plane),
		},
		MetricScale:        1,
		ReconstructionTime: 250 * time.Millisecond,
	}
}

func TestOpen_MigratesToLatest(t *testing.T) {
	db := openTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Running again is a no-op.
	require.NoError(t, db.MigrateUp())

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.MigrateDown())

	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Zero(t, version)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'stage_scenes'`).Scan(&n))
	assert.Zero(t, n)
}

func TestSceneStore_SaveAndGet(t *testing.T) {
	db := openTestDB(t)
	st := NewSceneStore(db.DB)
	ctx := context.Background()

	s := testScene("scene-1")
	s.Regions[1].Locked = true
	require.NoError(t, st.SaveScene(ctx, s, "witness.png"))

	got, err := st.GetScene(ctx, "scene-1")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Width)
	assert.Equal(t, 3, got.Height)
	assert.Equal(t, 12, got.NumSplats)
	assert.Equal(t, 2, got.NumRegions)
	assert.InDelta(t, 0.25, got.ReconstructionTimeS, 1e-9)
	assert.Equal(t, "witness.png", got.SourcePath)
	assert.NotZero(t, got.CreatedAtNs)

	regions, err := st.Regions(ctx, "scene-1")
	require.NoError(t, err)
	require.Len(t, regions, 2)
	// Ordered by id: ground, sky.
	assert.Equal(t, "ground", regions[0].RegionID)
	assert.True(t, regions[0].Locked)
	assert.Equal(t, 1, regions[0].PixelCount)
	require.NotNil(t, regions[0].PlaneParams)
	assert.Equal(t, [4]float64{0, 1, 0, -1.5}, *regions[0].PlaneParams)
	assert.Equal(t, "sky", regions[1].RegionID)
	assert.Equal(t, scene.LabelSky, regions[1].SemanticLabel)
	assert.False(t, regions[1].Locked)
	assert.Nil(t, regions[1].PlaneParams)
	assert.Equal(t, 2, regions[1].PixelCount)

	_, err = st.GetScene(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSceneStore_SaveReplaces(t *testing.T) {
	db := openTestDB(t)
	st := NewSceneStore(db.DB)
	ctx := context.Background()

	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	st.SetClock(clock)
	frames := NewFrameStore(db.DB)

	s := testScene("scene-1")
	require.NoError(t, st.SaveScene(ctx, s, ""))
	require.NoError(t, frames.Insert(ctx, &FrameRecord{SceneID: "scene-1", MetadataJSON: "{}"}))

	clock.Advance(time.Minute)
	s.Regions = s.Regions[:1]
	s.Splats = s.Splats[:5]
	require.NoError(t, st.SaveScene(ctx, s, ""))

	regions, err := st.Regions(ctx, "scene-1")
	require.NoError(t, err)
	assert.Len(t, regions, 1)

	// Re-saving updates the row in place, so the frame history survives.
	list, err := frames.ListByScene(ctx, "scene-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	got, err := st.GetScene(ctx, "scene-1")
	require.NoError(t, err)
	assert.Equal(t, 5, got.NumSplats)
	assert.Equal(t, 1, got.NumRegions)
	assert.Equal(t, time.Unix(1000, 0).UnixNano(), got.CreatedAtNs)

	all, err := st.ListScenes(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Empty(t, all[0].SourcePath)
}

func TestSceneStore_Locks(t *testing.T) {
	db := openTestDB(t)
	st := NewSceneStore(db.DB)
	ctx := context.Background()

	require.NoError(t, st.SaveScene(ctx, testScene("scene-1"), ""))

	found, err := st.SetRegionLocked(ctx, "scene-1", "sky", true)
	require.NoError(t, err)
	assert.True(t, found)
	found, err = st.SetRegionLocked(ctx, "scene-1", "nope", true)
	require.NoError(t, err)
	assert.False(t, found)

	fresh := testScene("scene-1")
	require.NoError(t, st.ApplyLocks(ctx, fresh))
	sky, _ := fresh.Region("sky")
	ground, _ := fresh.Region("ground")
	assert.True(t, sky.Locked)
	assert.False(t, ground.Locked)
}

func TestSceneStore_DeleteCascades(t *testing.T) {
	db := openTestDB(t)
	scenes := NewSceneStore(db.DB)
	frames := NewFrameStore(db.DB)
	ctx := context.Background()

	require.NoError(t, scenes.SaveScene(ctx, testScene("scene-1"), ""))
	require.NoError(t, frames.Insert(ctx, &FrameRecord{SceneID: "scene-1", Width: 4, Height: 3, MetadataJSON: "{}"}))

	require.NoError(t, scenes.DeleteScene(ctx, "scene-1"))
	assert.ErrorIs(t, scenes.DeleteScene(ctx, "scene-1"), sql.ErrNoRows)

	regions, err := scenes.Regions(ctx, "scene-1")
	require.NoError(t, err)
	assert.Empty(t, regions)
	list, err := frames.ListByScene(ctx, "scene-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFrameStore(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewSceneStore(db.DB).SaveScene(context.Background(), testScene("scene-1"), ""))
	st := NewFrameStore(db.DB)
	ctx := context.Background()

	first := &FrameRecord{SceneID: "scene-1", TSeconds: 0, Width: 64, Height: 36, Confidence: 0.9, VoidRatio: 0.01, MetadataJSON: `{"scene_id":"scene-1"}`, OutputDir: "out/0000"}
	second := &FrameRecord{SceneID: "scene-1", TSeconds: 0.5, Width: 64, Height: 36, Confidence: 0.5, VoidRatio: 0.2, MetadataJSON: `{}`}
	require.NoError(t, st.Insert(ctx, first))
	require.NoError(t, st.Insert(ctx, second))
	assert.NotEmpty(t, first.FrameID)
	assert.NotEqual(t, first.FrameID, second.FrameID)

	list, err := st.ListByScene(ctx, "scene-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.FrameID, list[0].FrameID)
	assert.Equal(t, "out/0000", list[0].OutputDir)
	assert.Equal(t, `{"scene_id":"scene-1"}`, list[0].MetadataJSON)
	assert.Empty(t, list[1].OutputDir)

	n, mean, lo, err := st.ConfidenceStats(ctx, "scene-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.InDelta(t, 0.7, mean, 1e-9)
	assert.InDelta(t, 0.5, lo, 1e-9)

	n, _, _, err = st.ConfidenceStats(ctx, "none")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFrameStore_ForeignKey(t *testing.T) {
	db := openTestDB(t)
	err := NewFrameStore(db.DB).Insert(context.Background(), &FrameRecord{SceneID: "ghost", MetadataJSON: "{}"})
	assert.Error(t, err)
}

func TestStores_UseClock(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(at)

	scenes := NewSceneStore(db.DB)
	scenes.SetClock(clock)
	require.NoError(t, scenes.SaveScene(ctx, testScene("clocked"), ""))
	got, err := scenes.GetScene(ctx, "clocked")
	require.NoError(t, err)
	assert.Equal(t, at.UnixNano(), got.CreatedAtNs)

	frames := NewFrameStore(db.DB)
	frames.SetClock(clock)
	clock.Advance(2 * time.Second)
	rec := &FrameRecord{SceneID: "clocked", MetadataJSON: "{}"}
	require.NoError(t, frames.Insert(ctx, rec))
	assert.Equal(t, at.Add(2*time.Second).UnixNano(), rec.CreatedAtNs)

	frames.SetClock(nil)
	late := &FrameRecord{SceneID: "clocked", MetadataJSON: "{}"}
	require.NoError(t, frames.Insert(ctx, late))
	assert.Greater(t, late.CreatedAtNs, rec.CreatedAtNs)
}
