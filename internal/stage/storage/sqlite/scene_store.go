package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/banshee-data/anchorstage/internal/stage/scene"
	"github.com/banshee-data/anchorstage/internal/timeutil"
)

// SceneRecord is the stored summary of a reconstructed scene.
type SceneRecord struct {
	SceneID             string  `json:"scene_id"`
	Width               int     `json:"width"`
	Height              int     `json:"height"`
	NumSplats           int     `json:"num_splats"`
	NumRegions          int     `json:"num_regions"`
	MetricScale         float64 `json:"metric_scale"`
	ReconstructionTimeS float64 `json:"reconstruction_time_s"`
	SourcePath          string  `json:"source_path,omitempty"`
	CreatedAtNs         int64   `json:"created_at_ns"`
}

// RegionRecord is the stored state of one region.
type RegionRecord struct {
	SceneID       string      `json:"scene_id"`
	RegionID      string      `json:"region_id"`
	SemanticLabel string      `json:"semantic_label"`
	Locked        bool        `json:"locked"`
	PixelCount    int         `json:"pixel_count"`
	PlaneParams   *[4]float64 `json:"plane_params,omitempty"`
	UpdatedAtNs   int64       `json:"updated_at_ns"`
}

// SceneStore persists scenes and their regions.
type SceneStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewSceneStore creates a new SceneStore.
func NewSceneStore(db *sql.DB) *SceneStore {
	return &SceneStore{db: db, clock: timeutil.RealClock{}}
}

// SetClock replaces the clock used to stamp rows. Nil restores the real
// clock.
func (st *SceneStore) SetClock(c timeutil.Clock) { st.clock = timeutil.OrReal(c) }

// SaveScene records s and all of its regions, updating any earlier record
// with the same id in place. Frames recorded against the scene and its
// original created_at are kept.
func (st *SceneStore) SaveScene(ctx context.Context, s *scene.Scene, sourcePath string) error {
	w, h := 0, 0
	if s.Depth != nil {
		w, h = s.Depth.W, s.Depth.H
	}
	now := st.clock.Now().UnixNano()

	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save scene: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stage_scenes (
			scene_id, width, height, num_splats, num_regions,
			metric_scale, reconstruction_time_s, source_path, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(scene_id) DO UPDATE SET
			width = excluded.width,
			height = excluded.height,
			num_splats = excluded.num_splats,
			num_regions = excluded.num_regions,
			metric_scale = excluded.metric_scale,
			reconstruction_time_s = excluded.reconstruction_time_s,
			source_path = excluded.source_path
	`,
		s.ID, w, h, len(s.Splats), len(s.Regions),
		s.MetricScale, s.ReconstructionTime.Seconds(), nullString(sourcePath), now,
	)
	if err != nil {
		return fmt.Errorf("insert scene: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM stage_regions WHERE scene_id = ?`, s.ID); err != nil {
		return fmt.Errorf("clear regions: %w", err)
	}
	for _, r := range s.Regions {
		var plane interface{}
		if r.Plane != nil {
			b, err := json.Marshal([4]float64(*r.Plane))
			if err != nil {
				return fmt.Errorf("encode plane of region %s: %w", r.ID, err)
			}
			plane = string(b)
		}
		count := 0
		if m := r.Mask(); m != nil {
			count = m.Count()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO stage_regions (
				scene_id, region_id, semantic_label, locked, pixel_count, plane_params, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)
		`, s.ID, r.ID, r.Label, r.Locked, count, plane, now)
		if err != nil {
			return fmt.Errorf("insert region %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save scene: %w", err)
	}
	return nil
}

// GetScene returns the record of scene id, or sql.ErrNoRows.
func (st *SceneStore) GetScene(ctx context.Context, id string) (*SceneRecord, error) {
	r := &SceneRecord{}
	var source sql.NullString
	err := st.db.QueryRowContext(ctx, `
		SELECT scene_id, width, height, num_splats, num_regions,
		       metric_scale, reconstruction_time_s, source_path, created_at
		FROM stage_scenes WHERE scene_id = ?
	`, id).Scan(
		&r.SceneID, &r.Width, &r.Height, &r.NumSplats, &r.NumRegions,
		&r.MetricScale, &r.ReconstructionTimeS, &source, &r.CreatedAtNs,
	)
	if err != nil {
		return nil, err
	}
	if source.Valid {
		r.SourcePath = source.String
	}
	return r, nil
}

// ListScenes returns every stored scene, newest first.
func (st *SceneStore) ListScenes(ctx context.Context) ([]*SceneRecord, error) {
	rows, err := st.db.QueryContext(ctx, `
		SELECT scene_id, width, height, num_splats, num_regions,
		       metric_scale, reconstruction_time_s, source_path, created_at
		FROM stage_scenes
		ORDER BY created_at DESC, scene_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	defer rows.Close()

	var out []*SceneRecord
	for rows.Next() {
		r := &SceneRecord{}
		var source sql.NullString
		if err := rows.Scan(
			&r.SceneID, &r.Width, &r.Height, &r.NumSplats, &r.NumRegions,
			&r.MetricScale, &r.ReconstructionTimeS, &source, &r.CreatedAtNs,
		); err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		if source.Valid {
			r.SourcePath = source.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Regions returns the stored regions of a scene in id order.
func (st *SceneStore) Regions(ctx context.Context, sceneID string) ([]*RegionRecord, error) {
	rows, err := st.db.QueryContext(ctx, `
		SELECT scene_id, region_id, semantic_label, locked, pixel_count, plane_params, updated_at
		FROM stage_regions
		WHERE scene_id = ?
		ORDER BY region_id
	`, sceneID)
	if err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}
	defer rows.Close()

	var out []*RegionRecord
	for rows.Next() {
		r := &RegionRecord{}
		var plane sql.NullString
		if err := rows.Scan(&r.SceneID, &r.RegionID, &r.SemanticLabel, &r.Locked, &r.PixelCount, &plane, &r.UpdatedAtNs); err != nil {
			return nil, fmt.Errorf("scan region: %w", err)
		}
		if plane.Valid {
			var p [4]float64
			if err := json.Unmarshal([]byte(plane.String), &p); err != nil {
				return nil, fmt.Errorf("decode plane of region %s: %w", r.RegionID, err)
			}
			r.PlaneParams = &p
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SetRegionLocked stores the lock flag of one region and reports whether
// the region exists.
func (st *SceneStore) SetRegionLocked(ctx context.Context, sceneID, regionID string, locked bool) (bool, error) {
	res, err := st.db.ExecContext(ctx, `
		UPDATE stage_regions SET locked = ?, updated_at = ?
		WHERE scene_id = ? AND region_id = ?
	`, locked, st.clock.Now().UnixNano(), sceneID, regionID)
	if err != nil {
		return false, fmt.Errorf("update region lock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update region lock rows affected: %w", err)
	}
	return n > 0, nil
}

// ApplyLocks copies the stored lock flags onto the matching regions of s.
// Regions without a stored row keep their flag.
func (st *SceneStore) ApplyLocks(ctx context.Context, s *scene.Scene) error {
	stored, err := st.Regions(ctx, s.ID)
	if err != nil {
		return err
	}
	for _, r := range stored {
		s.SetLocked(r.RegionID, r.Locked)
	}
	return nil
}

// DeleteScene removes a scene with its regions and frames.
func (st *SceneStore) DeleteScene(ctx context.Context, id string) error {
	res, err := st.db.ExecContext(ctx, `DELETE FROM stage_scenes WHERE scene_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete scene: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete scene rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
