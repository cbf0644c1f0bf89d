package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/banshee-data/anchorstage/internal/timeutil"
	"github.com/google/uuid"
)

// FrameRecord is one rendered frame. MetadataJSON holds the frame metadata
// document exactly as exported.
type FrameRecord struct {
	FrameID      string  `json:"frame_id"`
	SceneID      string  `json:"scene_id"`
	TSeconds     float64 `json:"t_seconds"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	Confidence   float64 `json:"confidence"`
	VoidRatio    float64 `json:"void_ratio"`
	MetadataJSON string  `json:"metadata_json"`
	OutputDir    string  `json:"output_dir,omitempty"`
	CreatedAtNs  int64   `json:"created_at_ns"`
}

// FrameStore persists frame records.
type FrameStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewFrameStore creates a new FrameStore.
func NewFrameStore(db *sql.DB) *FrameStore {
	return &FrameStore{db: db, clock: timeutil.RealClock{}}
}

// SetClock replaces the clock used to stamp created_at. Nil restores the
// real clock.
func (st *FrameStore) SetClock(c timeutil.Clock) { st.clock = timeutil.OrReal(c) }

// Insert stores f. An empty FrameID gets a new UUID and a zero CreatedAtNs
// the current time.
func (st *FrameStore) Insert(ctx context.Context, f *FrameRecord) error {
	if f.FrameID == "" {
		f.FrameID = uuid.New().String()
	}
	if f.CreatedAtNs == 0 {
		f.CreatedAtNs = st.clock.Now().UnixNano()
	}
	_, err := st.db.ExecContext(ctx, `
		INSERT INTO stage_frames (
			frame_id, scene_id, t_seconds, width, height,
			confidence, void_ratio, metadata_json, output_dir, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		f.FrameID, f.SceneID, f.TSeconds, f.Width, f.Height,
		f.Confidence, f.VoidRatio, f.MetadataJSON, nullString(f.OutputDir), f.CreatedAtNs,
	)
	if err != nil {
		return fmt.Errorf("insert frame: %w", err)
	}
	return nil
}

// ListByScene returns the frames of a scene in insertion order.
func (st *FrameStore) ListByScene(ctx context.Context, sceneID string) ([]*FrameRecord, error) {
	rows, err := st.db.QueryContext(ctx, `
		SELECT frame_id, scene_id, t_seconds, width, height,
		       confidence, void_ratio, metadata_json, output_dir, created_at
		FROM stage_frames
		WHERE scene_id = ?
		ORDER BY created_at, rowid
	`, sceneID)
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	defer rows.Close()

	var out []*FrameRecord
	for rows.Next() {
		f := &FrameRecord{}
		var dir sql.NullString
		if err := rows.Scan(
			&f.FrameID, &f.SceneID, &f.TSeconds, &f.Width, &f.Height,
			&f.Confidence, &f.VoidRatio, &f.MetadataJSON, &dir, &f.CreatedAtNs,
		); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		if dir.Valid {
			f.OutputDir = dir.String
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ConfidenceStats returns the number of frames of a scene and their mean
// and minimum confidence.
func (st *FrameStore) ConfidenceStats(ctx context.Context, sceneID string) (n int, mean, min float64, err error) {
	var avg, lo sql.NullFloat64
	err = st.db.QueryRowContext(ctx, `
		SELECT COUNT(*), AVG(confidence), MIN(confidence)
		FROM stage_frames WHERE scene_id = ?
	`, sceneID).Scan(&n, &avg, &lo)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("frame confidence stats: %w", err)
	}
	return n, avg.Float64, lo.Float64, nil
}
