package pipeline

import (
	"encoding/json"

	"github.com/banshee-data/anchorstage/internal/stage/l2proxy"
	"github.com/banshee-data/anchorstage/internal/stage/raster"
	"github.com/banshee-data/anchorstage/internal/stage/scene"
)

// FrameOutputs is every pass of one rendered frame. All buffers have the
// camera's resolution except RegionMasks, which keep the witness
// resolution.
type FrameOutputs struct {
	Beauty      *raster.Image     // final colour; the same image as WitnessRefreshed
	Depth       *raster.Map       // proxy depth in metres, 0 where empty
	Void        *raster.Mask      // merged void map
	Known       *raster.Mask      // complement of Void
	Normals     *raster.NormalMap // proxy normals
	ExtrasID    *raster.IndexMap  // extras id pass
	ExtrasDepth *raster.Map       // extras depth pass
	ProxyColor  *raster.Image     // splat proxy render
	Confidence  float64           // overall confidence in [0,1]

	WitnessReprojected *raster.Image // pre-fill witness with extras
	WitnessRefreshed   *raster.Image // post-fill witness

	RegionMasks []*raster.Mask
	LockMask    *raster.Mask

	Metadata Metadata
}

// Metadata is the per-frame record consumers rely on. Field names are part
// of the on-disk contract.
type Metadata struct {
	SceneID             string             `json:"scene_id"`
	Camera              CameraMetadata     `json:"camera"`
	Regions             []RegionMetadata   `json:"regions"`
	Confidence          ConfidenceMetadata `json:"confidence"`
	NumSplats           int                `json:"num_splats"`
	NumRegions          int                `json:"num_regions"`
	NumExtras           int                `json:"num_extras"`
	ReconstructionTimeS float64            `json:"reconstruction_time_s"`
}

// CameraMetadata is the pose and lens the frame was rendered with.
type CameraMetadata struct {
	Position       [3]float64 `json:"position"`
	RotationXYZDeg [3]float64 `json:"rotation_xyz_deg"`
	FocalLengthMM  float64    `json:"focal_length_mm"`
	FilmbackMM     float64    `json:"filmback_mm"`
	Width          int        `json:"width"`
	Height         int        `json:"height"`
	MetricScale    float64    `json:"metric_scale"`
}

// RegionMetadata describes one region. PlaneParams is omitted for regions
// without a plane.
type RegionMetadata struct {
	ID            string      `json:"id"`
	SemanticLabel string      `json:"semantic_label"`
	Locked        bool        `json:"locked"`
	PlaneParams   *[4]float64 `json:"plane_params,omitempty"`
}

// ConfidenceMetadata is the confidence breakdown; Overall is the product of
// the three factors.
type ConfidenceMetadata struct {
	Overall         float64 `json:"overall"`
	VoidFactor      float64 `json:"void_factor"`
	DepthConfidence float64 `json:"depth_confidence"`
	AngleConfidence float64 `json:"angle_confidence"`
}

// JSON returns the metadata as indented JSON.
func (m Metadata) JSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

func buildMetadata(s *scene.Scene, cam scene.Camera, c l2proxy.Confidence) Metadata {
	regions := make([]RegionMetadata, 0, len(s.Regions))
	for _, r := range s.Regions {
		rm := RegionMetadata{ID: r.ID, SemanticLabel: r.Label, Locked: r.Locked}
		if r.Plane != nil {
			pp := [4]float64(*r.Plane)
			rm.PlaneParams = &pp
		}
		regions = append(regions, rm)
	}
	return Metadata{
		SceneID: s.ID,
		Camera: CameraMetadata{
			Position:       [3]float64{cam.Position.X, cam.Position.Y, cam.Position.Z},
			RotationXYZDeg: [3]float64{cam.RotationDeg.X, cam.RotationDeg.Y, cam.RotationDeg.Z},
			FocalLengthMM:  cam.FocalLengthMM,
			FilmbackMM:     cam.FilmbackMM,
			Width:          cam.Width,
			Height:         cam.Height,
			MetricScale:    s.MetricScale,
		},
		Regions: regions,
		Confidence: ConfidenceMetadata{
			Overall:         c.Overall,
			VoidFactor:      c.VoidFactor,
			DepthConfidence: c.Depth,
			AngleConfidence: c.Angle,
		},
		NumSplats:           len(s.Splats),
		NumRegions:          len(s.Regions),
		NumExtras:           len(s.Extras),
		ReconstructionTimeS: s.ReconstructionTime.Seconds(),
	}
}
