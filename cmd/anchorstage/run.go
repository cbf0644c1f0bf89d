package main

import (
	"context"
	"fmt"
	"log"

	"github.com/banshee-data/anchorstage/internal/stage/imageio"
	"github.com/banshee-data/anchorstage/internal/stage/monitor"
	"github.com/banshee-data/anchorstage/internal/stage/pipeline"
	"github.com/banshee-data/anchorstage/internal/stage/scene"
	"github.com/banshee-data/anchorstage/internal/stage/storage/sqlite"
	"gonum.org/v1/gonum/spatial/r3"
)

// sweepCamera returns frame i of the sweep: the base pose moved i·dx along
// x and yawed i·dyaw degrees, optionally at another resolution.
func sweepCamera(base scene.Camera, i int, dx, dyaw float64, width, height int) scene.Camera {
	cam := base
	cam.Position = r3.Add(base.Position, r3.Vec{X: float64(i) * dx})
	cam.RotationDeg = r3.Add(base.RotationDeg, r3.Vec{Y: float64(i) * dyaw})
	if width > 0 {
		cam.Width = width
	}
	if height > 0 {
		cam.Height = height
	}
	return cam
}

func run(ctx context.Context, o options) error {
	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return err
	}
	p, err := pipeline.FromTuning(cfg)
	if err != nil {
		return err
	}

	px, err := imageio.LoadWitness(o.imagePath, o.maxWidth)
	if err != nil {
		return err
	}
	s, err := p.CreateScene(ctx, px, o.sceneID)
	if err != nil {
		return err
	}
	log.Printf("scene %s: %dx%d, %d splats, %d regions", s.ID, px.W, px.H, len(s.Splats), len(s.Regions))

	var scenes *sqlite.SceneStore
	var frames *sqlite.FrameStore
	if o.dbPath != "" {
		db, err := sqlite.Open(o.dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		scenes = sqlite.NewSceneStore(db.DB)
		frames = sqlite.NewFrameStore(db.DB)
		// Re-running a scene id keeps the locks chosen last time.
		if o.sceneID != "" {
			if err := scenes.ApplyLocks(ctx, s); err != nil {
				return err
			}
		}
	}

	for _, id := range o.locks {
		if !p.LockRegion(s, id) {
			log.Printf("region %q not found; regions are %v", id, regionIDs(s))
		}
	}
	if scenes != nil {
		if err := scenes.SaveScene(ctx, s, o.imagePath); err != nil {
			return err
		}
	}

	var assets []scene.ExtraAsset
	if o.assetsPath != "" {
		assets, err = imageio.LoadAssets(o.assetsPath)
		if err != nil {
			return err
		}
		placed := p.ConfigureExtras(s, assets, o.density, o.mix, o.seed)
		log.Printf("placed %d extras from %d assets", len(placed), len(assets))
	}

	plotter := monitor.NewSweepPlotter(o.outDir, fmt.Sprintf("Confidence sweep, scene %s", s.ID))
	for i := 0; i < o.frames; i++ {
		cam := sweepCamera(*s.BaseCamera, i, o.dx, o.dyaw, o.width, o.height)
		t := 0.0
		if o.fps > 0 {
			t = float64(i) / o.fps
		}
		f, err := p.GenerateFrameAt(ctx, s, cam, assets, t)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		dir := frameDir(o.outDir, i)
		if _, err := imageio.ExportFrame(dir, f); err != nil {
			return fmt.Errorf("export frame %d: %w", i, err)
		}
		label := fmt.Sprintf("x=%.2f yaw=%.1f", cam.Position.X, cam.RotationDeg.Y)
		plotter.Add(monitor.SampleFromFrame(i, label, f))
		log.Printf("frame %d (%s): confidence %.3f, void %.3f", i, label, f.Confidence, f.Void.Ratio())

		if frames != nil {
			meta, err := f.Metadata.JSON()
			if err != nil {
				return err
			}
			if err := frames.Insert(ctx, &sqlite.FrameRecord{
				SceneID:      s.ID,
				TSeconds:     t,
				Width:        cam.Width,
				Height:       cam.Height,
				Confidence:   f.Confidence,
				VoidRatio:    f.Void.Ratio(),
				MetadataJSON: string(meta),
				OutputDir:    dir,
			}); err != nil {
				return err
			}
		}
	}

	if o.plots && o.frames > 0 {
		if _, err := plotter.WritePNG("confidence_sweep"); err != nil {
			return err
		}
		if _, err := plotter.WriteHTML("confidence_sweep"); err != nil {
			return err
		}
	}
	if sum, err := plotter.Summary(); err == nil {
		log.Printf("sweep: %d frames, mean confidence %.3f, min %.3f, max void %.3f",
			sum.Frames, sum.MeanOverall, sum.MinOverall, sum.MaxVoid)
	}
	return nil
}

func regionIDs(s *scene.Scene) []string {
	ids := make([]string, 0, len(s.Regions))
	for _, r := range s.Regions {
		ids = append(ids, r.ID)
	}
	return ids
}
