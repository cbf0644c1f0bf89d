package imageio

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/transform"
	"github.com/banshee-data/anchorstage/internal/stage/raster"
	"github.com/banshee-data/anchorstage/internal/stage/scene"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode reads any registered image format from path.
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// LoadWitness decodes a photograph into an H×W×3 array in [0,1]. Images
// wider than maxWidth are downscaled with Lanczos resampling, keeping the
// aspect ratio; maxWidth ≤ 0 keeps the original size.
func LoadWitness(path string, maxWidth int) (*raster.Pixels, error) {
	img, err := Decode(path)
	if err != nil {
		return nil, err
	}
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = resize.Resize(uint(maxWidth), 0, img, resize.Lanczos3)
	}
	return PixelsFromStdImage(img), nil
}

// PixelsFromStdImage converts any image to a 3-channel array in [0,1],
// dropping alpha.
func PixelsFromStdImage(img image.Image) *raster.Pixels {
	rgba := clone.AsRGBA(img)
	b := rgba.Bounds()
	w, h := b.Dx(), b.Dy()
	px := &raster.Pixels{W: w, H: h, Channels: 3, Data: make([]float64, w*h*3)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			s := rgba.PixOffset(b.Min.X+x, b.Min.Y+y)
			a := float64(rgba.Pix[s+3])
			i := (y*w + x) * 3
			for c := 0; c < 3; c++ {
				v := float64(rgba.Pix[s+c])
				if a > 0 && a < 255 {
					v = v * 255 / a
				}
				px.Data[i+c] = v / 255
			}
		}
	}
	return px
}

// LoadAtlas decodes a sprite strip into straight-alpha RGBA. A positive
// height rescales the strip to that many rows with linear filtering.
func LoadAtlas(path string, height int) (*raster.RGBA, error) {
	img, err := Decode(path)
	if err != nil {
		return nil, err
	}
	rgba := clone.AsRGBA(img)
	if b := rgba.Bounds(); height > 0 && b.Dy() != height {
		w := max(1, b.Dx()*height/max(1, b.Dy()))
		rgba = transform.Resize(rgba, w, height, transform.Linear)
	}
	return AtlasFromRGBA(rgba), nil
}

// AtlasFromRGBA converts premultiplied 8-bit RGBA to a straight-alpha
// float atlas.
func AtlasFromRGBA(rgba *image.RGBA) *raster.RGBA {
	b := rgba.Bounds()
	out := raster.NewRGBA(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			s := rgba.PixOffset(b.Min.X+x, b.Min.Y+y)
			a := float64(rgba.Pix[s+3]) / 255
			var c [4]float64
			c[3] = a
			if a > 0 {
				for k := 0; k < 3; k++ {
					c[k] = min(1, float64(rgba.Pix[s+k])/255/a)
				}
			}
			out.Set(x, y, c)
		}
	}
	return out
}

// AssetSpec describes one extras asset in a JSON manifest.
type AssetSpec struct {
	ID           string  `json:"id"`
	Path         string  `json:"path"` // relative to the manifest
	Frames       int     `json:"frames"`
	FPS          float64 `json:"fps"`
	HeightMeters float64 `json:"height_m"`
	FacingBias   float64 `json:"facing_bias"`
	MotionType   string  `json:"motion_type"`
	WalkSpeed    float64 `json:"walk_speed"`
	AtlasHeight  int     `json:"atlas_height,omitempty"`
}

// LoadAssets reads a JSON array of AssetSpec and loads every atlas.
func LoadAssets(manifestPath string) ([]scene.ExtraAsset, error) {
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read asset manifest: %w", err)
	}
	var specs []AssetSpec
	if err := json.Unmarshal(raw, &specs); err != nil {
		return nil, fmt.Errorf("parse asset manifest: %w", err)
	}

	dir := filepath.Dir(manifestPath)
	assets := make([]scene.ExtraAsset, 0, len(specs))
	for _, s := range specs {
		if s.ID == "" {
			return nil, fmt.Errorf("asset manifest entry with path %q has no id", s.Path)
		}
		p := s.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		atlas, err := LoadAtlas(p, s.AtlasHeight)
		if err != nil {
			return nil, fmt.Errorf("asset %s: %w", s.ID, err)
		}
		motion := s.MotionType
		if motion == "" {
			motion = scene.MotionIdle
		}
		height := s.HeightMeters
		if height <= 0 {
			height = 1.7
		}
		assets = append(assets, scene.ExtraAsset{
			ID:           s.ID,
			Atlas:        atlas,
			Frames:       max(1, s.Frames),
			FPS:          s.FPS,
			HeightMeters: height,
			FacingBias:   s.FacingBias,
			MotionType:   motion,
			WalkSpeed:    s.WalkSpeed,
		})
	}
	return assets, nil
}
