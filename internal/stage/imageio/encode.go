package imageio

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/banshee-data/anchorstage/internal/stage/pipeline"
	"github.com/banshee-data/anchorstage/internal/stage/raster"
)

// ToNRGBA quantises an Image to 8 bits, clipping to [0,1].
func ToNRGBA(img *raster.Image) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, img.W, img.H))
	for i := 0; i < img.W*img.H; i++ {
		c := img.AtIndex(i)
		out.Pix[i*4] = to8(c[0])
		out.Pix[i*4+1] = to8(c[1])
		out.Pix[i*4+2] = to8(c[2])
		out.Pix[i*4+3] = 255
	}
	return out
}

// DepthToGray16 scales finite values of m by their maximum into 16 bits;
// zero and non-finite values stay black.
func DepthToGray16(m *raster.Map) *image.Gray16 {
	out := image.NewGray16(image.Rect(0, 0, m.W, m.H))
	peak := 0.0
	for _, v := range m.Data {
		if !math.IsInf(v, 0) && !math.IsNaN(v) && v > peak {
			peak = v
		}
	}
	if peak == 0 {
		return out
	}
	for i, v := range m.Data {
		if math.IsInf(v, 0) || math.IsNaN(v) || v <= 0 {
			continue
		}
		out.SetGray16(i%m.W, i/m.W, color.Gray16{Y: uint16(math.Round(v / peak * 65535))})
	}
	return out
}

// MaskToGray writes set pixels as white.
func MaskToGray(m *raster.Mask) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, m.W, m.H))
	for i, b := range m.Bits {
		if b {
			out.Pix[i] = 255
		}
	}
	return out
}

// IndexToGray16 writes ids unchanged as 16-bit grey.
func IndexToGray16(m *raster.IndexMap) *image.Gray16 {
	out := image.NewGray16(image.Rect(0, 0, m.W, m.H))
	for i, v := range m.Data {
		out.SetGray16(i%m.W, i/m.W, color.Gray16{Y: v})
	}
	return out
}

// NormalsToNRGBA maps each component from [−1,1] to [0,255].
func NormalsToNRGBA(m *raster.NormalMap) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, m.W, m.H))
	for i, n := range m.Data {
		out.Pix[i*4] = to8((n.X + 1) / 2)
		out.Pix[i*4+1] = to8((n.Y + 1) / 2)
		out.Pix[i*4+2] = to8((n.Z + 1) / 2)
		out.Pix[i*4+3] = 255
	}
	return out
}

// WritePNG encodes img to path, creating parent directories.
func WritePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// ExportFrame writes every pass of f into dir plus metadata.json, and
// returns the written paths by pass name: beauty, depth, normal, void_map,
// proxy_render, extras_id, extras_depth, region_mask_N and metadata.
func ExportFrame(dir string, f *pipeline.FrameOutputs) (map[string]string, error) {
	paths := make(map[string]string)
	write := func(name, file string, img image.Image) error {
		p := filepath.Join(dir, file)
		if err := WritePNG(p, img); err != nil {
			return err
		}
		paths[name] = p
		return nil
	}

	if err := write("beauty", "beauty.png", ToNRGBA(f.Beauty)); err != nil {
		return nil, err
	}
	if err := write("depth", "depth.png", DepthToGray16(f.Depth)); err != nil {
		return nil, err
	}
	if f.Normals != nil {
		if err := write("normal", "normal.png", NormalsToNRGBA(f.Normals)); err != nil {
			return nil, err
		}
	}
	if err := write("void_map", "void_map.png", MaskToGray(f.Void)); err != nil {
		return nil, err
	}
	if err := write("proxy_render", "proxy_render.png", ToNRGBA(f.ProxyColor)); err != nil {
		return nil, err
	}
	if err := write("extras_id", "extras_id.png", IndexToGray16(f.ExtrasID)); err != nil {
		return nil, err
	}
	if err := write("extras_depth", "extras_depth.png", DepthToGray16(f.ExtrasDepth)); err != nil {
		return nil, err
	}
	for i, m := range f.RegionMasks {
		name := fmt.Sprintf("region_mask_%d", i)
		if err := write(name, filepath.Join("region_masks", fmt.Sprintf("region_%03d.png", i)), MaskToGray(m)); err != nil {
			return nil, err
		}
	}

	meta, err := f.Metadata.JSON()
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	metaPath := filepath.Join(dir, "metadata.json")
	if err := os.WriteFile(metaPath, meta, 0644); err != nil {
		return nil, fmt.Errorf("write metadata: %w", err)
	}
	paths["metadata"] = metaPath
	return paths, nil
}

func to8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(v * 255))
}
