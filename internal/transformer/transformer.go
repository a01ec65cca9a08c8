package transformer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cshum/vipsgen/vips"
	"go.uber.org/zap"

	"lorikeet/internal/iiif"
	"lorikeet/internal/imageinfo"
)

// Transformer renders derivatives with libvips: extract the requested
// region, scale, rotate, adjust quality, encode.
type Transformer struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Transformer {
	return &Transformer{log: log}
}

// Describe probes a source image and builds its metadata record, including
// the embedded ICC color profile when one is present.
func (t *Transformer) Describe(sourcePath, publicID string) (*imageinfo.ImageInfo, error) {
	image, err := loadImage(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer image.Close()

	info := imageinfo.New(publicID, image.Width(), image.Height())
	if icc, err := image.GetBlob("icc-profile-data"); err == nil && len(icc) > 0 {
		info.ColorProfile = icc
	}

	return info, nil
}

// Render executes the resolved plan against the source image and writes the
// encoded result to destPath.
func (t *Transformer) Render(sourcePath string, plan *iiif.Plan, destPath string) error {
	image, err := loadImage(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer image.Close()

	if !plan.FullRegion {
		if err := image.ExtractArea(plan.X, plan.Y, plan.W, plan.H); err != nil {
			return fmt.Errorf("failed to extract region: %w", err)
		}
	}

	if plan.Width != plan.W || plan.Height != plan.H {
		resizeOpts := vips.DefaultResizeOptions()
		resizeOpts.Kernel = vips.KernelLanczos3
		resizeOpts.Vscale = float64(plan.Height) / float64(plan.H)
		if err := image.Resize(float64(plan.Width)/float64(plan.W), resizeOpts); err != nil {
			return fmt.Errorf("failed to resize: %w", err)
		}
	}

	if plan.Mirror {
		if err := image.Flip(vips.DirectionHorizontal); err != nil {
			return fmt.Errorf("failed to mirror: %w", err)
		}
	}
	if plan.Rotation != 0 {
		if err := image.Rotate(plan.Rotation, vips.DefaultRotateOptions()); err != nil {
			return fmt.Errorf("failed to rotate: %w", err)
		}
	}

	if plan.Quality == "gray" || plan.Quality == "bitonal" {
		if err := image.Colourspace(vips.InterpretationBW, vips.DefaultColourspaceOptions()); err != nil {
			return fmt.Errorf("failed to convert colourspace: %w", err)
		}
	}

	data, err := encode(image, plan.Format)
	if err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}
	if err := os.WriteFile(destPath, data, 0644); err != nil {
		return err
	}

	t.log.Debug("rendered derivative",
		zap.String("source", sourcePath),
		zap.String("dest", destPath),
		zap.Int("bytes", len(data)),
	)

	return nil
}

func encode(image *vips.Image, format string) ([]byte, error) {
	switch format {
	case "jpg":
		opts := vips.DefaultJpegsaveBufferOptions()
		opts.Q = 90
		return image.JpegsaveBuffer(opts)
	case "png":
		return image.PngsaveBuffer(vips.DefaultPngsaveBufferOptions())
	case "webp":
		return image.WebpsaveBuffer(vips.DefaultWebpsaveBufferOptions())
	case "tif":
		return image.TiffsaveBuffer(vips.DefaultTiffsaveBufferOptions())
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// loadImage loads an image based on file extension, with random access for
// efficient region extraction from large files.
func loadImage(path string) (*vips.Image, error) {
	ext := strings.ToLower(filepath.Ext(path))
	access := vips.AccessRandom

	switch ext {
	case ".tif", ".tiff":
		opts := vips.DefaultTiffloadOptions()
		opts.Access = access
		return vips.NewTiffload(path, opts)
	case ".jpg", ".jpeg":
		opts := vips.DefaultJpegloadOptions()
		opts.Access = access
		return vips.NewJpegload(path, opts)
	case ".png":
		opts := vips.DefaultPngloadOptions()
		opts.Access = access
		return vips.NewPngload(path, opts)
	case ".webp":
		opts := vips.DefaultWebploadOptions()
		opts.Access = access
		return vips.NewWebpload(path, opts)
	default:
		return nil, fmt.Errorf("unsupported image format: %s", ext)
	}
}
