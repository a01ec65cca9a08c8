package iiif

import (
	"fmt"
	"math"
	"strconv"
)

// Plan is a request resolved against the source dimensions: the exact pixel
// region to extract, the target size, and the normalized rotation. It is the
// input to the rendering pipeline and the source of the canonical path.
type Plan struct {
	FullRegion bool
	X, Y, W, H int

	Width, Height int

	Rotation float64
	Mirror   bool

	Quality string
	Format  string
}

// Resolve checks the request against the source image dimensions and computes
// the exact pixel region and target size.
func (r *Request) Resolve(srcWidth, srcHeight int) (*Plan, error) {
	p := &Plan{
		Quality: r.Quality,
		Format:  r.Format,
	}

	// Region in source pixels, clamped to the image bounds.
	if r.Region.Full {
		p.X, p.Y, p.W, p.H = 0, 0, srcWidth, srcHeight
	} else {
		x, y, w, h := r.Region.X, r.Region.Y, r.Region.W, r.Region.H
		if r.Region.Percent {
			x = x / 100 * float64(srcWidth)
			y = y / 100 * float64(srcHeight)
			w = w / 100 * float64(srcWidth)
			h = h / 100 * float64(srcHeight)
		}
		p.X = int(math.Floor(x))
		p.Y = int(math.Floor(y))
		p.W = int(math.Round(w))
		p.H = int(math.Round(h))
		if p.X >= srcWidth || p.Y >= srcHeight {
			return nil, fmt.Errorf("region %s lies outside the %dx%d image", r.Region, srcWidth, srcHeight)
		}
		if p.X+p.W > srcWidth {
			p.W = srcWidth - p.X
		}
		if p.Y+p.H > srcHeight {
			p.H = srcHeight - p.Y
		}
	}
	if p.W <= 0 || p.H <= 0 {
		return nil, fmt.Errorf("region %s is empty for a %dx%d image", r.Region, srcWidth, srcHeight)
	}
	p.FullRegion = p.X == 0 && p.Y == 0 && p.W == srcWidth && p.H == srcHeight

	// Target size relative to the extracted region.
	switch {
	case r.Size.Full:
		p.Width, p.Height = p.W, p.H
	case r.Size.Percent > 0:
		p.Width = int(math.Round(float64(p.W) * r.Size.Percent / 100))
		p.Height = int(math.Round(float64(p.H) * r.Size.Percent / 100))
	case r.Size.Best:
		scale := math.Min(float64(r.Size.W)/float64(p.W), float64(r.Size.H)/float64(p.H))
		p.Width = int(math.Round(float64(p.W) * scale))
		p.Height = int(math.Round(float64(p.H) * scale))
	case r.Size.W > 0 && r.Size.H > 0:
		p.Width, p.Height = r.Size.W, r.Size.H
	case r.Size.W > 0:
		scale := float64(r.Size.W) / float64(p.W)
		p.Width = r.Size.W
		p.Height = int(math.Round(float64(p.H) * scale))
	default:
		scale := float64(r.Size.H) / float64(p.H)
		p.Width = int(math.Round(float64(p.W) * scale))
		p.Height = r.Size.H
	}
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("size %s collapses region %s to nothing", r.Size, r.Region)
	}

	p.Rotation = math.Mod(r.Rotation.Degrees, 360)
	p.Mirror = r.Rotation.Mirror

	return p, nil
}

// CanonicalPath is the unique normalized spelling of the request: region as
// pixel "x,y,w,h" (or "full"), size as "w," (or "full" when unscaled),
// rotation with insignificant digits trimmed.
func (p *Plan) CanonicalPath(identifier string) string {
	region := "full"
	if !p.FullRegion {
		region = fmt.Sprintf("%d,%d,%d,%d", p.X, p.Y, p.W, p.H)
	}

	// "w," only when the aspect ratio is maintained; a distorting size keeps
	// its height so distinct outputs never share a canonical location.
	size := "full"
	if p.Width != p.W || p.Height != p.H {
		if aspectH := int(math.Round(float64(p.H) * float64(p.Width) / float64(p.W))); p.Height == aspectH {
			size = fmt.Sprintf("%d,", p.Width)
		} else {
			size = fmt.Sprintf("%d,%d", p.Width, p.Height)
		}
	}

	rotation := strconv.FormatFloat(p.Rotation, 'f', -1, 64)
	if p.Mirror {
		rotation = "!" + rotation
	}

	return fmt.Sprintf("%s/%s/%s/%s/%s.%s", identifier, region, size, rotation, p.Quality, p.Format)
}
