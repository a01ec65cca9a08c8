package iiif

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
)

// Quality values accepted by the image API.
var qualities = map[string]bool{
	"default": true,
	"color":   true,
	"gray":    true,
	"bitonal": true,
}

// Output formats accepted by the image API.
var formats = map[string]bool{
	"jpg":  true,
	"png":  true,
	"webp": true,
	"tif":  true,
}

// Region is the parsed region segment: "full", "x,y,w,h" or "pct:x,y,w,h".
type Region struct {
	Full    bool
	Percent bool
	X, Y    float64
	W, H    float64

	raw string
}

func (r Region) String() string { return r.raw }

// Size is the parsed size segment: "full", "w,", ",h", "pct:n", "w,h" or "!w,h".
type Size struct {
	Full    bool
	Best    bool
	Percent float64
	W, H    int

	raw string
}

func (s Size) String() string { return s.raw }

// Rotation is the parsed rotation segment: degrees with an optional "!" mirror prefix.
type Rotation struct {
	Mirror  bool
	Degrees float64

	raw string
}

func (r Rotation) String() string { return r.raw }

// Request is a syntactically valid image request. Its parameters have not yet
// been checked against the source dimensions; see Resolve.
type Request struct {
	Identifier    string // percent-decoded
	RawIdentifier string
	Region        Region
	Size          Size
	Rotation      Rotation
	Quality       string
	Format        string
}

// ValidIdentifier reports whether a decoded identifier is safe to join to a
// storage root: relative and free of parent-directory segments. Identities
// address cache storage by path, so anything that escapes a root must be
// rejected before a cache is consulted.
func ValidIdentifier(identifier string) bool {
	if identifier == "" {
		return false
	}
	clean := filepath.Clean(filepath.FromSlash(identifier))
	if clean == "." || clean == ".." || filepath.IsAbs(clean) {
		return false
	}
	return !strings.HasPrefix(clean, ".."+string(filepath.Separator))
}

// ParseRequest validates the five request segments
// {identifier}/{region}/{size}/{rotation}/{quality}.{format}.
func ParseRequest(identifier, region, size, rotation, qualityFormat string) (*Request, error) {
	decoded, err := url.PathUnescape(identifier)
	if err != nil || !ValidIdentifier(decoded) {
		return nil, fmt.Errorf("invalid identifier %q", identifier)
	}

	reg, err := parseRegion(region)
	if err != nil {
		return nil, err
	}
	sz, err := parseSize(size)
	if err != nil {
		return nil, err
	}
	rot, err := parseRotation(rotation)
	if err != nil {
		return nil, err
	}

	dot := strings.LastIndex(qualityFormat, ".")
	if dot <= 0 || dot == len(qualityFormat)-1 {
		return nil, fmt.Errorf("invalid quality/format segment %q", qualityFormat)
	}
	quality := qualityFormat[:dot]
	format := qualityFormat[dot+1:]
	if !qualities[quality] {
		return nil, fmt.Errorf("unsupported quality %q", quality)
	}
	if !formats[format] {
		return nil, fmt.Errorf("unsupported format %q", format)
	}

	return &Request{
		Identifier:    decoded,
		RawIdentifier: identifier,
		Region:        reg,
		Size:          sz,
		Rotation:      rot,
		Quality:       quality,
		Format:        format,
	}, nil
}

// Path is the decoded path-safe form of the request, used to address the
// derivative cache: identifier/region/size/rotation/quality.format with the
// parameters exactly as requested.
func (r *Request) Path() string {
	return fmt.Sprintf("%s/%s/%s/%s/%s.%s",
		r.Identifier, r.Region, r.Size, r.Rotation, r.Quality, r.Format)
}

// RawPath is the request path as it appeared on the wire, identifier still
// percent-encoded.
func (r *Request) RawPath() string {
	return fmt.Sprintf("%s/%s/%s/%s/%s.%s",
		r.RawIdentifier, r.Region, r.Size, r.Rotation, r.Quality, r.Format)
}

func parseRegion(s string) (Region, error) {
	r := Region{raw: s}
	if s == "full" {
		r.Full = true
		return r, nil
	}

	rest := s
	if strings.HasPrefix(rest, "pct:") {
		r.Percent = true
		rest = strings.TrimPrefix(rest, "pct:")
	}

	parts := strings.Split(rest, ",")
	if len(parts) != 4 {
		return Region{}, fmt.Errorf("invalid region %q", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return Region{}, fmt.Errorf("invalid region %q", s)
		}
		if !r.Percent && strings.Contains(p, ".") {
			return Region{}, fmt.Errorf("invalid region %q: pixel values must be integers", s)
		}
		vals[i] = v
	}
	r.X, r.Y, r.W, r.H = vals[0], vals[1], vals[2], vals[3]
	if r.W <= 0 || r.H <= 0 {
		return Region{}, fmt.Errorf("invalid region %q: zero width or height", s)
	}
	return r, nil
}

func parseSize(s string) (Size, error) {
	sz := Size{raw: s}
	if s == "full" {
		sz.Full = true
		return sz, nil
	}

	if strings.HasPrefix(s, "pct:") {
		v, err := strconv.ParseFloat(strings.TrimPrefix(s, "pct:"), 64)
		if err != nil || v <= 0 {
			return Size{}, fmt.Errorf("invalid size %q", s)
		}
		sz.Percent = v
		return sz, nil
	}

	rest := s
	if strings.HasPrefix(rest, "!") {
		sz.Best = true
		rest = strings.TrimPrefix(rest, "!")
	}

	parts := strings.SplitN(rest, ",", 2)
	if len(parts) != 2 {
		return Size{}, fmt.Errorf("invalid size %q", s)
	}
	if parts[0] != "" {
		w, err := strconv.Atoi(parts[0])
		if err != nil || w <= 0 {
			return Size{}, fmt.Errorf("invalid size %q", s)
		}
		sz.W = w
	}
	if parts[1] != "" {
		h, err := strconv.Atoi(parts[1])
		if err != nil || h <= 0 {
			return Size{}, fmt.Errorf("invalid size %q", s)
		}
		sz.H = h
	}
	if sz.W == 0 && sz.H == 0 {
		return Size{}, fmt.Errorf("invalid size %q", s)
	}
	if sz.Best && (sz.W == 0 || sz.H == 0) {
		return Size{}, fmt.Errorf("invalid size %q: best-fit needs both dimensions", s)
	}
	return sz, nil
}

func parseRotation(s string) (Rotation, error) {
	r := Rotation{raw: s}
	rest := s
	if strings.HasPrefix(rest, "!") {
		r.Mirror = true
		rest = strings.TrimPrefix(rest, "!")
	}
	v, err := strconv.ParseFloat(rest, 64)
	if err != nil || v < 0 || v > 360 {
		return Rotation{}, fmt.Errorf("invalid rotation %q", s)
	}
	r.Degrees = v
	return r, nil
}
