package imageinfo

import (
	"encoding/json"
	"fmt"
)

const (
	Context  = "http://iiif.io/api/image/2/context.json"
	Protocol = "http://iiif.io/api/image"

	// ComplianceLevel2 is the profile URI advertised in info.json.
	ComplianceLevel2 = "http://iiif.io/api/image/2/level2.json"

	tileWidth = 256
)

// Size is a precomputed size advertised in info.json.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Tile describes the tiling scheme advertised in info.json.
type Tile struct {
	Width        int   `json:"width"`
	ScaleFactors []int `json:"scaleFactors"`
}

// ProfileDetails is the second element of the info.json profile array.
type ProfileDetails struct {
	Formats   []string `json:"formats,omitempty"`
	Qualities []string `json:"qualities,omitempty"`
	Supports  []string `json:"supports,omitempty"`
}

// Profile is the info.json "profile" member, serialized as the two-element
// array [complianceURI, {formats, qualities, ...}] the image API requires.
type Profile struct {
	Compliance string
	Details    ProfileDetails
}

func (p Profile) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.Compliance, p.Details})
}

func (p *Profile) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return fmt.Errorf("profile array is empty")
	}
	if err := json.Unmarshal(raw[0], &p.Compliance); err != nil {
		return err
	}
	if len(raw) > 1 {
		if err := json.Unmarshal(raw[1], &p.Details); err != nil {
			return err
		}
	}
	return nil
}

// ImageInfo is the descriptive record for one source image: the info.json
// document plus the raw bytes of an embedded ICC color profile. The profile
// bytes are not part of the JSON form; they persist as a binary sidecar.
type ImageInfo struct {
	JSONContext string  `json:"@context"`
	ID          string  `json:"@id"`
	Protocol    string  `json:"protocol"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Sizes       []Size  `json:"sizes,omitempty"`
	Tiles       []Tile  `json:"tiles,omitempty"`
	Profile     Profile `json:"profile"`

	ColorProfile []byte `json:"-"`
}

// New builds the record for an image of the given dimensions, with the sizes
// pyramid and tiling scheme derived from them.
func New(id string, width, height int) *ImageInfo {
	info := &ImageInfo{
		JSONContext: Context,
		ID:          id,
		Protocol:    Protocol,
		Width:       width,
		Height:      height,
		Profile: Profile{
			Compliance: ComplianceLevel2,
			Details: ProfileDetails{
				Formats:   []string{"jpg", "png", "webp", "tif"},
				Qualities: []string{"default", "color", "gray", "bitonal"},
			},
		},
	}

	// Halving pyramid down to one tile.
	var factors []int
	w, h := width, height
	for factor := 1; ; factor *= 2 {
		factors = append(factors, factor)
		info.Sizes = append([]Size{{Width: w, Height: h}}, info.Sizes...)
		if w <= tileWidth && h <= tileWidth {
			break
		}
		w = (w + 1) / 2
		h = (h + 1) / 2
	}
	info.Tiles = []Tile{{Width: tileWidth, ScaleFactors: factors}}

	return info
}

// FromJSON parses a persisted info.json document.
func FromJSON(data []byte) (*ImageInfo, error) {
	var info ImageInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("info document has invalid dimensions %dx%d", info.Width, info.Height)
	}
	return &info, nil
}

// ToJSON serializes the document, without the color profile bytes.
func (i *ImageInfo) ToJSON() ([]byte, error) {
	return json.Marshal(i)
}
