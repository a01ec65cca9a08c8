package iiif

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestValid(t *testing.T) {
	req, err := ParseRequest("img.jpg", "full", "full", "0", "default.jpg")
	require.NoError(t, err)
	assert.Equal(t, "img.jpg", req.Identifier)
	assert.True(t, req.Region.Full)
	assert.True(t, req.Size.Full)
	assert.Equal(t, 0.0, req.Rotation.Degrees)
	assert.Equal(t, "default", req.Quality)
	assert.Equal(t, "jpg", req.Format)
}

func TestParseRequestDecodesIdentifier(t *testing.T) {
	req, err := ParseRequest("books%2Fvol1%2Fp001.tif", "full", "full", "0", "default.png")
	require.NoError(t, err)
	assert.Equal(t, "books/vol1/p001.tif", req.Identifier)
	assert.Equal(t, "books%2Fvol1%2Fp001.tif", req.RawIdentifier)
}

func TestValidIdentifier(t *testing.T) {
	for _, in := range []string{"img.jpg", "books/vol1/p001.tif", "a b.png"} {
		assert.True(t, ValidIdentifier(in), in)
	}
	for _, in := range []string{"", ".", "..", "../x.jpg", "a/../../x.jpg", "/etc/passwd"} {
		assert.False(t, ValidIdentifier(in), "identifier %q should be rejected", in)
	}
}

func TestParseRequestRejectsTraversalIdentifier(t *testing.T) {
	for _, in := range []string{"..%2F..%2Fsecret.jpg", "../secret.jpg", "%2Fetc%2Fpasswd"} {
		_, err := ParseRequest(in, "full", "full", "0", "default.jpg")
		assert.Error(t, err, "identifier %q should be rejected", in)
	}
}

func TestParseRegionForms(t *testing.T) {
	tests := []struct {
		in      string
		percent bool
		x, y    float64
		w, h    float64
	}{
		{"0,0,100,200", false, 0, 0, 100, 200},
		{"10,20,30,40", false, 10, 20, 30, 40},
		{"pct:25,25,50,50", true, 25, 25, 50, 50},
		{"pct:0,0,12.5,12.5", true, 0, 0, 12.5, 12.5},
	}
	for _, tt := range tests {
		reg, err := parseRegion(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.percent, reg.Percent, tt.in)
		assert.Equal(t, tt.x, reg.X, tt.in)
		assert.Equal(t, tt.w, reg.W, tt.in)
	}
}

func TestParseRegionInvalid(t *testing.T) {
	for _, in := range []string{"", "0,0,100", "0,0,0,100", "0,0,100,0", "a,b,c,d", "10.5,0,100,100", "-1,0,10,10", "pct:"} {
		_, err := parseRegion(in)
		assert.Error(t, err, "region %q should be rejected", in)
	}
}

func TestParseSizeForms(t *testing.T) {
	sz, err := parseSize("150,")
	require.NoError(t, err)
	assert.Equal(t, 150, sz.W)
	assert.Zero(t, sz.H)

	sz, err = parseSize(",75")
	require.NoError(t, err)
	assert.Zero(t, sz.W)
	assert.Equal(t, 75, sz.H)

	sz, err = parseSize("pct:50")
	require.NoError(t, err)
	assert.Equal(t, 50.0, sz.Percent)

	sz, err = parseSize("100,50")
	require.NoError(t, err)
	assert.Equal(t, 100, sz.W)
	assert.Equal(t, 50, sz.H)

	sz, err = parseSize("!200,200")
	require.NoError(t, err)
	assert.True(t, sz.Best)
	assert.Equal(t, 200, sz.W)
	assert.Equal(t, 200, sz.H)
}

func TestParseSizeInvalid(t *testing.T) {
	for _, in := range []string{"", ",", "0,", ",0", "pct:0", "pct:-5", "!100,", "abc", "-100,"} {
		_, err := parseSize(in)
		assert.Error(t, err, "size %q should be rejected", in)
	}
}

func TestParseRotation(t *testing.T) {
	rot, err := parseRotation("90")
	require.NoError(t, err)
	assert.Equal(t, 90.0, rot.Degrees)
	assert.False(t, rot.Mirror)

	rot, err = parseRotation("!22.5")
	require.NoError(t, err)
	assert.Equal(t, 22.5, rot.Degrees)
	assert.True(t, rot.Mirror)

	for _, in := range []string{"", "-90", "361", "!", "abc"} {
		_, err := parseRotation(in)
		assert.Error(t, err, "rotation %q should be rejected", in)
	}
}

func TestParseRequestQualityFormat(t *testing.T) {
	for _, in := range []string{"default.jpg", "color.png", "gray.webp", "bitonal.tif"} {
		_, err := ParseRequest("x.jpg", "full", "full", "0", in)
		assert.NoError(t, err, in)
	}
	for _, in := range []string{"default", "native.jpg", "default.gif", ".jpg", "default."} {
		_, err := ParseRequest("x.jpg", "full", "full", "0", in)
		assert.Error(t, err, "segment %q should be rejected", in)
	}
}

func TestRequestPath(t *testing.T) {
	req, err := ParseRequest("a%2Fb.jpg", "0,0,10,10", "pct:50", "!90", "gray.png")
	require.NoError(t, err)
	assert.Equal(t, "a/b.jpg/0,0,10,10/pct:50/!90/gray.png", req.Path())
	assert.Equal(t, "a%2Fb.jpg/0,0,10,10/pct:50/!90/gray.png", req.RawPath())
}
