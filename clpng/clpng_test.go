package clpng

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oss.terrastruct.com/connectlines/cltarget"
)

func decode(t *testing.T, b []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	return img
}

func alpha(img image.Image, x, y int) uint32 {
	_, _, _, a := img.At(x, y).RGBA()
	return a
}

func TestRender(t *testing.T) {
	t.Parallel()

	b, err := Render(&cltarget.Snapshot{
		Paths: []cltarget.PathPoint{
			{D: "M 10 50 L 150 50", Color: "#ff0000", Stroke: cltarget.StrokeSolid},
			{D: "M 20 10 L 20 20 S 20 30 30 30 L 60 30", Stroke: cltarget.StrokeDashed},
		},
	}, &RenderOpts{Width: 200, Height: 100})
	require.NoError(t, err)

	img := decode(t, b)
	assert.Equal(t, image.Rect(0, 0, 200, 100), img.Bounds())

	r, g, bl, a := img.At(80, 50).RGBA()
	assert.NotZero(t, a)
	assert.Greater(t, r, g)
	assert.Greater(t, r, bl)

	// Arrowhead past the line end is filled.
	assert.NotZero(t, alpha(img, 152, 50))

	assert.Zero(t, alpha(img, 5, 90))
	assert.Zero(t, alpha(img, 190, 5))
}

func TestRenderErrors(t *testing.T) {
	t.Parallel()

	_, err := Render(&cltarget.Snapshot{}, nil)
	assert.Error(t, err)

	_, err = Render(&cltarget.Snapshot{
		Paths: []cltarget.PathPoint{{D: "M 0 0 Q 1 1 2 2"}},
	}, &RenderOpts{Width: 10, Height: 10})
	assert.Error(t, err)
}
