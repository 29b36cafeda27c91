package mapio

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/lasersim/internal/lasersim/grid"
)

func testImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 3, 2))
	// top row
	img.SetGray(0, 0, color.Gray{Y: 0})
	img.SetGray(1, 0, color.Gray{Y: 254})
	img.SetGray(2, 0, color.Gray{Y: 205})
	// bottom row
	img.SetGray(0, 1, color.Gray{Y: 255})
	img.SetGray(1, 1, color.Gray{Y: 100})
	img.SetGray(2, 1, color.Gray{Y: 0})
	return img
}

func testMetadata() *Metadata {
	return &Metadata{Image: "map.pgm", Resolution: 0.05, Origin: []float64{-1, 2, 0}}
}

func TestDecode(t *testing.T) {
	g, err := Decode(testMetadata(), testImage())
	require.NoError(t, err)

	assert.Equal(t, 3, g.Width)
	assert.Equal(t, 2, g.Height)
	assert.Equal(t, 0.05, g.Resolution)
	assert.Equal(t, r2.Vec{X: -1, Y: 2}, g.Origin)
	// Image row 0 becomes grid row 1.
	assert.Equal(t, []int8{0, -1, 100, 100, 0, -1}, g.Cells())
}

func TestDecodeNegate(t *testing.T) {
	md := testMetadata()
	md.Negate = 1
	g, err := Decode(md, testImage())
	require.NoError(t, err)
	assert.Equal(t, []int8{100, -1, 0, 0, 100, 100}, g.Cells())
}

func TestDecodeThresholds(t *testing.T) {
	md := testMetadata()
	occ, free := 0.5, 0.1
	md.OccupiedThresh, md.FreeThresh = &occ, &free
	g, err := Decode(md, testImage())
	require.NoError(t, err)
	// 100 -> 0.61 is occupied, 205 -> 0.196 is still unknown.
	assert.Equal(t, []int8{0, 100, 100, 100, 0, -1}, g.Cells())
}

func TestDecodeTransparentIsUnknown(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{A: 0})
	img.Set(1, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	g, err := Decode(testMetadata(), img)
	require.NoError(t, err)
	assert.Equal(t, []int8{-1, 0}, g.Cells())
}

func TestDecodeSemiTransparentUsesStraightColor(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.Set(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 128})
	img.Set(1, 0, color.NRGBA{A: 128})
	img.Set(2, 0, color.NRGBA{R: 254, G: 254, B: 254, A: 1})
	g, err := Decode(testMetadata(), img)
	require.NoError(t, err)
	// Light pixels stay free however faint they are.
	assert.Equal(t, []int8{0, 100, 0}, g.Cells())
}

func TestMetadataValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Metadata)
	}{
		{"no image", func(m *Metadata) { m.Image = "" }},
		{"zero resolution", func(m *Metadata) { m.Resolution = 0 }},
		{"short origin", func(m *Metadata) { m.Origin = []float64{0, 0} }},
		{"rotated", func(m *Metadata) { m.Origin[2] = 0.3 }},
		{"bad negate", func(m *Metadata) { m.Negate = 2 }},
		{"scale mode", func(m *Metadata) { m.Mode = "scale" }},
		{"inverted thresholds", func(m *Metadata) {
			occ, free := 0.2, 0.4
			m.OccupiedThresh, m.FreeThresh = &occ, &free
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := testMetadata()
			tt.mutate(md)
			assert.ErrorIs(t, md.Validate(), ErrInvalidMetadata)
		})
	}

	md := testMetadata()
	md.Mode = "trinary"
	assert.NoError(t, md.Validate())
}

func TestLoadYAMLAndPNG(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "office.png"), buf.Bytes(), 0o644))

	yamlPath := filepath.Join(dir, "office.yaml")
	body := "image: office.png\nresolution: 0.1\norigin: [-5.0, -2.5, 0.0]\nnegate: 0\noccupied_thresh: 0.65\nfree_thresh: 0.196\n"
	require.NoError(t, os.WriteFile(yamlPath, []byte(body), 0o644))

	g, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 0.1, g.Resolution)
	assert.Equal(t, r2.Vec{X: -5, Y: -2.5}, g.Origin)
	assert.Equal(t, []int8{0, -1, 100, 100, 0, -1}, g.Cells())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	noImage := filepath.Join(dir, "noimage.yaml")
	require.NoError(t, os.WriteFile(noImage, []byte("image: gone.pgm\nresolution: 1\norigin: [0, 0, 0]\n"), 0o644))
	_, err = Load(noImage)
	assert.ErrorContains(t, err, "failed to open map image")

	bmp := filepath.Join(dir, "bmp.yaml")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "map.bmp"), []byte("BM"), 0o644))
	require.NoError(t, os.WriteFile(bmp, []byte("image: map.bmp\nresolution: 1\norigin: [0, 0, 0]\n"), 0o644))
	_, err = Load(bmp)
	assert.ErrorContains(t, err, "unsupported image format")

	rotated := filepath.Join(dir, "rotated.yaml")
	require.NoError(t, os.WriteFile(rotated, []byte("image: map.pgm\nresolution: 1\norigin: [0, 0, 1.57]\n"), 0o644))
	_, err = Load(rotated)
	assert.ErrorIs(t, err, ErrInvalidMetadata)

	garbage := filepath.Join(dir, "garbage.yaml")
	require.NoError(t, os.WriteFile(garbage, []byte("image: [unterminated\n"), 0o644))
	_, err = Load(garbage)
	assert.ErrorContains(t, err, "failed to parse map metadata")
}

func roomGrid(t *testing.T) *grid.OccupancyGrid {
	t.Helper()
	g, err := grid.NewFilled(6, 4, 0.25, r2.Vec{X: -0.75, Y: -0.5}, grid.Free)
	require.NoError(t, err)
	for _, c := range []struct {
		x, y int
		v    int8
	}{{0, 0, 100}, {5, 3, 100}, {2, 1, -1}, {3, 2, 70}, {4, 2, 20}, {1, 3, 40}} {
		g, err = g.With(c.x, c.y, c.v)
		require.NoError(t, err)
	}
	return g
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"room.pgm", "room.png"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			yamlPath := filepath.Join(dir, "room.yaml")
			src := roomGrid(t)
			require.NoError(t, Save(yamlPath, name, src))

			got, err := Load(yamlPath)
			require.NoError(t, err)
			assert.Equal(t, src.Width, got.Width)
			assert.Equal(t, src.Height, got.Height)
			assert.Equal(t, src.Resolution, got.Resolution)
			assert.Equal(t, src.Origin, got.Origin)

			// Values collapse to the trinary set: 70 -> 100, 20 -> 0, 40 -> unknown.
			want, err := src.With(3, 2, 100)
			require.NoError(t, err)
			want, err = want.With(4, 2, 0)
			require.NoError(t, err)
			want, err = want.With(1, 3, -1)
			require.NoError(t, err)
			assert.Equal(t, want.Cells(), got.Cells())
		})
	}
}

func TestSaveNilGrid(t *testing.T) {
	assert.Error(t, Save(filepath.Join(t.TempDir(), "x.yaml"), "x.pgm", nil))
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "room.yaml")
	require.NoError(t, Save(yamlPath, "room.pgm", roomGrid(t)))

	p := NewFileProvider(yamlPath)
	g1, err := p.Map(context.Background())
	require.NoError(t, err)
	g2, err := p.Map(context.Background())
	require.NoError(t, err)
	assert.Same(t, g1, g2, "second call should be served from cache")

	// Replace the file; the cache hides the change until Reload.
	empty, err := grid.NewFilled(2, 2, 1, r2.Vec{}, grid.Free)
	require.NoError(t, err)
	require.NoError(t, Save(yamlPath, "room.pgm", empty))
	g3, err := p.Map(context.Background())
	require.NoError(t, err)
	assert.Same(t, g1, g3)

	p.Reload()
	g4, err := p.Map(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, g4.Width)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Map(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}
