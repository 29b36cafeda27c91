package mapio

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"

	"github.com/banshee-data/lasersim/internal/lasersim/grid"
)

// Pixel values written by Save, following the map_saver convention.
const (
	pixelOccupied = 0
	pixelFree     = 254
	pixelUnknown  = 205
)

// Occupancy bounds used by Save to pick a pixel value.
const (
	SaveOccupiedThreshold = 65
	SaveFreeThreshold     = 25
)

// Load reads the YAML file at yamlPath and the image it references and
// returns the resulting grid.
func Load(yamlPath string) (*grid.OccupancyGrid, error) {
	md, err := ReadMetadata(yamlPath)
	if err != nil {
		return nil, err
	}
	img, err := readImage(md.ImagePath(yamlPath))
	if err != nil {
		return nil, err
	}
	return Decode(md, img)
}

// Decode converts img into a grid using the thresholds in md. Image row 0
// is the top of the map, so it becomes the highest grid row.
func Decode(md *Metadata, img image.Image) (*grid.OccupancyGrid, error) {
	if err := md.Validate(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("mapio: empty image")
	}

	occTh, freeTh := md.Thresholds()
	cells := make([]int8, w*h)
	for row := 0; row < h; row++ {
		cy := h - 1 - row
		for col := 0; col < w; col++ {
			cells[cy*w+col] = classify(img.At(b.Min.X+col, b.Min.Y+row), md.Negate == 1, occTh, freeTh)
		}
	}

	origin := r2.Vec{X: md.Origin[0], Y: md.Origin[1]}
	return grid.New(w, h, md.Resolution, origin, cells)
}

// classify maps a pixel to a trinary occupancy value. Fully transparent
// pixels are unknown; partially transparent ones are judged by their
// un-premultiplied brightness.
func classify(c color.Color, negate bool, occTh, freeTh float64) int8 {
	r, g, b, a := c.RGBA()
	if a == 0 {
		return grid.Unknown
	}
	// Same luma weights as color.Gray16Model, applied before dividing out alpha.
	y := (19595*float64(r) + 38470*float64(g) + 7471*float64(b)) / 65536
	p := math.Min(y/float64(a), 1)
	occ := 1 - p
	if negate {
		occ = p
	}
	switch {
	case occ > occTh:
		return grid.MaxOccupied
	case occ < freeTh:
		return grid.Free
	default:
		return grid.Unknown
	}
}

func readImage(path string) (image.Image, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open map image: %w", err)
	}
	defer f.Close()

	var img image.Image
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pgm":
		img, err = decodePGM(f)
	case ".png":
		img, err = decodePNG(f)
	default:
		return nil, fmt.Errorf("mapio: unsupported image format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode map image %s: %w", path, err)
	}
	return img, nil
}

// Encode renders g as a grayscale image in map_saver colors.
func Encode(g *grid.OccupancyGrid) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	for cy := 0; cy < g.Height; cy++ {
		row := g.Height - 1 - cy
		for cx := 0; cx < g.Width; cx++ {
			v := g.OccupancyAt(cx, cy)
			px := uint8(pixelUnknown)
			switch {
			case v >= SaveOccupiedThreshold:
				px = pixelOccupied
			case v >= 0 && v <= SaveFreeThreshold:
				px = pixelFree
			}
			img.Pix[img.PixOffset(cx, row)] = px
		}
	}
	return img
}

// Save writes g to yamlPath and an image next to it. The image is a PNG
// when imageName ends in .png and a PGM otherwise.
func Save(yamlPath, imageName string, g *grid.OccupancyGrid) error {
	if g == nil {
		return fmt.Errorf("mapio: nil grid")
	}
	imgPath := filepath.Join(filepath.Dir(yamlPath), imageName)
	f, err := os.Create(filepath.Clean(imgPath))
	if err != nil {
		return fmt.Errorf("failed to create map image: %w", err)
	}

	img := Encode(g)
	if strings.EqualFold(filepath.Ext(imageName), ".png") {
		err = png.Encode(f, img)
	} else {
		err = encodePGM(f, img)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write map image %s: %w", imgPath, err)
	}

	occ, free := DefaultOccupiedThresh, DefaultFreeThresh
	md := Metadata{
		Image:          imageName,
		Resolution:     g.Resolution,
		Origin:         []float64{g.Origin.X, g.Origin.Y, 0},
		OccupiedThresh: &occ,
		FreeThresh:     &free,
	}
	data, err := yaml.Marshal(&md)
	if err != nil {
		return fmt.Errorf("failed to encode map metadata: %w", err)
	}
	if err := os.WriteFile(yamlPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write map metadata: %w", err)
	}
	return nil
}
