package mapio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/spakin/netpbm"
)

// maxMapPixels bounds the image size accepted from a map file.
const maxMapPixels = 1 << 26

// maxImageBytes bounds how much of an image file is read: two bytes per
// pixel at the largest size plus room for a header.
const maxImageBytes = 2*maxMapPixels + 1<<16

var errBadImage = errors.New("mapio: malformed map image")

func checkBounds(cfg image.Config) error {
	w, h := cfg.Width, cfg.Height
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", errBadImage, w, h)
	}
	if w > maxMapPixels || h > maxMapPixels || w*h > maxMapPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", errBadImage, w, h, maxMapPixels)
	}
	return nil
}

func readBounded(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("%w: file larger than %d bytes", errBadImage, maxImageBytes)
	}
	return data, nil
}

// decodePGM reads a portable graymap, binary or plain, 8 or 16 bit. The
// header is checked against maxMapPixels before any pixel buffer exists.
func decodePGM(r io.Reader) (image.Image, error) {
	data, err := readBounded(r)
	if err != nil {
		return nil, err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", errBadImage, err)
	}
	if format != "pgm" {
		return nil, fmt.Errorf("%w: expected pgm, got %s", errBadImage, format)
	}
	if err := checkBounds(cfg); err != nil {
		return nil, err
	}
	img, err := netpbm.Decode(bytes.NewReader(data), &netpbm.DecodeOptions{Target: netpbm.PGM, Exact: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadImage, err)
	}
	return img, nil
}

// decodePNG reads a PNG after the same size check as decodePGM.
func decodePNG(r io.Reader) (image.Image, error) {
	data, err := readBounded(r)
	if err != nil {
		return nil, err
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", errBadImage, err)
	}
	if err := checkBounds(cfg); err != nil {
		return nil, err
	}
	return png.Decode(bytes.NewReader(data))
}

// encodePGM writes img as an 8-bit binary graymap.
func encodePGM(w io.Writer, img image.Image) error {
	return netpbm.Encode(w, img, &netpbm.EncodeOptions{
		Format:   netpbm.PGM,
		MaxValue: 255,
		Comments: []string{"lasersim map"},
	})
}
