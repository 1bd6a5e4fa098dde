package main

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	"github.com/deepteams/mvflow"
)

// toYCbCr wraps an 8-bit 4:2:0 frame as an image without copying.
func toYCbCr(f *yuvFrame) *image.YCbCr {
	return &image.YCbCr{
		Y:              f.Y.Pix,
		Cb:             f.Cb.Pix,
		Cr:             f.Cr.Pix,
		YStride:        f.Y.Pitch,
		CStride:        f.Cb.Pitch,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, f.Y.Width, f.Y.Height),
	}
}

// toGray returns the plane as a grayscale image, 16-bit planes widened to
// Gray16.
func toGray(p *mvflow.Plane) image.Image {
	r := image.Rect(0, 0, p.Width, p.Height)
	if p.BitDepth == 16 {
		img := image.NewGray16(r)
		for y := 0; y < p.Height; y++ {
			for x := 0; x < p.Width; x++ {
				v := p.Sample(x, y)
				img.Pix[y*img.Stride+2*x] = uint8(v >> 8)
				img.Pix[y*img.Stride+2*x+1] = uint8(v)
			}
		}
		return img
	}
	return &image.Gray{Pix: p.Pix, Stride: p.Pitch, Rect: r}
}

// encodeFrame writes f as PNG (color) or TIFF (luma only, deflate).
func encodeFrame(w io.Writer, f *yuvFrame, format string) error {
	switch format {
	case "png":
		return png.Encode(w, toYCbCr(f))
	case "tiff":
		return tiff.Encode(w, toGray(f.Y), &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	}
	return fmt.Errorf("unknown output format %q", format)
}

// outputFormat picks the format from the file extension, PNG by default.
func outputFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		return "tiff"
	}
	return "png"
}

// writeFrame writes f to path, or to stdout as PNG when path is "-".
func writeFrame(path string, f *yuvFrame) error {
	if path == "-" {
		return encodeFrame(os.Stdout, f, "png")
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encodeFrame(out, f, outputFormat(path)); err != nil {
		out.Close()
		os.Remove(path)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}
