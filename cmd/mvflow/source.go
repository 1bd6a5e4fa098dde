package main

import (
	"fmt"
	"io"

	"github.com/gen2brain/mpeg"

	"github.com/deepteams/mvflow"
)

// maxMisses bounds consecutive empty decodes before a stream is considered
// corrupt.
const maxMisses = 64

// yuvFrame is one decoded 4:2:0 frame.
type yuvFrame struct {
	Y, Cb, Cr *mvflow.Plane
}

func (f *yuvFrame) planes() []*mvflow.Plane {
	return []*mvflow.Plane{f.Y, f.Cb, f.Cr}
}

// newYUVFrame allocates an 8-bit 4:2:0 frame.
func newYUVFrame(width, height int) (*yuvFrame, error) {
	y, err := mvflow.NewPlane(width, height, 8)
	if err != nil {
		return nil, err
	}
	cb, err := mvflow.NewPlane((width+1)/2, (height+1)/2, 8)
	if err != nil {
		return nil, err
	}
	cr, err := mvflow.NewPlane((width+1)/2, (height+1)/2, 8)
	if err != nil {
		return nil, err
	}
	return &yuvFrame{Y: y, Cb: cb, Cr: cr}, nil
}

// copyPlane copies the visible part of a macroblock-aligned decoder plane.
func copyPlane(dst *mvflow.Plane, src mpeg.Plane) {
	for y := 0; y < dst.Height; y++ {
		copy(dst.Pix[y*dst.Pitch:y*dst.Pitch+dst.Width], src.Data[y*src.Width:])
	}
}

// copyFrame detaches a decoded frame from the decoder, which reuses its
// buffers on the next call.
func copyFrame(frame *mpeg.Frame) (*yuvFrame, error) {
	f, err := newYUVFrame(frame.Width, frame.Height)
	if err != nil {
		return nil, err
	}
	copyPlane(f.Y, frame.Y)
	copyPlane(f.Cb, frame.Cb)
	copyPlane(f.Cr, frame.Cr)
	return f, nil
}

// readFramePair decodes frames n and n+1 of an MPEG-1 stream.
func readFramePair(r io.Reader, n int) (*yuvFrame, *yuvFrame, error) {
	if n < 0 {
		return nil, nil, fmt.Errorf("frame index %d is negative", n)
	}
	mpg, err := mpeg.New(r)
	if err != nil {
		return nil, nil, fmt.Errorf("opening stream: %w", err)
	}
	mpg.SetAudioEnabled(false)

	var pair []*yuvFrame
	decoded, misses := 0, 0
	for len(pair) < 2 {
		frame := mpg.DecodeVideo()
		if frame == nil {
			misses++
			if mpg.HasEnded() || misses > maxMisses {
				return nil, nil, fmt.Errorf("stream ended after %d frames, need %d", decoded, n+2)
			}
			continue
		}
		misses = 0
		if decoded >= n {
			f, err := copyFrame(frame)
			if err != nil {
				return nil, nil, err
			}
			pair = append(pair, f)
		}
		decoded++
	}
	return pair[0], pair[1], nil
}
