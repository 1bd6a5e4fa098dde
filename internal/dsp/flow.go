package dsp

// Flow holds the arguments shared by the motion-compensated blending kernels.
//
// RefB and RefF are padded reference planes (assembled at Pel times the frame
// density when Pel > 1) sharing RefStride; RefBase is the index of frame pixel
// (0,0). The per-pixel byte fields all share VStride and hold vector
// components offset by 128 (VX*, VY*) or occlusion weights (Mask*).
type Flow[T Sample] struct {
	Dst       []T
	DstStride int

	RefB, RefF []T
	RefStride  int
	RefBase    int

	VXB, VYB, VXF, VYF []byte
	MaskB, MaskF       []byte
	// Overshoot fields at twice the displacement, used by FlowInterExtra.
	VXBB, VYBB, VXFF, VYFF []byte
	VStride                int

	Width, Height int
	Time          int
	Pel           int
	LUT           *LUT
}

// FlowInter blends forward and backward compensated samples for rows
// [y0, y1). Occluded areas (high mask) fall back to the other direction and
// to the zero-displacement sample of the same reference.
func FlowInter[T Sample](f *Flow[T], y0, y1 int) {
	rs, pel, t := f.RefStride, f.Pel, f.Time
	lutB, lutF := &f.LUT.B, &f.LUT.F
	for h := y0; h < y1; h++ {
		dst := f.Dst[h*f.DstStride : h*f.DstStride+f.Width]
		v := h * f.VStride
		vxB, vyB := f.VXB[v:v+f.Width], f.VYB[v:v+f.Width]
		vxF, vyF := f.VXF[v:v+f.Width], f.VYF[v:v+f.Width]
		maskB, maskF := f.MaskB[v:v+f.Width], f.MaskF[v:v+f.Width]
		row := f.RefBase + h*pel*rs

		for w := range dst {
			base := row + w*pel
			dstF := int(f.RefF[base+lutF[vyF[w]]*rs+lutF[vxF[w]]])
			dstF0 := int(f.RefF[base])
			dstB := int(f.RefB[base+lutB[vyB[w]]*rs+lutB[vxB[w]]])
			dstB0 := int(f.RefB[base])
			mf, mb := int(maskF[w]), int(maskB[w])

			estF := (dstF*(255-mf) + ((mf*(dstB*(255-mb)+mb*dstF0) + 255) >> 8) + 255) >> 8
			estB := (dstB*(255-mb) + ((mb*(dstF*(255-mf)+mf*dstB0) + 255) >> 8) + 255) >> 8
			dst[w] = T((estF*(256-t) + estB*t) >> 8)
		}
	}
}

// median3r is the median of a, b, c when a <= c is known.
func median3r(a, b, c int) int {
	if b <= a {
		return a
	}
	if c <= b {
		return c
	}
	return b
}

// FlowInterExtra is FlowInter with overshoot samples: in occluded areas
// the compensated sample is replaced by the median of the forward/backward
// pair and the sample fetched at twice the displacement.
func FlowInterExtra[T Sample](f *Flow[T], y0, y1 int) {
	rs, pel, t := f.RefStride, f.Pel, f.Time
	lutB, lutF := &f.LUT.B, &f.LUT.F
	for h := y0; h < y1; h++ {
		dst := f.Dst[h*f.DstStride : h*f.DstStride+f.Width]
		v := h * f.VStride
		vxB, vyB := f.VXB[v:v+f.Width], f.VYB[v:v+f.Width]
		vxF, vyF := f.VXF[v:v+f.Width], f.VYF[v:v+f.Width]
		vxBB, vyBB := f.VXBB[v:v+f.Width], f.VYBB[v:v+f.Width]
		vxFF, vyFF := f.VXFF[v:v+f.Width], f.VYFF[v:v+f.Width]
		maskB, maskF := f.MaskB[v:v+f.Width], f.MaskF[v:v+f.Width]
		row := f.RefBase + h*pel*rs

		for w := range dst {
			base := row + w*pel
			dstF := int(f.RefF[base+lutF[vyF[w]]*rs+lutF[vxF[w]]])
			dstFF := int(f.RefF[base+lutF[vyFF[w]]*rs+lutF[vxFF[w]]])
			dstB := int(f.RefB[base+lutB[vyB[w]]*rs+lutB[vxB[w]]])
			dstBB := int(f.RefB[base+lutB[vyBB[w]]*rs+lutB[vxBB[w]]])

			minfb, maxfb := dstF, dstB
			if dstF > dstB {
				minfb, maxfb = dstB, dstF
			}
			mf, mb := int(maskF[w]), int(maskB[w])

			estF := (median3r(minfb, dstBB, maxfb)*mf + dstF*(255-mf) + 255) >> 8
			estB := (median3r(minfb, dstFF, maxfb)*mb + dstB*(255-mb) + 255) >> 8
			dst[w] = T((estF*(256-t) + estB*t) >> 8)
		}
	}
}

// FlowInterSimple is the reduced-accuracy variant: no zero-displacement
// fallback, a single level of mask weighting. At t == 128 the displacement
// is decoded by a shift instead of the LUT, and at pel 1 two adjacent output
// pixels share one decoded displacement.
func FlowInterSimple[T Sample](f *Flow[T], y0, y1 int) {
	if f.Time == 128 {
		flowInterSimpleHalf(f, y0, y1)
		return
	}
	rs, pel, t := f.RefStride, f.Pel, f.Time
	lutB, lutF := &f.LUT.B, &f.LUT.F
	for h := y0; h < y1; h++ {
		dst := f.Dst[h*f.DstStride : h*f.DstStride+f.Width]
		v := h * f.VStride
		vxB, vyB := f.VXB[v:v+f.Width], f.VYB[v:v+f.Width]
		vxF, vyF := f.VXF[v:v+f.Width], f.VYF[v:v+f.Width]
		maskB, maskF := f.MaskB[v:v+f.Width], f.MaskF[v:v+f.Width]
		row := f.RefBase + h*pel*rs

		for w := range dst {
			base := row + w*pel
			dstF := int(f.RefF[base+lutF[vyF[w]]*rs+lutF[vxF[w]]])
			dstB := int(f.RefB[base+lutB[vyB[w]]*rs+lutB[vxB[w]]])
			mf, mb := int(maskF[w]), int(maskB[w])
			dst[w] = T((((dstF*(255-mf)+dstB*mf+255)>>8)*(256-t) +
				((dstB*(255-mb)+dstF*mb+255)>>8)*t) >> 8)
		}
	}
}

func flowInterSimpleHalf[T Sample](f *Flow[T], y0, y1 int) {
	rs, pel := f.RefStride, f.Pel
	for h := y0; h < y1; h++ {
		dst := f.Dst[h*f.DstStride : h*f.DstStride+f.Width]
		v := h * f.VStride
		vxB, vyB := f.VXB[v:v+f.Width], f.VYB[v:v+f.Width]
		vxF, vyF := f.VXF[v:v+f.Width], f.VYF[v:v+f.Width]
		maskB, maskF := f.MaskB[v:v+f.Width], f.MaskF[v:v+f.Width]
		row := f.RefBase + h*pel*rs

		w := 0
		if pel == 1 {
			for ; w+1 < len(dst); w += 2 {
				addrF := row + w + HalfStep[vyF[w]]*rs + HalfStep[vxF[w]]
				addrB := row + w + HalfStep[vyB[w]]*rs + HalfStep[vxB[w]]
				dstF, dstF1 := int(f.RefF[addrF]), int(f.RefF[addrF+1])
				dstB, dstB1 := int(f.RefB[addrB]), int(f.RefB[addrB+1])
				dst[w] = T((((dstF + dstB) << 8) + (dstB-dstF)*(int(maskF[w])-int(maskB[w]))) >> 9)
				dst[w+1] = T((((dstF1 + dstB1) << 8) + (dstB1-dstF1)*(int(maskF[w+1])-int(maskB[w+1]))) >> 9)
			}
		}
		for ; w < len(dst); w++ {
			base := row + w*pel
			dstF := int(f.RefF[base+HalfStep[vyF[w]]*rs+HalfStep[vxF[w]]])
			dstB := int(f.RefB[base+HalfStep[vyB[w]]*rs+HalfStep[vxB[w]]])
			dst[w] = T((((dstF + dstB) << 8) + (dstB-dstF)*(int(maskF[w])-int(maskB[w]))) >> 9)
		}
	}
}

// Extent is the bounding box of sample coordinates a kernel reads,
// relative to the reference origin.
type Extent struct {
	MinX, MaxX, MinY, MaxY int
}

// Union grows e to cover o.
func (e Extent) Union(o Extent) Extent {
	return Extent{min(e.MinX, o.MinX), max(e.MaxX, o.MaxX), min(e.MinY, o.MinY), max(e.MaxY, o.MaxY)}
}

// Reach returns the extent read through one displacement field decoded with
// table, for a width x height output at the given pel. pairRead widens the
// extent by one sample to the right, for kernels that read two adjacent
// samples per decoded displacement.
func Reach(vx, vy []byte, vstride, width, height, pel int, table *[256]int, pairRead bool) Extent {
	e := Extent{MinX: 0, MaxX: (width - 1) * pel, MinY: 0, MaxY: (height - 1) * pel}
	for h := 0; h < height; h++ {
		rx := vx[h*vstride : h*vstride+width]
		ry := vy[h*vstride : h*vstride+width]
		y := h * pel
		for w := range rx {
			x := w*pel + table[rx[w]]
			dy := y + table[ry[w]]
			e.MinX = min(e.MinX, x)
			e.MaxX = max(e.MaxX, x)
			e.MinY = min(e.MinY, dy)
			e.MaxY = max(e.MaxY, dy)
		}
	}
	if pairRead {
		e.MaxX++
	}
	return e
}
