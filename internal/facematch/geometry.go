package facematch

import "image"

// PadRect grows r by margin pixels on every side and clips it to bounds.
func PadRect(r image.Rectangle, margin int, bounds image.Rectangle) image.Rectangle {
	return image.Rect(
		r.Min.X-margin,
		r.Min.Y-margin,
		r.Max.X+margin,
		r.Max.Y+margin,
	).Intersect(bounds)
}

// FitWithin scales (w, h) down so the longer side is at most maxSize,
// preserving aspect ratio. Smaller sizes are returned unchanged.
func FitWithin(w, h, maxSize int) (int, int) {
	if w <= 0 || h <= 0 || maxSize <= 0 {
		return w, h
	}
	if w <= maxSize && h <= maxSize {
		return w, h
	}
	if w >= h {
		return maxSize, max(1, h*maxSize/w)
	}
	return max(1, w*maxSize/h), maxSize
}
