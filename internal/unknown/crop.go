package unknown

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	xdraw "golang.org/x/image/draw"

	"github.com/kozaktomas/gatewatch/internal/constants"
	"github.com/kozaktomas/gatewatch/internal/facematch"
)

var ErrEmptyCrop = errors.New("face box does not intersect the frame")

// CropFace returns the padded face region, scaled down to fit MaxCropSize.
func CropFace(frame image.Image, box image.Rectangle, margin int) (*image.RGBA, error) {
	if frame == nil {
		return nil, ErrEmptyCrop
	}
	r := facematch.PadRect(box, margin, frame.Bounds())
	if r.Empty() {
		return nil, ErrEmptyCrop
	}

	w, h := facematch.FitWithin(r.Dx(), r.Dy(), constants.MaxCropSize)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), frame, r, xdraw.Src, nil)
	return dst, nil
}

// EncodeCrop crops the face and encodes it as a JPEG data URL
func EncodeCrop(frame image.Image, box image.Rectangle, margin int) (string, error) {
	crop, err := CropFace(frame, box, margin)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, crop, &jpeg.Options{Quality: constants.CropJPEGQuality}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
