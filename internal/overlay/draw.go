package overlay

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const strokeWidth = 2

// Draw renders p onto dst: a stroked box per instruction with its label above it.
func Draw(dst draw.Image, p Projection) {
	face := basicfont.Face7x13
	for _, in := range p.Instructions {
		box := in.Box.Intersect(dst.Bounds())
		if box.Empty() {
			continue
		}
		strokeRect(dst, box, in.rgba)

		width := font.MeasureString(face, in.Label).Ceil() + 4
		height := face.Metrics().Height.Ceil() + 2
		top := box.Min.Y - height
		if top < dst.Bounds().Min.Y {
			top = box.Min.Y
		}
		bg := image.Rect(box.Min.X, top, box.Min.X+width, top+height).Intersect(dst.Bounds())
		draw.Draw(dst, bg, image.NewUniform(in.rgba), image.Point{}, draw.Src)

		d := font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(color.White),
			Face: face,
			Dot:  fixed.P(bg.Min.X+2, bg.Min.Y+face.Metrics().Ascent.Ceil()+1),
		}
		d.DrawString(in.Label)
	}
}

func strokeRect(dst draw.Image, r image.Rectangle, c color.Color) {
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+strokeWidth),
		image.Rect(r.Min.X, r.Max.Y-strokeWidth, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+strokeWidth, r.Max.Y),
		image.Rect(r.Max.X-strokeWidth, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), src, image.Point{}, draw.Src)
	}
}
