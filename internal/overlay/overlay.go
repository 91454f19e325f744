// Package overlay projects cycle results into drawing instructions and a status line.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/kozaktomas/gatewatch/internal/facematch"
)

var (
	ColorRecognized   = color.RGBA{R: 0x22, G: 0xC5, B: 0x5E, A: 0xFF}
	ColorUncertain    = color.RGBA{R: 0xF5, G: 0x9E, B: 0x0B, A: 0xFF}
	ColorUnrecognized = color.RGBA{R: 0xEF, G: 0x44, B: 0x44, A: 0xFF}
)

// TierColor maps a tier to its box colour
func TierColor(t facematch.Tier) color.RGBA {
	switch t {
	case facematch.Recognized:
		return ColorRecognized
	case facematch.Uncertain:
		return ColorUncertain
	default:
		return ColorUnrecognized
	}
}

// Hex formats c as #RRGGBB
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// Instruction draws one box with its label
type Instruction struct {
	Box   image.Rectangle `json:"box"`
	Label string          `json:"label"`
	Tier  string          `json:"tier"`
	Color string          `json:"color"`
	rgba  color.RGBA
}

// State is the session state shown next to the results
type State struct {
	Active        bool
	PresentNames  []string
	AbsenceStreak int
	GalleryError  bool
}

// Projection is everything needed to render one cycle
type Projection struct {
	Instructions []Instruction `json:"instructions"`
	Status       string        `json:"status"`
	Recognized   int           `json:"recognized"`
	Uncertain    int           `json:"uncertain"`
	Unrecognized int           `json:"unrecognized"`
}

// Label returns "Name (87%)", "Name? (45%)" or "Unknown (20%)"
func Label(r facematch.Result) string {
	pct := int(math.Round(facematch.DisplayConfidence(r.Confidence)))
	switch r.Tier {
	case facematch.Recognized:
		return fmt.Sprintf("%s (%d%%)", r.Name(), pct)
	case facematch.Uncertain:
		return fmt.Sprintf("%s? (%d%%)", r.Name(), pct)
	default:
		return fmt.Sprintf("Unknown (%d%%)", pct)
	}
}

// Project builds the overlay for one cycle. It does not retain anything.
func Project(results []facematch.Result, st State) Projection {
	p := Projection{Instructions: make([]Instruction, 0, len(results))}
	for _, r := range results {
		c := TierColor(r.Tier)
		p.Instructions = append(p.Instructions, Instruction{
			Box:   r.Detection.Box,
			Label: Label(r),
			Tier:  r.Tier.String(),
			Color: Hex(c),
			rgba:  c,
		})
		switch r.Tier {
		case facematch.Recognized:
			p.Recognized++
		case facematch.Uncertain:
			p.Uncertain++
		default:
			p.Unrecognized++
		}
	}
	p.Status = statusLine(len(results), p, st)
	return p
}

func statusLine(faces int, p Projection, st State) string {
	if !st.Active {
		return "Monitoring stopped"
	}
	if st.GalleryError {
		return "Gallery unavailable, retrying"
	}

	var b strings.Builder
	if faces == 0 {
		b.WriteString("No faces")
		if st.AbsenceStreak > 0 {
			fmt.Fprintf(&b, " (empty for %d cycles)", st.AbsenceStreak)
		}
	} else {
		fmt.Fprintf(&b, "%d %s: %d recognized, %d uncertain, %d unknown",
			faces, plural(faces, "face", "faces"), p.Recognized, p.Uncertain, p.Unrecognized)
	}
	if len(st.PresentNames) > 0 {
		b.WriteString(" | present: ")
		b.WriteString(strings.Join(st.PresentNames, ", "))
	}
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
