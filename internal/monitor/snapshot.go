package monitor

import (
	"image"
	"image/draw"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/kozaktomas/gatewatch/internal/overlay"
)

const snapshotName = "latest.jpg"

// writeSnapshot saves the frame with the overlay drawn on it. The file is
// replaced atomically so readers never see a partial image.
func (s *Session) writeSnapshot(frame image.Image, proj overlay.Projection) {
	dir := s.m.opts.SnapshotDir
	if dir == "" || frame == nil {
		return
	}

	canvas := image.NewRGBA(frame.Bounds())
	draw.Draw(canvas, canvas.Bounds(), frame, frame.Bounds().Min, draw.Src)
	overlay.Draw(canvas, proj)

	if err := saveJPEG(dir, canvas); err != nil {
		s.m.logger.Warn("failed to write snapshot", "dir", dir, "error", err)
	}
}

func saveJPEG(dir string, img image.Image) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "snapshot-*.jpg")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := jpeg.Encode(tmp, img, &jpeg.Options{Quality: 85}); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, snapshotName))
}
