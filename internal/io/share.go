package io

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"matview/internal/core"
)

// Shareable is an encoded still ready to hand to a share target.
type Shareable struct {
	Data     []byte
	MimeType string
	URI      fyne.URI
}

// Sharer encodes the displayed image and stages it as a temporary file.
type Sharer struct {
	dir    string
	logger logrus.FieldLogger
}

// NewSharer stages files in dir, or the OS temp dir when dir is empty.
func NewSharer(dir string, logger logrus.FieldLogger) *Sharer {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Sharer{dir: dir, logger: logger}
}

// Share encodes the current surface image as ext and writes it to a uniquely named file.
func (s *Sharer) Share(surface *core.DisplaySurface, ext string) (Shareable, error) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	data, err := s.encode(surface, ext)
	if err != nil {
		return Shareable{}, err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Shareable{}, fmt.Errorf("create share dir: %w", err)
	}
	path := filepath.Join(s.dir, "matview-"+uuid.NewString()+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Shareable{}, fmt.Errorf("write share file: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"filepath": path,
		"bytes":    len(data),
	}).Info("SHARE: Staged image")

	return Shareable{
		Data:     data,
		MimeType: mimeType(ext),
		URI:      storage.NewFileURI(path),
	}, nil
}

func (s *Sharer) encode(surface *core.DisplaySurface, ext string) ([]byte, error) {
	switch ext {
	case ".bmp", ".tif", ".tiff":
		img, err := surface.Snapshot()
		if err != nil {
			return nil, fmt.Errorf("share: %w", err)
		}
		var buf bytes.Buffer
		if err := EncodeImage(&buf, img, ext); err != nil {
			return nil, fmt.Errorf("share: %w", err)
		}
		return buf.Bytes(), nil
	}

	mat := surface.Get()
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("share: no image displayed")
	}

	// JPEG has no alpha
	if ext == ".jpg" || ext == ".jpeg" {
		bgr := gocv.NewMat()
		defer bgr.Close()
		if err := gocv.CvtColor(mat, &bgr, gocv.ColorBGRAToBGR); err != nil {
			return nil, fmt.Errorf("share: drop alpha: %w", err)
		}
		return Encode(bgr, ext)
	}
	return Encode(mat, ext)
}

func mimeType(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	}
	return "application/octet-stream"
}
