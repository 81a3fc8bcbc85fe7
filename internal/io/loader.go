// Image loading, saving and in-memory codecs
package io

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	stdio "io"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

var (
	readFormats  = []string{".jpg", ".jpeg", ".png", ".tiff", ".tif", ".bmp", ".webp"}
	writeFormats = []string{".jpg", ".jpeg", ".png", ".tiff", ".tif", ".bmp"}
)

// ImageLoader handles image file operations
type ImageLoader struct {
	logger logrus.FieldLogger
}

func NewImageLoader(logger logrus.FieldLogger) *ImageLoader {
	return &ImageLoader{
		logger: logger,
	}
}

// LoadImage reads an image keeping its channel count and depth.
func (il *ImageLoader) LoadImage(path string) (gocv.Mat, error) {
	il.logger.WithField("filepath", path).Debug("LOADER: Loading image")

	ext := extension(path)
	if !lo.Contains(readFormats, ext) {
		return gocv.NewMat(), fmt.Errorf("unsupported image format: %s", path)
	}

	var mat gocv.Mat
	if ext == ".webp" {
		data, err := os.ReadFile(path)
		if err != nil {
			return gocv.NewMat(), fmt.Errorf("read %s: %w", path, err)
		}
		mat, err = decodeWebP(data)
		if err != nil {
			return gocv.NewMat(), fmt.Errorf("decode %s: %w", path, err)
		}
	} else {
		mat = gocv.IMRead(path, gocv.IMReadUnchanged)
		if mat.Empty() {
			mat.Close()
			return gocv.NewMat(), fmt.Errorf("failed to load image: %s", path)
		}
	}

	il.logger.WithFields(logrus.Fields{
		"filepath": path,
		"width":    mat.Cols(),
		"height":   mat.Rows(),
		"channels": mat.Channels(),
	}).Info("LOADER: Image loaded successfully")

	return mat, nil
}

func (il *ImageLoader) SaveImage(mat gocv.Mat, path string) error {
	il.logger.WithField("filepath", path).Debug("LOADER: Saving image")

	if mat.Empty() {
		return fmt.Errorf("cannot save empty image")
	}
	if !lo.Contains(writeFormats, extension(path)) {
		return fmt.Errorf("unsupported image format: %s", path)
	}

	if !gocv.IMWrite(path, mat) {
		return fmt.Errorf("failed to save image: %s", path)
	}

	il.logger.WithFields(logrus.Fields{
		"filepath": path,
		"width":    mat.Cols(),
		"height":   mat.Rows(),
		"channels": mat.Channels(),
	}).Info("LOADER: Image saved successfully")

	return nil
}

// ReadExtensions lists file extensions accepted by LoadImage.
func (il *ImageLoader) ReadExtensions() []string {
	return append([]string(nil), readFormats...)
}

// WriteExtensions lists file extensions accepted by SaveImage and Encode.
func (il *ImageLoader) WriteExtensions() []string {
	return append([]string(nil), writeFormats...)
}

// Encode compresses mat with the OpenCV codec selected by ext, e.g. ".png".
func Encode(mat gocv.Mat, ext string) ([]byte, error) {
	if mat.Empty() {
		return nil, fmt.Errorf("cannot encode empty image")
	}
	ext = strings.ToLower(ext)
	if !lo.Contains(writeFormats, ext) {
		return nil, fmt.Errorf("unsupported encoding: %s", ext)
	}

	buf, err := gocv.IMEncode(gocv.FileExt(ext), mat)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ext, err)
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}

// Decode reads an encoded image, falling back to the WebP decoder for RIFF/WEBP payloads.
func Decode(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.NewMat(), fmt.Errorf("cannot decode empty buffer")
	}
	if isWebP(data) {
		return decodeWebP(data)
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadUnchanged)
	if err != nil {
		mat.Close()
		return gocv.NewMat(), fmt.Errorf("decode image: %w", err)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), fmt.Errorf("decode image: unrecognized data")
	}
	return mat, nil
}

// EncodeImage writes a Go image in the format selected by ext.
func EncodeImage(w stdio.Writer, img image.Image, ext string) error {
	switch strings.ToLower(ext) {
	case ".png":
		return png.Encode(w, img)
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case ".bmp":
		return bmp.Encode(w, img)
	case ".tif", ".tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("unsupported encoding: %s", ext)
}

func isWebP(data []byte) bool {
	return len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP"))
}

func decodeWebP(data []byte) (gocv.Mat, error) {
	img, err := webp.Decode(bytes.NewReader(data))
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("webp: %w", err)
	}
	mat, err := gocv.ImageToMatRGBA(img)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("webp to mat: %w", err)
	}
	return mat, nil
}

func extension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
