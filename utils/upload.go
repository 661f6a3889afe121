package utils

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"go.uber.org/zap"

	"collegeevents/logger"
)

const UploadsPrefix = "/uploads/"

// maxPixels 超過就不解碼，避免小檔案宣稱超大尺寸把記憶體吃光
const maxPixels = 40_000_000

var allowedImageExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// Uploader stores multipart images on local disk under Dir and hands back
// the public path (/uploads/<name>).
type Uploader struct {
	Dir      string
	MaxBytes int64
	MaxWidth uint // 0 = 不縮圖
}

func (u *Uploader) check(fh *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedImageExt[ext] {
		return "", Validation("Only JPG and PNG images are allowed")
	}
	if u.MaxBytes > 0 && fh.Size > u.MaxBytes {
		return "", Validation("File is too large")
	}
	return ext, nil
}

// SaveRaw keeps the file byte for byte (ID cards).
func (u *Uploader) SaveRaw(fh *multipart.FileHeader) (string, error) {
	ext, err := u.check(fh)
	if err != nil {
		return "", err
	}
	src, err := fh.Open()
	if err != nil {
		return "", Internal("Could not read upload", err)
	}
	defer src.Close()
	return u.write(ext, src)
}

// SaveImage downsizes images wider than MaxWidth before storing them.
func (u *Uploader) SaveImage(fh *multipart.FileHeader) (string, error) {
	ext, err := u.check(fh)
	if err != nil {
		return "", err
	}
	src, err := fh.Open()
	if err != nil {
		return "", Internal("Could not read upload", err)
	}
	defer src.Close()

	raw, err := io.ReadAll(src)
	if err != nil {
		return "", Internal("Could not read upload", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return "", Validation("Uploaded file is not a valid image")
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return "", Validation("Image dimensions are too large")
	}
	if u.MaxWidth == 0 || uint(cfg.Width) <= u.MaxWidth {
		return u.write(ext, bytes.NewReader(raw))
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", Validation("Uploaded file is not a valid image")
	}
	small := resize.Resize(u.MaxWidth, 0, img, resize.Lanczos3)

	var out bytes.Buffer
	if format == "png" {
		err = png.Encode(&out, small)
	} else {
		err = jpeg.Encode(&out, small, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		return "", Internal("Could not process image", err)
	}
	return u.write(ext, &out)
}

func (u *Uploader) write(ext string, r io.Reader) (string, error) {
	if err := os.MkdirAll(u.Dir, 0o755); err != nil {
		return "", Internal("Could not store upload", err)
	}
	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(u.Dir, name))
	if err != nil {
		return "", Internal("Could not store upload", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		_ = os.Remove(dst.Name())
		return "", Internal("Could not store upload", err)
	}
	if err := dst.Close(); err != nil {
		return "", Internal("Could not store upload", err)
	}
	return UploadsPrefix + name, nil
}

// Remove deletes a previously stored upload; unknown paths are ignored.
func (u *Uploader) Remove(publicPath string) {
	if !strings.HasPrefix(publicPath, UploadsPrefix) {
		return
	}
	name := path.Base(publicPath)
	if err := os.Remove(filepath.Join(u.Dir, name)); err != nil && !os.IsNotExist(err) {
		logger.Log.Warn("remove upload failed", zap.String("path", publicPath), zap.Error(err))
	}
}
