package utils

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/png"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileHeader 透過真的 multipart 解析拿到 *multipart.FileHeader
func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("f", name)
	require.NoError(t, err)
	_, _ = fw.Write(content)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(10<<20))
	return req.MultipartForm.File["f"][0]
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

// hugePNG 只改 IHDR 宣稱的尺寸，檔案本身還是幾十個 byte
func hugePNG(t *testing.T) []byte {
	t.Helper()
	b := pngBytes(t, 1, 1)
	binary.BigEndian.PutUint32(b[16:20], 60000)
	binary.BigEndian.PutUint32(b[20:24], 60000)
	binary.BigEndian.PutUint32(b[29:33], crc32.ChecksumIEEE(b[12:29]))
	return b
}

func TestUploader_RejectsHugeDimensions(t *testing.T) {
	dir := t.TempDir()
	u := &Uploader{Dir: dir, MaxBytes: 1 << 20, MaxWidth: 800}

	_, err := u.SaveImage(fileHeader(t, "bomb.png", hugePNG(t)))
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, "Image dimensions are too large", AsAppError(err).Message)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestUploader_SaveRawAndRemove(t *testing.T) {
	dir := t.TempDir()
	u := &Uploader{Dir: dir, MaxBytes: 1 << 20}

	p, err := u.SaveRaw(fileHeader(t, "card.JPG", []byte("jpeg-ish")))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, "/uploads/"))
	assert.True(t, strings.HasSuffix(p, ".jpg"))

	stored := filepath.Join(dir, filepath.Base(p))
	b, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-ish", string(b))

	u.Remove(p)
	_, err = os.Stat(stored)
	assert.True(t, os.IsNotExist(err))

	// 不在 /uploads/ 底下的路徑直接忽略
	u.Remove("/etc/passwd")
}

func TestUploader_Rejects(t *testing.T) {
	u := &Uploader{Dir: t.TempDir(), MaxBytes: 4}

	_, err := u.SaveRaw(fileHeader(t, "card.pdf", []byte("x")))
	assert.EqualError(t, err, "Only JPG and PNG images are allowed")

	_, err = u.SaveRaw(fileHeader(t, "card.png", []byte("too large")))
	assert.EqualError(t, err, "File is too large")

	u.MaxBytes = 0
	_, err = u.SaveImage(fileHeader(t, "poster.png", []byte("not an image")))
	assert.EqualError(t, err, "Uploaded file is not a valid image")
}

func TestUploader_SaveImageResizes(t *testing.T) {
	dir := t.TempDir()
	u := &Uploader{Dir: dir, MaxWidth: 50}

	p, err := u.SaveImage(fileHeader(t, "poster.png", pngBytes(t, 200, 100)))
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, filepath.Base(p)))
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Width)
	assert.Equal(t, 25, cfg.Height)

	small, err := u.SaveImage(fileHeader(t, "icon.png", pngBytes(t, 10, 10)))
	require.NoError(t, err)
	assert.NotEqual(t, p, small)
}

func TestCacheInvalidator(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	inv := NewCacheInvalidator(rdb)
	ctx := context.Background()

	for _, k := range []string{
		CacheEventsList + "abc",
		CacheEventItem + "e1:aaa",
		CacheEventItem + "e2:bbb",
		CacheClubs + "ccc",
	} {
		require.NoError(t, mr.Set(k, "v"))
	}

	inv.PurgeEvent(ctx, "e1")
	assert.False(t, mr.Exists(CacheEventsList+"abc"))
	assert.False(t, mr.Exists(CacheEventItem+"e1:aaa"))
	assert.True(t, mr.Exists(CacheEventItem+"e2:bbb"))
	assert.True(t, mr.Exists(CacheClubs+"ccc"))

	inv.PurgeClubs(ctx)
	assert.False(t, mr.Exists(CacheClubs+"ccc"))

	// 沒有 Redis 時是 no-op
	var none *CacheInvalidator = NewCacheInvalidator(nil)
	none.PurgeEvent(ctx, "e2")
	none.PurgeClubs(ctx)
}
