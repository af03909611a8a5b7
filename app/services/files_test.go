package services_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usgears/storefront/app/repositories/memory"
	"github.com/usgears/storefront/app/services"
	"github.com/usgears/storefront/pkg/storage"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

func memFile(name string, data []byte) services.IncomingFile {
	return services.IncomingFile{
		Filename: name,
		Size:     int64(len(data)),
		Open:     func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

func newFileService(t *testing.T) (*services.FileService, *memory.Files, *storage.LocalDisk) {
	t.Helper()
	disk := storage.NewLocal(t.TempDir(), "")
	repo := memory.NewFiles()
	return services.NewFileService(repo, disk), repo, disk
}

func TestUploadMedia(t *testing.T) {
	svc, repo, disk := newFileService(t)
	ctx := context.Background()

	res, err := svc.UploadMedia(ctx, []services.IncomingFile{
		memFile("front.PNG", pngBytes),
		memFile("notes.txt", []byte("hello there")),
		memFile("noext", []byte("GIF89a......")),
	}, "helmets", "admin@usgears.com")
	require.NoError(t, err)
	require.Len(t, res, 3)

	first := res[0]
	require.NotNil(t, first.Upload)
	assert.Equal(t, first.Upload.ID.Hex(), first.FileID)
	assert.True(t, strings.HasPrefix(first.Path, "/media/photo/helmets/"))
	assert.True(t, strings.HasSuffix(first.Path, ".png"))
	assert.Equal(t, "image/png", first.MimeType)
	assert.Equal(t, "admin@usgears.com", first.Uploader)

	assert.Nil(t, res[1].Upload)
	assert.Equal(t, "notes.txt", res[1].OriginalFilename)
	assert.Contains(t, res[1].Error, "Invalid file type")

	assert.True(t, strings.HasSuffix(res[2].Path, ".gif"))
	assert.Equal(t, 2, repo.Uploads())

	ok, err := disk.Exists(ctx, first.Path)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUploadMediaNothingValid(t *testing.T) {
	svc, _, _ := newFileService(t)

	res, err := svc.UploadMedia(context.Background(), []services.IncomingFile{memFile("a.txt", []byte("text"))}, "", "x")
	assert.ErrorIs(t, err, services.ErrNoValidFiles)
	assert.Len(t, res, 1)

	_, err = svc.UploadMedia(context.Background(), nil, "", "x")
	assert.ErrorIs(t, err, services.ErrNoValidFiles)
}

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, "helmets", services.NormalizeCategory(" helmets "))
	assert.Equal(t, "general", services.NormalizeCategory(""))
	assert.Equal(t, "general", services.NormalizeCategory("../etc"))
}

func TestUploadProofsAndServe(t *testing.T) {
	svc, repo, _ := newFileService(t)
	ctx := context.Background()

	res, err := svc.UploadProofs(ctx, []services.IncomingFile{memFile("receipt.png", pngBytes)}, `{"total":10}`, "")
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.Len(t, res.Files, 1)
	assert.True(t, strings.HasPrefix(res.Files[0], "/payment/general/"))
	assert.Equal(t, `{"total":10}`, res.Entries[0].OrderData)
	assert.Equal(t, 1, repo.Proofs())

	for _, ref := range []string{res.IDs[0], res.Entries[0].Filename, res.Files[0]} {
		f, err := svc.Open(ctx, ref)
		require.NoError(t, err, ref)
		body, _ := io.ReadAll(f.Body)
		f.Body.Close()
		assert.Equal(t, pngBytes, body)
		assert.Equal(t, "image/png", f.ContentType)
		assert.Equal(t, "receipt.png", f.Name)
	}

	_, err = svc.Open(ctx, "unknown.png")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestUploadProofsRejectsBatch(t *testing.T) {
	svc, repo, _ := newFileService(t)
	ctx := context.Background()

	_, err := svc.UploadProofs(ctx, []services.IncomingFile{memFile("a.png", pngBytes), memFile("b.pdf", []byte("%PDF-1.4"))}, "{}", "")
	assert.ErrorIs(t, err, services.ErrInvalidFileType)
	assert.Zero(t, repo.Proofs())

	_, err = svc.UploadProofs(ctx, []services.IncomingFile{memFile("a.png", pngBytes)}, " ", "")
	assert.ErrorIs(t, err, services.ErrMissingFields)
}

func TestUploadProofsUndoesStoredFilesOnFailure(t *testing.T) {
	dir := t.TempDir()
	repo := memory.NewFiles()
	svc := services.NewFileService(repo, storage.NewLocal(dir, ""))

	// The second proof reads fine while sniffing and then fails to open.
	opens := 0
	flaky := memFile("b.png", pngBytes)
	flaky.Open = func() (io.ReadCloser, error) {
		opens++
		if opens > 1 {
			return nil, errors.New("temp file gone")
		}
		return io.NopCloser(bytes.NewReader(pngBytes)), nil
	}

	_, err := svc.UploadProofs(context.Background(), []services.IncomingFile{memFile("a.png", pngBytes), flaky}, "{}", "")
	require.Error(t, err)
	assert.Zero(t, repo.Proofs())

	var left []string
	require.NoError(t, filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			left = append(left, p)
		}
		return err
	}))
	assert.Empty(t, left)
}

func TestDeleteUpload(t *testing.T) {
	svc, repo, disk := newFileService(t)
	ctx := context.Background()

	res, err := svc.UploadMedia(ctx, []services.IncomingFile{memFile("a.png", pngBytes)}, "", "x")
	require.NoError(t, err)
	id := res[0].FileID

	up, err := svc.DeleteUpload(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "a.png", up.OriginalFilename)
	assert.Zero(t, repo.Uploads())
	ok, _ := disk.Exists(ctx, up.Path)
	assert.False(t, ok)

	_, err = svc.DeleteUpload(ctx, id)
	assert.ErrorIs(t, err, services.ErrNotFound)
	_, err = svc.DeleteUpload(ctx, "bad")
	assert.ErrorIs(t, err, services.ErrInvalidID)
}

func TestOpenMissingOnDisk(t *testing.T) {
	svc, _, disk := newFileService(t)
	ctx := context.Background()

	res, err := svc.UploadMedia(ctx, []services.IncomingFile{memFile("a.png", pngBytes)}, "", "x")
	require.NoError(t, err)
	require.NoError(t, disk.Delete(ctx, res[0].Path))

	_, err = svc.Open(ctx, res[0].FileID)
	assert.ErrorIs(t, err, services.ErrFileNotOnDisk)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "image/jpeg", services.ContentTypeFor("A.JPEG"))
	assert.Equal(t, "image/webp", services.ContentTypeFor("x.webp"))
	assert.Equal(t, "application/octet-stream", services.ContentTypeFor("x.bin"))
}
