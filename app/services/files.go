package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/usgears/storefront/app/models"
	"github.com/usgears/storefront/pkg/logger"
	"github.com/usgears/storefront/pkg/metrics"
	"github.com/usgears/storefront/pkg/storage"
)

const (
	DefaultCategory = "general"

	kindMedia = "media"
	kindProof = "proof"
)

// ErrFileNotOnDisk means the record exists but its bytes do not.
var ErrFileNotOnDisk = errors.New("file not found on disk")

var (
	allowedTypes = map[string]string{
		"image/jpeg": "jpg",
		"image/png":  "png",
		"image/gif":  "gif",
		"image/webp": "webp",
	}
	allowedExts = map[string]bool{"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true}

	contentTypes = map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".gif":  "image/gif",
		".webp": "image/webp",
		".svg":  "image/svg+xml",
		".pdf":  "application/pdf",
	}

	categoryRE = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

// IncomingFile is one uploaded file, detached from the multipart form so the
// service can be driven without HTTP.
type IncomingFile struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

func FromMultipart(headers []*multipart.FileHeader) []IncomingFile {
	out := make([]IncomingFile, 0, len(headers))
	for _, fh := range headers {
		out = append(out, IncomingFile{
			Filename: fh.Filename,
			Size:     fh.Size,
			Open:     func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return out
}

// UploadResult is either a stored upload or, with Error set, a rejected file.
type UploadResult struct {
	*models.Upload
	FileID           string `json:"fileId,omitempty"`
	URL              string `json:"url,omitempty"`
	OriginalFilename string `json:"originalFilename"`
	Error            string `json:"error,omitempty"`
}

type ProofResult struct {
	Success bool                  `json:"success"`
	Files   []string              `json:"files"`
	IDs     []string              `json:"ids"`
	Entries []models.PaymentProof `json:"entries"`
}

// ServedFile is an open stored file. Callers close Body.
type ServedFile struct {
	Name        string
	ContentType string
	Body        io.ReadCloser
}

type FileService struct {
	files FileRepository
	disk  storage.Disk
	now   func() time.Time
}

func NewFileService(files FileRepository, disk storage.Disk) *FileService {
	return &FileService{files: files, disk: disk, now: func() time.Time { return time.Now().UTC() }}
}

// NormalizeCategory keeps category usable as a single path segment.
func NormalizeCategory(c string) string {
	c = strings.TrimSpace(c)
	if !categoryRE.MatchString(c) {
		return DefaultCategory
	}
	return c
}

// sniffed is a file that passed the type check.
type sniffed struct {
	file IncomingFile
	mime string
	ext  string
}

func sniff(f IncomingFile) (sniffed, error) {
	rc, err := f.Open()
	if err != nil {
		return sniffed{}, fmt.Errorf("open %s: %w", f.Filename, err)
	}
	defer rc.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(rc, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return sniffed{}, fmt.Errorf("read %s: %w", f.Filename, err)
	}
	mime := http.DetectContentType(head[:n])
	typeExt, ok := allowedTypes[mime]
	if !ok {
		return sniffed{}, fmt.Errorf("%w: %s", ErrInvalidFileType, mime)
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(f.Filename), "."))
	if !allowedExts[ext] {
		ext = typeExt
	}
	return sniffed{file: f, mime: mime, ext: ext}, nil
}

func (s *FileService) store(ctx context.Context, sf sniffed, dir string) (models.FileMeta, error) {
	name := uuid.NewString() + "." + sf.ext
	key := "/" + path.Join(dir, name)

	rc, err := sf.file.Open()
	if err != nil {
		return models.FileMeta{}, err
	}
	defer rc.Close()
	if err := s.disk.Put(ctx, key, rc, sf.mime); err != nil {
		return models.FileMeta{}, err
	}
	return models.FileMeta{
		OriginalFilename: sf.file.Filename,
		Filename:         name,
		Path:             key,
		MimeType:         sf.mime,
		Size:             sf.file.Size,
		UploadDate:       s.now(),
	}, nil
}

// UploadMedia stores admin images under media/photo/{category}. Rejected
// files are reported per entry; ErrNoValidFiles means none were stored.
func (s *FileService) UploadMedia(ctx context.Context, files []IncomingFile, category, uploader string) ([]UploadResult, error) {
	if len(files) == 0 {
		return nil, ErrNoValidFiles
	}
	category = NormalizeCategory(category)
	log := logger.WithCtx(ctx)

	results := make([]UploadResult, 0, len(files))
	stored := 0
	for _, f := range files {
		sf, err := sniff(f)
		if err != nil {
			metrics.Uploads.WithLabelValues(kindMedia, "rejected").Inc()
			results = append(results, UploadResult{OriginalFilename: f.Filename, Error: rejection(err)})
			continue
		}
		meta, err := s.store(ctx, sf, path.Join("media/photo", category))
		if err != nil {
			log.Error("uploads: store failed", "filename", f.Filename, "error", err)
			metrics.Uploads.WithLabelValues(kindMedia, "failed").Inc()
			results = append(results, UploadResult{OriginalFilename: f.Filename, Error: "Failed to store file"})
			continue
		}
		meta.Category = category

		up := &models.Upload{Uploader: uploader, FileMeta: meta}
		if err := s.files.CreateUpload(ctx, up); err != nil {
			_ = s.disk.Delete(ctx, meta.Path)
			return nil, fmt.Errorf("record upload: %w", err)
		}
		metrics.Uploads.WithLabelValues(kindMedia, "stored").Inc()
		stored++
		results = append(results, UploadResult{
			Upload:           up,
			FileID:           up.ID.Hex(),
			URL:              "/api/file/" + up.ID.Hex(),
			OriginalFilename: f.Filename,
		})
	}
	if stored == 0 {
		return results, ErrNoValidFiles
	}
	return results, nil
}

func rejection(err error) string {
	if errors.Is(err, ErrInvalidFileType) {
		return "Invalid file type. Only JPEG, PNG, GIF and WEBP images are allowed."
	}
	return "Could not read file"
}

// UploadProofs stores customer payment proofs under payment/{category}. The
// batch is all or nothing: one disallowed file rejects every file, and a
// storage failure removes the proofs already stored for the batch.
func (s *FileService) UploadProofs(ctx context.Context, files []IncomingFile, orderData, category string) (ProofResult, error) {
	if len(files) == 0 || strings.TrimSpace(orderData) == "" {
		return ProofResult{}, ErrMissingFields
	}
	category = NormalizeCategory(category)

	checked := make([]sniffed, 0, len(files))
	for _, f := range files {
		sf, err := sniff(f)
		if err != nil {
			metrics.Uploads.WithLabelValues(kindProof, "rejected").Inc()
			return ProofResult{}, err
		}
		checked = append(checked, sf)
	}

	res := ProofResult{Success: true}
	for _, sf := range checked {
		meta, err := s.store(ctx, sf, path.Join("payment", category))
		if err != nil {
			metrics.Uploads.WithLabelValues(kindProof, "failed").Inc()
			s.discardProofs(ctx, res.Entries)
			return ProofResult{}, fmt.Errorf("store proof: %w", err)
		}
		meta.Category = category

		p := &models.PaymentProof{OrderData: orderData, FileMeta: meta}
		if err := s.files.CreateProof(ctx, p); err != nil {
			_ = s.disk.Delete(ctx, meta.Path)
			s.discardProofs(ctx, res.Entries)
			return ProofResult{}, fmt.Errorf("record proof: %w", err)
		}
		metrics.Uploads.WithLabelValues(kindProof, "stored").Inc()
		res.Files = append(res.Files, meta.Path)
		res.IDs = append(res.IDs, p.ID.Hex())
		res.Entries = append(res.Entries, *p)
	}
	return res, nil
}

func (s *FileService) discardProofs(ctx context.Context, proofs []models.PaymentProof) {
	ctx = context.WithoutCancel(ctx)
	for _, p := range proofs {
		if err := s.disk.Delete(ctx, p.Path); err != nil && !storage.IsNotExist(err) {
			logger.WithCtx(ctx).Error("uploads: proof cleanup failed", "path", p.Path, "error", err)
		}
		if err := s.files.DeleteProof(ctx, p.ID); err != nil {
			logger.WithCtx(ctx).Error("uploads: proof cleanup failed", "proof_id", p.ID.Hex(), "error", err)
		}
	}
}

// DeleteUpload removes the stored file and then its record. A file already
// missing from the disk is not an error.
func (s *FileService) DeleteUpload(ctx context.Context, rawID string) (*models.Upload, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}
	up, err := s.files.FindUpload(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.disk.Delete(ctx, up.Path); err != nil && !storage.IsNotExist(err) {
		return nil, fmt.Errorf("delete %s: %w", up.Path, err)
	}
	if err := s.files.DeleteUpload(ctx, id); err != nil {
		return nil, err
	}
	return up, nil
}

// Open resolves ref against uploads by id, then payment proofs by id,
// filename or path, and opens the stored file.
func (s *FileService) Open(ctx context.Context, ref string) (*ServedFile, error) {
	meta, err := s.lookup(ctx, ref)
	if err != nil {
		return nil, err
	}
	body, err := s.disk.Open(ctx, meta.Path)
	if err != nil {
		if storage.IsNotExist(err) {
			return nil, ErrFileNotOnDisk
		}
		return nil, err
	}
	name := meta.OriginalFilename
	if name == "" {
		name = meta.Filename
	}
	return &ServedFile{Name: name, ContentType: ContentTypeFor(meta.Filename), Body: body}, nil
}

func (s *FileService) lookup(ctx context.Context, ref string) (models.FileMeta, error) {
	if id, err := primitive.ObjectIDFromHex(ref); err == nil {
		up, err := s.files.FindUpload(ctx, id)
		if err == nil {
			return up.FileMeta, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return models.FileMeta{}, err
		}
	}
	p, err := s.files.FindProof(ctx, ref)
	if err != nil {
		return models.FileMeta{}, err
	}
	return p.FileMeta, nil
}

// ContentTypeFor maps a file name's extension to a MIME type.
func ContentTypeFor(name string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

