package service

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/awards-portal-api/internal/dto"
	"github.com/noah-isme/awards-portal-api/internal/formschema"
	"github.com/noah-isme/awards-portal-api/internal/models"
	"github.com/noah-isme/awards-portal-api/internal/observability"
	"github.com/noah-isme/awards-portal-api/internal/repository"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the detected type is not an accepted document type.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrUploadScanFailed indicates the archive could not be inspected or is unsafe.
	ErrUploadScanFailed = errors.New("file scanning failed")
	// ErrUploadFieldUnknown indicates the target field is not a file field of the award.
	ErrUploadFieldUnknown = errors.New("award has no file field with that name")
)

const (
	mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	// archives may expand to at most this multiple of the upload limit
	maxArchiveExpansion = 20
)

// acceptedUploads maps detected MIME types to the stored content type.
// Images are stored under their own type; every image/* is accepted.
var acceptedUploads = map[string]string{
	"application/pdf":              "application/pdf",
	"application/zip":              "application/zip",
	"application/x-zip-compressed": "application/zip",
	mimeDocx:                       mimeDocx,
}

// FileStorage abstracts upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// UploadService validates and stores documents attached to applications.
type UploadService interface {
	Upload(ctx context.Context, file *multipart.FileHeader, userID *uint, req dto.UploadRequest) (dto.UploadResponse, error)
	ListMine(ctx context.Context, userID uint, awardID *uint) ([]dto.UploadResponse, error)
}

type uploadService struct {
	storage FileStorage
	repo    repository.UploadRepository
	schemas SchemaStore
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
	now     func() time.Time
}

// NewUploadService constructs an upload service. When schemas is set, uploads
// naming both an award and a field must target a file field of that award.
func NewUploadService(storage FileStorage, repo repository.UploadRepository, schemas SchemaStore, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &uploadService{
		storage: storage,
		repo:    repo,
		schemas: schemas,
		logger:  logger.With().Str("component", "upload_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/noah-isme/awards-portal-api/internal/service/upload"),
		now:     time.Now,
	}
}

func (s *uploadService) Upload(ctx context.Context, file *multipart.FileHeader, userID *uint, req dto.UploadRequest) (dto.UploadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "upload.store", trace.WithAttributes(
		attribute.Int64("upload.max_bytes", s.maxSize),
		attribute.String("upload.field", req.FieldName),
	))
	defer span.End()

	start := s.now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	if file == nil {
		err := errors.New("file is required")
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.UploadResponse{}, err
	}
	span.SetAttributes(attribute.Int64("upload.request_size", file.Size))

	fieldName := strings.TrimSpace(req.FieldName)
	if err := s.checkField(ctx, req.AwardID, fieldName); err != nil {
		return dto.UploadResponse{}, s.reject(span, "field", err)
	}

	payload, err := s.read(file)
	if err != nil {
		if errors.Is(err, ErrUploadTooLarge) {
			return dto.UploadResponse{}, s.reject(span, "size", err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return dto.UploadResponse{}, err
	}

	contentType, ok := acceptedType(mimetype.Detect(payload).String())
	span.SetAttributes(attribute.String("upload.content_type", contentType))
	if !ok {
		return dto.UploadResponse{}, s.reject(span, "type", ErrUploadTypeNotAllowed)
	}
	if err := s.inspectArchive(payload, contentType); err != nil {
		return dto.UploadResponse{}, s.reject(span, "scan", err)
	}

	sum := sha256.Sum256(payload)
	checksum := hex.EncodeToString(sum[:])

	if userID != nil {
		existing, err := s.repo.FindByChecksum(ctx, *userID, checksum)
		switch {
		case err == nil:
			span.SetAttributes(attribute.Bool("upload.deduplicated", true))
			span.SetStatus(codes.Ok, "deduplicated")
			response := dto.NewUploadResponse(existing)
			response.FieldName = fieldName
			return response, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			s.logger.Warn().Err(err).Msg("checksum lookup failed")
		}
	}

	name := s.fileName(file.Filename)
	url, err := s.storage.Upload(ctx, name, bytes.NewReader(payload))
	if err != nil {
		observability.UploadRejected().WithLabelValues("storage").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return dto.UploadResponse{}, err
	}

	record := models.UploadRecord{
		UserID:    userID,
		AwardID:   req.AwardID,
		FieldName: fieldName,
		FileName:  name,
		URL:       url,
		MimeType:  contentType,
		SizeBytes: int64(len(payload)),
		Checksum:  checksum,
	}
	if err := s.repo.Create(ctx, &record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.UploadResponse{}, err
	}

	observability.UploadRequests().WithLabelValues(contentType).Inc()
	span.SetStatus(codes.Ok, "stored")
	return dto.NewUploadResponse(record), nil
}

func (s *uploadService) ListMine(ctx context.Context, userID uint, awardID *uint) ([]dto.UploadResponse, error) {
	records, err := s.repo.ListByUser(ctx, userID, awardID)
	if err != nil {
		return nil, err
	}

	items := make([]dto.UploadResponse, 0, len(records))
	for _, record := range records {
		items = append(items, dto.NewUploadResponse(record))
	}
	return items, nil
}

func (s *uploadService) reject(span trace.Span, reason string, err error) error {
	observability.UploadRejected().WithLabelValues(reason).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, "rejected: "+reason)
	return err
}

// checkField only applies when both the award and the field are named.
func (s *uploadService) checkField(ctx context.Context, awardID *uint, fieldName string) error {
	if s.schemas == nil || awardID == nil || fieldName == "" {
		return nil
	}

	descriptors, err := s.schemas.ListForAward(ctx, *awardID)
	if err != nil {
		return err
	}
	if _, ok := formschema.FileField(fieldName, descriptors); !ok {
		return ErrUploadFieldUnknown
	}
	return nil
}

func (s *uploadService) read(file *multipart.FileHeader) ([]byte, error) {
	if file.Size > s.maxSize {
		return nil, ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	payload, err := io.ReadAll(io.LimitReader(handle, s.maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(payload)) > s.maxSize {
		return nil, ErrUploadTooLarge
	}
	return payload, nil
}

// inspectArchive bounds the expanded size of zip containers, docx included.
func (s *uploadService) inspectArchive(payload []byte, contentType string) error {
	if contentType != "application/zip" && contentType != mimeDocx {
		return nil
	}

	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return fmt.Errorf("unreadable archive: %w", ErrUploadScanFailed)
	}

	limit := uint64(s.maxSize) * maxArchiveExpansion
	var expanded uint64
	for _, entry := range reader.File {
		expanded += entry.UncompressedSize64
		if expanded > limit {
			return fmt.Errorf("archive expands beyond %d bytes: %w", limit, ErrUploadScanFailed)
		}
	}
	return nil
}

// fileName lowercases the name and keeps only [a-z0-9_-] in the base.
func (s *uploadService) fileName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	base := strings.ToLower(strings.TrimSuffix(original, filepath.Ext(original)))
	base = strings.Trim(strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, base), "-")

	if base == "" {
		base = fmt.Sprintf("document-%d", s.now().Unix())
	}
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}

func acceptedType(detected string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(detected))
	if semi := strings.IndexByte(lower, ';'); semi >= 0 {
		lower = strings.TrimSpace(lower[:semi])
	}
	if strings.HasPrefix(lower, "image/") {
		return lower, true
	}
	if stored, ok := acceptedUploads[lower]; ok {
		return stored, true
	}
	return lower, false
}
