package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atelierlumen/gallerybackend/apperrors"
	"github.com/atelierlumen/gallerybackend/config"
	"github.com/atelierlumen/gallerybackend/media"
	"github.com/atelierlumen/gallerybackend/models"
	"github.com/atelierlumen/gallerybackend/repository"
	"github.com/atelierlumen/gallerybackend/storage"
)

var filenamePattern = regexp.MustCompile(`^[A-Za-z0-9\-.]+$`)

// ValidExtensions is the allowed image extension set for uploads.
var ValidExtensions = []string{"jpg", "jpeg", "webp"}

// UploadService implements the two-phase upload protocol: issuing
// presigned upload URLs and confirming uploaded objects into the data
// model with best-effort storage compensation on failure.
type UploadService struct {
	Images        repository.ImageRepositoryInterface
	Store         storage.ObjectStore
	PublicBaseURL string
}

func NewUploadService(images repository.ImageRepositoryInterface, store storage.ObjectStore, publicBaseURL string) *UploadService {
	return &UploadService{Images: images, Store: store, PublicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

// ConfirmRequest carries the confirm-phase input for one uploaded object.
type ConfirmRequest struct {
	StorageKey         string
	Filename           string
	Context            string
	AdditionalContexts []string
	Alt                string
	Description        string
	IsPrimary          bool
	IsPublic           *bool
}

// IssueUploadURL validates the filename and context, derives a
// collision-free storage key and returns a presigned PUT URL for it.
func (s *UploadService) IssueUploadURL(ctx context.Context, filename, imgContext string, fileSize int64) (uploadURL, storageKey string, err error) {
	if filename == "" || imgContext == "" {
		return "", "", apperrors.Validationf("filename and context required")
	}
	if !models.IsValidContext(imgContext) {
		return "", "", apperrors.Validationf("invalid context, must be one of: %s", models.ContextList())
	}
	if fileSize > config.MaxFileSize {
		return "", "", apperrors.Validationf("file too large, maximum size is %dMB", config.MaxFileSize/(1024*1024))
	}
	if !filenamePattern.MatchString(filename) {
		return "", "", apperrors.Validationf("invalid filename, only letters, numbers, hyphens and dots allowed")
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if !isValidExtension(ext) {
		return "", "", apperrors.Validationf("invalid file type, only %s allowed", strings.Join(ValidExtensions, ", "))
	}

	// keys are content-addressed under the context with a short random
	// suffix so repeated uploads of the same filename never collide
	hash := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	name := strings.TrimSuffix(filename, path.Ext(filename))
	storageKey = fmt.Sprintf("%s/%s-%s.jpg", imgContext, name, hash)

	uploadURL, err = s.Store.IssueUploadURL(ctx, storageKey)
	if err != nil {
		return "", "", apperrors.Storagef(err, "failed to issue upload URL for %s", storageKey)
	}
	return uploadURL, storageKey, nil
}

// Confirm validates an uploaded object and registers it: one BaseImage,
// one ImageInstance per requested context (primary context first) and a
// metadata row per instance when a description was supplied. Any
// failure after the object was fetched triggers a best-effort delete of
// the storage object; the original error is always the one reported.
func (s *UploadService) Confirm(ctx context.Context, req ConfirmRequest) ([]models.ImageInstance, error) {
	if req.StorageKey == "" || req.Context == "" {
		return nil, apperrors.Validationf("storageKey and context required")
	}
	if !models.IsValidContext(req.Context) {
		return nil, apperrors.Validationf("invalid context, must be one of: %s", models.ContextList())
	}
	// dedupe extras so a repeated context cannot register twice
	seen := map[string]bool{req.Context: true}
	var extras []string
	for _, extra := range req.AdditionalContexts {
		if !models.IsValidContext(extra) || extra == req.Context {
			return nil, apperrors.Validationf("invalid additional context %q", extra)
		}
		if seen[extra] {
			continue
		}
		seen[extra] = true
		extras = append(extras, extra)
	}
	req.AdditionalContexts = extras
	if len(req.Alt) > config.MaxAltLength {
		return nil, apperrors.Validationf("alt text max %d characters", config.MaxAltLength)
	}

	data, err := s.Store.FetchObject(ctx, req.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, apperrors.NotFoundf("uploaded object %s not found in storage", req.StorageKey)
		}
		return nil, apperrors.Storagef(err, "failed to fetch %s", req.StorageKey)
	}

	if int64(len(data)) > config.MaxFileSize {
		s.compensate(ctx, req.StorageKey)
		return nil, apperrors.Validationf("uploaded object exceeds maximum size of %dMB", config.MaxFileSize/(1024*1024))
	}

	meta, err := media.ExtractMetadata(data)
	if err != nil {
		s.compensate(ctx, req.StorageKey)
		return nil, apperrors.Validationf("uploaded object is not a decodable image: %v", err)
	}

	instances, err := s.register(req, data, meta)
	if err != nil {
		s.compensate(ctx, req.StorageKey)
		return nil, err
	}
	return instances, nil
}

// register creates the database rows for a validated object.
func (s *UploadService) register(req ConfirmRequest, data []byte, meta *media.Metadata) ([]models.ImageInstance, error) {
	filename := req.Filename
	if filename == "" {
		filename = path.Base(req.StorageKey)
	}

	base := &models.BaseImage{
		StoragePath:      req.StorageKey,
		URL:              s.PublicBaseURL + "/" + req.StorageKey,
		Alt:              req.Alt,
		Width:            meta.Width,
		Height:           meta.Height,
		FileSize:         int64(len(data)),
		OriginalFilename: filename,
		CapturedAt:       meta.CapturedAt,
	}
	if err := s.Images.CreateBaseImage(base); err != nil {
		return nil, err
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	contexts := append([]string{req.Context}, req.AdditionalContexts...)
	created := make([]models.ImageInstance, 0, len(contexts))
	for _, c := range contexts {
		instance := models.ImageInstance{
			ImageID:  base.ID,
			Context:  c,
			IsPublic: isPublic,
		}
		if err := s.Images.CreateInstance(&instance); err != nil {
			return nil, err
		}
		if req.Description != "" {
			if err := s.Images.UpsertMetadata(instance.ID, req.Description); err != nil {
				return nil, err
			}
		}
		created = append(created, instance)
	}

	// primary status is promoted after creation so the demote-then-set
	// transaction guards the one-primary-per-context invariant
	if req.IsPrimary {
		if err := s.Images.SetPrimary(created[0].ID, req.Context, true); err != nil {
			return nil, err
		}
		created[0].IsPrimary = true
	}

	return created, nil
}

// compensate deletes the storage object after a failed confirm. The
// delete is best-effort: a failure here is logged, never surfaced, so
// the original confirm error stays the reported cause.
func (s *UploadService) compensate(ctx context.Context, key string) {
	if err := s.Store.DeleteObject(ctx, key); err != nil {
		log.Printf("WARNING: failed to clean up storage object %s after confirm failure: %v", key, err)
	}
}

func isValidExtension(ext string) bool {
	for _, e := range ValidExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// notFound reports whether err is gorm's record-not-found.
func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
