package services

import (
	"bytes"
	"context"
	"image/color"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/atelierlumen/gallerybackend/apperrors"
	"github.com/atelierlumen/gallerybackend/config"
	"github.com/atelierlumen/gallerybackend/repository"
	"github.com/atelierlumen/gallerybackend/storage"
)

func newUploadFixture(t *testing.T) (*UploadService, repository.ImageRepositoryInterface, *storage.MemoryStore) {
	t.Helper()
	db := newTestDB(t)
	images := repository.NewImageRepository(db)
	store := storage.NewMemoryStore()
	return NewUploadService(images, store, "https://cdn.example.com/"), images, store
}

// testJPEG encodes a small solid-color image with the given dimensions.
func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := imaging.New(width, height, color.NRGBA{R: 40, G: 80, B: 120, A: 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestIssueUploadURLValidation(t *testing.T) {
	svc, _, _ := newUploadFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		filename string
		context  string
		fileSize int64
	}{
		{"empty filename", "", "overview", 100},
		{"empty context", "photo.jpg", "", 100},
		{"invalid context", "photo.jpg", "archive", 100},
		{"filename with spaces", "my photo.jpg", "overview", 100},
		{"filename with slash", "a/b.jpg", "overview", 100},
		{"disallowed extension", "photo.png", "overview", 100},
		{"no extension", "photo", "overview", 100},
		{"oversized", "photo.jpg", "overview", 61 * 1024 * 1024},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.IssueUploadURL(ctx, tt.filename, tt.context, tt.fileSize)
			if !apperrors.IsValidation(err) {
				t.Errorf("IssueUploadURL() error = %v, want validation error", err)
			}
		})
	}
}

func TestIssueUploadURLKeyShape(t *testing.T) {
	svc, _, _ := newUploadFixture(t)

	url, key, err := svc.IssueUploadURL(context.Background(), "Sunset-Beach.webp", "events", 1024)
	if err != nil {
		t.Fatalf("IssueUploadURL() error = %v", err)
	}
	if url == "" {
		t.Error("IssueUploadURL() returned empty url")
	}
	if !strings.HasPrefix(key, "events/Sunset-Beach-") {
		t.Errorf("key = %q, want events/Sunset-Beach-<hash>.jpg", key)
	}
	if !strings.HasSuffix(key, ".jpg") {
		t.Errorf("key = %q, want .jpg suffix regardless of source extension", key)
	}

	// repeated issuance for the same filename must not collide
	_, key2, err := svc.IssueUploadURL(context.Background(), "Sunset-Beach.webp", "events", 1024)
	if err != nil {
		t.Fatalf("second IssueUploadURL() error = %v", err)
	}
	if key == key2 {
		t.Errorf("two issuances produced the same key %q", key)
	}
}

func TestConfirmRegistersAllContexts(t *testing.T) {
	svc, images, store := newUploadFixture(t)
	store.Put("overview/shot-abc123.jpg", testJPEG(t, 320, 200))

	instances, err := svc.Confirm(context.Background(), ConfirmRequest{
		StorageKey:         "overview/shot-abc123.jpg",
		Filename:           "shot.jpg",
		Context:            "overview",
		AdditionalContexts: []string{"events"},
		Alt:                "harbor at dusk",
		Description:        "long exposure",
		IsPrimary:          true,
	})
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if len(instances) != 2 {
		t.Fatalf("Confirm() created %d instances, want 2", len(instances))
	}
	if instances[0].Context != "overview" || instances[1].Context != "events" {
		t.Errorf("contexts = %s, %s; want overview, events", instances[0].Context, instances[1].Context)
	}
	if !instances[0].IsPrimary {
		t.Error("primary-context instance not marked primary")
	}
	if instances[1].IsPrimary {
		t.Error("additional-context instance marked primary")
	}

	base, err := images.GetBaseImageByPath("overview/shot-abc123.jpg")
	if err != nil {
		t.Fatalf("GetBaseImageByPath() error = %v", err)
	}
	if base.Width != 320 || base.Height != 200 {
		t.Errorf("dimensions = %dx%d, want 320x200", base.Width, base.Height)
	}
	if base.Alt != "harbor at dusk" {
		t.Errorf("alt = %q, want shared alt on the base image", base.Alt)
	}
	if base.URL != "https://cdn.example.com/overview/shot-abc123.jpg" {
		t.Errorf("url = %q", base.URL)
	}
	if base.OriginalFilename != "shot.jpg" {
		t.Errorf("original filename = %q, want shot.jpg", base.OriginalFilename)
	}

	// each instance carries its own description row
	for _, inst := range instances {
		fetched, err := images.GetInstanceByID(inst.ID)
		if err != nil {
			t.Fatalf("GetInstanceByID(%d) error = %v", inst.ID, err)
		}
		if fetched.Metadata == nil || fetched.Metadata.Description != "long exposure" {
			t.Errorf("instance %d missing description metadata", inst.ID)
		}
	}
}

func TestConfirmObjectMissing(t *testing.T) {
	svc, _, _ := newUploadFixture(t)

	_, err := svc.Confirm(context.Background(), ConfirmRequest{
		StorageKey: "overview/never-uploaded.jpg",
		Context:    "overview",
	})
	if !apperrors.IsNotFound(err) {
		t.Errorf("Confirm() error = %v, want not found", err)
	}
}

func TestConfirmValidation(t *testing.T) {
	svc, _, store := newUploadFixture(t)
	store.Put("overview/ok.jpg", testJPEG(t, 10, 10))

	tests := []struct {
		name string
		req  ConfirmRequest
	}{
		{"missing key", ConfirmRequest{Context: "overview"}},
		{"missing context", ConfirmRequest{StorageKey: "overview/ok.jpg"}},
		{"invalid context", ConfirmRequest{StorageKey: "overview/ok.jpg", Context: "archive"}},
		{"duplicate additional context", ConfirmRequest{StorageKey: "overview/ok.jpg", Context: "overview", AdditionalContexts: []string{"overview"}}},
		{"invalid additional context", ConfirmRequest{StorageKey: "overview/ok.jpg", Context: "overview", AdditionalContexts: []string{"archive"}}},
		{"alt too long", ConfirmRequest{StorageKey: "overview/ok.jpg", Context: "overview", Alt: strings.Repeat("a", 501)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Confirm(context.Background(), tt.req)
			if !apperrors.IsValidation(err) {
				t.Errorf("Confirm() error = %v, want validation error", err)
			}
		})
	}
}

func TestConfirmDeduplicatesAdditionalContexts(t *testing.T) {
	svc, _, store := newUploadFixture(t)
	store.Put("overview/dupe.jpg", testJPEG(t, 100, 100))

	instances, err := svc.Confirm(context.Background(), ConfirmRequest{
		StorageKey:         "overview/dupe.jpg",
		Context:            "overview",
		AdditionalContexts: []string{"events", "events"},
	})
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if len(instances) != 2 {
		t.Fatalf("Confirm() created %d instances, want 2 (repeated context collapsed)", len(instances))
	}
	if instances[0].Context != "overview" || instances[1].Context != "events" {
		t.Errorf("contexts = %s, %s; want overview, events", instances[0].Context, instances[1].Context)
	}
}

func TestConfirmRejectsOversizeObject(t *testing.T) {
	svc, _, store := newUploadFixture(t)
	store.Put("overview/huge.jpg", bytes.Repeat([]byte("x"), config.MaxFileSize+1))

	_, err := svc.Confirm(context.Background(), ConfirmRequest{
		StorageKey: "overview/huge.jpg",
		Context:    "overview",
	})
	if !apperrors.IsValidation(err) {
		t.Fatalf("Confirm() error = %v, want validation error", err)
	}

	// the oversize object was cleaned out of storage
	objects, err := store.ListObjects(context.Background(), "")
	if err != nil {
		t.Fatalf("ListObjects() error = %v", err)
	}
	for _, obj := range objects {
		if obj.Key == "overview/huge.jpg" {
			t.Error("oversize object still present after failed confirm")
		}
	}
}

func TestConfirmCompensatesOnUndecodableObject(t *testing.T) {
	svc, _, store := newUploadFixture(t)
	store.Put("overview/garbage.jpg", []byte("this is not an image"))

	_, err := svc.Confirm(context.Background(), ConfirmRequest{
		StorageKey: "overview/garbage.jpg",
		Context:    "overview",
	})
	if !apperrors.IsValidation(err) {
		t.Fatalf("Confirm() error = %v, want validation error", err)
	}

	// the broken object was cleaned out of storage
	if _, err := store.FetchObject(context.Background(), "overview/garbage.jpg"); err != storage.ErrObjectNotFound {
		t.Errorf("FetchObject() after failed confirm = %v, want ErrObjectNotFound", err)
	}
}

func TestConfirmCompensationFailureKeepsOriginalError(t *testing.T) {
	svc, _, store := newUploadFixture(t)
	store.Put("overview/garbage.jpg", []byte("still not an image"))
	store.FailDelete = true

	_, err := svc.Confirm(context.Background(), ConfirmRequest{
		StorageKey: "overview/garbage.jpg",
		Context:    "overview",
	})
	if !apperrors.IsValidation(err) {
		t.Errorf("Confirm() error = %v, want the original validation error", err)
	}
}

func TestConfirmDuplicateStorageKeyCompensates(t *testing.T) {
	svc, _, store := newUploadFixture(t)
	store.Put("overview/dup.jpg", testJPEG(t, 10, 10))

	if _, err := svc.Confirm(context.Background(), ConfirmRequest{
		StorageKey: "overview/dup.jpg",
		Context:    "overview",
	}); err != nil {
		t.Fatalf("first Confirm() error = %v", err)
	}

	// a second confirm for the same key violates the unique storage
	// path and deletes the object it could not register
	store.Put("overview/dup.jpg", testJPEG(t, 10, 10))
	if _, err := svc.Confirm(context.Background(), ConfirmRequest{
		StorageKey: "overview/dup.jpg",
		Context:    "overview",
	}); err == nil {
		t.Fatal("second Confirm() succeeded, want unique constraint failure")
	}
}
