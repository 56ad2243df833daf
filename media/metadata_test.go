package media

import (
	"bytes"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

func encodedJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := imaging.New(width, height, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestExtractMetadata(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
	}{
		{"landscape", 640, 360},
		{"portrait", 300, 500},
		{"square", 128, 128},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := ExtractMetadata(encodedJPEG(t, tt.width, tt.height))
			if err != nil {
				t.Fatalf("ExtractMetadata() error = %v", err)
			}
			if meta.Width != tt.width || meta.Height != tt.height {
				t.Errorf("dimensions = %dx%d, want %dx%d", meta.Width, meta.Height, tt.width, tt.height)
			}
			// synthetic fixtures carry no EXIF block
			if meta.CapturedAt != nil {
				t.Errorf("captured at = %v, want nil", *meta.CapturedAt)
			}
		})
	}
}

func TestExtractMetadataRejectsGarbage(t *testing.T) {
	if _, err := ExtractMetadata([]byte("definitely not an image")); err == nil {
		t.Error("ExtractMetadata() accepted non-image bytes")
	}
	if _, err := ExtractMetadata(nil); err == nil {
		t.Error("ExtractMetadata() accepted empty input")
	}
}
