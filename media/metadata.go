// Package media derives intrinsic image properties from raw bytes.
// Client-supplied dimensions are never trusted; the confirm pipeline
// decodes the stored object itself.
package media

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"

	_ "golang.org/x/image/webp" // register webp decoder
)

// Metadata holds the properties extracted from an image binary.
type Metadata struct {
	Width      int
	Height     int
	CapturedAt *int64 // Unix timestamp, nil when EXIF is absent
}

// ExtractMetadata decodes data and returns its display dimensions and
// optional capture time. Decoding honours EXIF orientation, so width
// and height reflect how the image renders, not the sensor layout.
func ExtractMetadata(data []byte) (*Metadata, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("media: failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	meta := &Metadata{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}

	exifData, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		// not necessarily a problem, file might just lack EXIF data
		return meta, nil
	}

	if dt, err := exifData.DateTime(); err == nil {
		ts := dt.Unix()
		meta.CapturedAt = &ts
	}

	return meta, nil
}
