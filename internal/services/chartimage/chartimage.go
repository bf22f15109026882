// Package chartimage validates uploaded chart screenshots before they are sent to a model.
package chartimage

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	_ "golang.org/x/image/webp" // register decoder
)

const (
	DefaultMaxBytes  = 5 * 1024 * 1024
	DefaultMinWidth  = 400
	DefaultMinHeight = 300
	DefaultMaxWidth  = 4000
	DefaultMaxHeight = 3000
)

var (
	ErrEmpty             = errors.New("image is empty")
	ErrTooLarge          = errors.New("image exceeds size limit")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrCorrupt           = errors.New("image cannot be decoded")
	ErrDimensions        = errors.New("image dimensions out of bounds")
)

var supported = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpeg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// Limits bounds accepted uploads.
type Limits struct {
	MaxBytes  int64
	MinWidth  int
	MinHeight int
	MaxWidth  int
	MaxHeight int
}

// DefaultLimits returns 5 MB, 400x300 minimum and 4000x3000 maximum.
func DefaultLimits() Limits {
	return Limits{
		MaxBytes:  DefaultMaxBytes,
		MinWidth:  DefaultMinWidth,
		MinHeight: DefaultMinHeight,
		MaxWidth:  DefaultMaxWidth,
		MaxHeight: DefaultMaxHeight,
	}
}

// Info describes an accepted image.
type Info struct {
	MIMEType string `json:"mime_type"`
	Format   string `json:"format"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Bytes    int    `json:"bytes"`
}

// Inspect checks size, sniffed type and pixel dimensions. Zero limit fields are not enforced.
// Errors wrap one of the package sentinels.
func Inspect(data []byte, limits Limits) (Info, error) {
	if len(data) == 0 {
		return Info{}, ErrEmpty
	}
	if limits.MaxBytes > 0 && int64(len(data)) > limits.MaxBytes {
		return Info{}, errors.Wrapf(ErrTooLarge, "%.2f MB, limit %.2f MB", megabytes(int64(len(data))), megabytes(limits.MaxBytes))
	}

	mime := mimetype.Detect(data)
	format, ok := supported[mime.String()]
	if !ok {
		return Info{}, errors.Wrapf(ErrUnsupportedFormat, "detected %s", mime.String())
	}

	cfg, decoded, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, errors.Wrap(ErrCorrupt, err.Error())
	}
	if decoded != format {
		return Info{}, errors.Wrapf(ErrCorrupt, "content sniffed as %s but decodes as %s", format, decoded)
	}

	info := Info{
		MIMEType: mime.String(),
		Format:   format,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Bytes:    len(data),
	}

	if (limits.MinWidth > 0 && cfg.Width < limits.MinWidth) || (limits.MinHeight > 0 && cfg.Height < limits.MinHeight) {
		return info, errors.Wrap(ErrDimensions, fmt.Sprintf("too small (%dx%d), minimum %dx%d",
			cfg.Width, cfg.Height, limits.MinWidth, limits.MinHeight))
	}
	if (limits.MaxWidth > 0 && cfg.Width > limits.MaxWidth) || (limits.MaxHeight > 0 && cfg.Height > limits.MaxHeight) {
		return info, errors.Wrap(ErrDimensions, fmt.Sprintf("too large (%dx%d), maximum %dx%d",
			cfg.Width, cfg.Height, limits.MaxWidth, limits.MaxHeight))
	}

	return info, nil
}

func megabytes(n int64) float64 {
	return float64(n) / (1024 * 1024)
}
