package service

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/phrazzld/task-manager-api/internal/domain"
	"github.com/phrazzld/task-manager-api/internal/store"
	"golang.org/x/image/draw"
)

const (
	// MaxAvatarBytes is the largest accepted upload.
	MaxAvatarBytes = 1_000_000
	// AvatarSize is the width and height of a stored avatar in pixels.
	AvatarSize = 250
	// MaxAvatarPixels caps width*height as declared in the image header.
	MaxAvatarPixels = 4096 * 4096
)

// Avatar validation errors. Each wraps domain.ErrValidation.
var (
	ErrAvatarTooLarge    = fmt.Errorf("%w: file too large", domain.ErrValidation)
	ErrAvatarUnsupported = fmt.Errorf("%w: please upload a jpg, jpeg or png image", domain.ErrValidation)
	ErrAvatarUndecodable = fmt.Errorf("%w: image could not be decoded", domain.ErrValidation)
	ErrAvatarDimensions  = fmt.Errorf("%w: image dimensions too large", domain.ErrValidation)
)

// AvatarProcessor turns an uploaded image into the bytes stored on the user.
type AvatarProcessor interface {
	Process(filename string, data []byte) ([]byte, error)
}

var allowedAvatarExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// PNGAvatarProcessor accepts JPEG and PNG uploads up to MaxAvatarBytes and
// re-encodes them as AvatarSize x AvatarSize PNG.
type PNGAvatarProcessor struct{}

var _ AvatarProcessor = PNGAvatarProcessor{}

// Process implements AvatarProcessor.
func (PNGAvatarProcessor) Process(filename string, data []byte) ([]byte, error) {
	if len(data) > MaxAvatarBytes {
		return nil, ErrAvatarTooLarge
	}
	if !allowedAvatarExt[strings.ToLower(filepath.Ext(filename))] {
		return nil, ErrAvatarUnsupported
	}

	mt := mimetype.Detect(data)
	if !mt.Is("image/png") && !mt.Is("image/jpeg") {
		return nil, ErrAvatarUnsupported
	}

	// Check the header before decoding so the pixel buffer is never
	// allocated for oversized images.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAvatarUndecodable, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrAvatarUndecodable
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxAvatarPixels {
		return nil, ErrAvatarDimensions
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAvatarUndecodable, err)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, AvatarSize, AvatarSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}

// ErrAvatarNotFound is returned when a user has no avatar, or no such user
// exists. It wraps store.ErrNotFound.
var ErrAvatarNotFound = fmt.Errorf("%w: avatar not found", store.ErrNotFound)
