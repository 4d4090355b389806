// Package frame captures still images from camera sources and encodes them for upload.
package frame

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"

	// decoders for snapshot formats
	_ "image/gif"
	_ "image/png"
)

const MIMEType = "image/jpeg"

// ErrCaptureUnavailable is returned when a source has no current frame to encode.
var ErrCaptureUnavailable = errors.New("capture unavailable")

// Frame is one JPEG-encoded still.
type Frame struct {
	Data   []byte
	Width  int
	Height int
}

func (f Frame) Base64() string {
	return base64.StdEncoding.EncodeToString(f.Data)
}

// DataURL renders the frame as a data: URL suitable for multimodal chat payloads.
func (f Frame) DataURL() string {
	return "data:" + MIMEType + ";base64," + f.Base64()
}

// Encode serializes img as JPEG at the given quality (1-100).
// A nil image or one with zero width or height yields ErrCaptureUnavailable.
func Encode(img image.Image, quality int) (Frame, error) {
	if img == nil {
		return Frame{}, ErrCaptureUnavailable
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return Frame{}, ErrCaptureUnavailable
	}
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return Frame{}, fmt.Errorf("encode jpeg: %w", err)
	}

	return Frame{
		Data:   buf.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

const (
	// MaxImageBytes bounds how much of an encoded image is read.
	MaxImageBytes = 20 << 20
	// MaxImagePixels bounds the declared width times height of an image.
	MaxImagePixels = 40_000_000
)

// ErrImageTooLarge is returned for images over MaxImageBytes or MaxImagePixels.
var ErrImageTooLarge = errors.New("image too large")

// Decode reads a JPEG, PNG or GIF image of at most MaxImageBytes.
func Decode(r io.Reader) (image.Image, error) {
	return decodeLimited(r, MaxImageBytes)
}

// decodeLimited checks the size and the header dimensions before decoding pixels.
func decodeLimited(r io.Reader, maxBytes int64) (image.Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrImageTooLarge, maxBytes)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// LoadFile decodes the image stored at path.
func LoadFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(f)
}
