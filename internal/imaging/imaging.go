// Package imaging normalizes uploaded item photos before storage.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

// MaxUploadBytes caps the size of an upload body read from a request.
const MaxUploadBytes = 8 << 20

// MaxEdge is the maximum width or height for stored photos.
const MaxEdge = 1200

// JPEGQuality is the compression quality for re-encoded JPEG photos.
const JPEGQuality = 82

// Result holds a normalized photo ready for storage.
type Result struct {
	Data []byte
	MIME string
}

// Normalize reads an uploaded photo, validates the format by sniffing the
// bytes, downscales anything larger than MaxEdge, and re-encodes. JPEG input
// stays JPEG; PNG input stays PNG so transparency survives.
func Normalize(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}

	// Sniff the actual MIME type, never trust the client header.
	mime := http.DetectContentType(data)
	if mime != "image/jpeg" && mime != "image/png" {
		return nil, fmt.Errorf("unsupported photo format: %s (only JPEG and PNG accepted)", mime)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding photo: %w", err)
	}

	img = fit(img, MaxEdge)

	var buf bytes.Buffer
	switch mime {
	case "image/png":
		err = png.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality})
	}
	if err != nil {
		return nil, fmt.Errorf("encoding photo: %w", err)
	}

	return &Result{Data: buf.Bytes(), MIME: mime}, nil
}

// fit scales img down so neither dimension exceeds maxEdge, preserving
// aspect ratio. Images already within bounds are returned untouched.
func fit(img image.Image, maxEdge int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxEdge && h <= maxEdge {
		return img
	}

	newW, newH := maxEdge, maxEdge
	if w > h {
		newH = h * maxEdge / w
	} else {
		newW = w * maxEdge / h
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
