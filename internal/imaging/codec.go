// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package imaging

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/gen2brain/webp"
	xwebp "golang.org/x/image/webp"
)

// Format is an output encoding.
type Format int

const (
	FormatJPEG Format = iota
	FormatPNG
	FormatWebP
)

// ParseFormat converts a request or configuration value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	default:
		return 0, fmt.Errorf("unknown image format %q", s)
	}
}

func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	case FormatWebP:
		return "webp"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return f.String()
}

// EncodeOptions control output quality.
type EncodeOptions struct {
	// Quality is 1-100. For PNG it selects the compression level.
	Quality int
	// Lossless applies to WebP only.
	Lossless bool
}

// DefaultQuality is used when a request leaves quality unset.
const DefaultQuality = 85

// Encode writes img to w in format f.
func Encode(w io.Writer, img image.Image, f Format, opts EncodeOptions) error {
	quality := opts.Quality
	if quality <= 0 {
		quality = DefaultQuality
	}
	quality = clamp(quality, 1, 100)

	switch f {
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case FormatPNG:
		enc := png.Encoder{CompressionLevel: pngCompression(quality)}
		return enc.Encode(w, img)
	case FormatWebP:
		return webp.Encode(w, img, webp.Options{Quality: quality, Lossless: opts.Lossless})
	default:
		return fmt.Errorf("unknown format %v", f)
	}
}

// pngCompression maps a quality percentage onto zlib effort using the
// 0-9 level 9 - round(q*9/100): higher quality means less compression work.
func pngCompression(quality int) png.CompressionLevel {
	level := 9 - int(math.Round(float64(quality)*9/100))
	switch {
	case level <= 1:
		return png.BestSpeed
	case level <= 4:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

// decoder reads one source format. config reads only the header.
type decoder struct {
	decode func(io.Reader) (image.Image, error)
	config func(io.Reader) (image.Config, error)
}

// decoders lists the accepted source MIME types.
var decoders = map[string]decoder{
	"image/jpeg": {jpeg.Decode, jpeg.DecodeConfig},
	"image/png":  {png.Decode, png.DecodeConfig},
	"image/gif":  {gif.Decode, gif.DecodeConfig},
	"image/webp": {xwebp.Decode, xwebp.DecodeConfig},
}

// sniffLen matches what http.DetectContentType inspects.
const sniffLen = 512

// detectType returns the MIME type of header and its decoder.
func detectType(header []byte) (string, decoder, error) {
	mime := http.DetectContentType(header)
	dec, ok := decoders[mime]
	if !ok {
		return mime, decoder{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
	}
	return mime, dec, nil
}
