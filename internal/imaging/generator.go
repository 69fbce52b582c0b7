// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package imaging

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/image/draw"

	"github.com/tomtom215/panelhouse/internal/logging"
)

// Status is the outcome of a successful Generate call.
type Status string

const (
	// StatusSuccess means a new derivative was written.
	StatusSuccess Status = "success"
	// StatusExists means the target was already present and left untouched.
	StatusExists Status = "exists"
)

// Request describes one derivative to produce.
type Request struct {
	Source string
	Target string

	Width  int
	Height int
	Mode   Mode
	Anchor Anchor

	Format Format
	EncodeOptions
}

// Result reports what Generate did.
type Result struct {
	Status Status
	Path   string
	// Layout is zero when Status is StatusExists.
	Layout   Layout
	Bytes    int64
	Duration time.Duration
}

// Generator renders derivatives. It is safe for concurrent use; two
// concurrent generations of the same target both write complete files and
// the last rename wins.
type Generator struct {
	background color.Color
	scaler     draw.Scaler
	maxPixels  int64
}

// DefaultMaxPixels caps source images at 50 megapixels, about 200 MB once
// decoded to RGBA.
const DefaultMaxPixels = 50_000_000

// Option configures a Generator.
type Option func(*Generator)

// WithMaxPixels rejects sources whose width*height exceeds n before they are
// decoded. n <= 0 keeps DefaultMaxPixels.
func WithMaxPixels(n int64) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxPixels = n
		}
	}
}

// NewGenerator creates a generator that pads contain-mode output with background.
func NewGenerator(background color.Color, opts ...Option) *Generator {
	if background == nil {
		background = color.White
	}
	g := &Generator{background: background, scaler: draw.CatmullRom, maxPixels: DefaultMaxPixels}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces req.Target from req.Source. When the target already
// exists it returns StatusExists without opening the target for writing.
// Failures are *StageError values.
func (g *Generator) Generate(ctx context.Context, req Request) (Result, error) {
	start := time.Now()

	if req.Width <= 0 || req.Height <= 0 {
		return Result{}, fmt.Errorf("%w: target size %dx%d", ErrInvalidRequest, req.Width, req.Height)
	}
	if req.Source == "" || req.Target == "" {
		return Result{}, fmt.Errorf("%w: source and target paths are required", ErrInvalidRequest)
	}

	if _, err := os.Stat(req.Target); err == nil {
		return Result{Status: StatusExists, Path: req.Target, Duration: time.Since(start)}, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return Result{}, stageErr(StageWrite, req.Target, err)
	}

	src, err := decodeFile(req.Source, g.maxPixels)
	if err != nil {
		return Result{}, err
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	bounds := src.Bounds()
	layout, err := Plan(bounds.Dx(), bounds.Dy(), req.Width, req.Height, req.Mode, req.Anchor)
	if err != nil {
		return Result{}, stageErr(StageDecode, req.Source, err)
	}

	canvas := g.render(src, layout)

	written, err := writeAtomic(req.Target, func(w io.Writer) error {
		return Encode(w, canvas, req.Format, req.EncodeOptions)
	})
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Status:   StatusSuccess,
		Path:     req.Target,
		Layout:   layout,
		Bytes:    written,
		Duration: time.Since(start),
	}

	logging.Ctx(ctx).Debug().
		Str("source", req.Source).
		Str("target", req.Target).
		Str("mode", req.Mode.String()).
		Str("anchor", req.Anchor.String()).
		Str("format", req.Format.String()).
		Int64("bytes", written).
		Dur("duration", result.Duration).
		Msg("Generated derivative image")

	return result, nil
}

// render draws src onto a background-filled canvas according to layout.
func (g *Generator) render(src image.Image, layout Layout) *image.RGBA {
	canvas := image.NewRGBA(image.Rectangle{Max: layout.Canvas})
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(g.background), image.Point{}, draw.Src)

	srcRect := layout.Src.Add(src.Bounds().Min)
	g.scaler.Scale(canvas, layout.Dst, src, srcRect, draw.Over, nil)
	return canvas
}

// decodeFile opens, sniffs and decodes a source image.
// decodeFile reads the header first so oversized sources fail before any
// pixel buffer is allocated.
func decodeFile(path string, maxPixels int64) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, stageErr(StageOpen, path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	header, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, stageErr(StageOpen, path, err)
	}
	if len(header) == 0 {
		return nil, stageErr(StageDetect, path, fmt.Errorf("%w: empty file", ErrUnsupportedType))
	}

	_, dec, err := detectType(header)
	if err != nil {
		return nil, stageErr(StageDetect, path, err)
	}

	cfg, err := dec.config(br)
	if err != nil {
		return nil, stageErr(StageDecode, path, err)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > maxPixels {
		return nil, stageErr(StageDecode, path,
			fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, cfg.Width, cfg.Height, maxPixels))
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, stageErr(StageOpen, path, err)
	}
	br.Reset(f)

	img, err := dec.decode(br)
	if err != nil {
		return nil, stageErr(StageDecode, path, err)
	}
	return img, nil
}

// writeAtomic encodes into a temp file beside target, syncs it and renames
// it into place, so readers see either no file or a complete one.
func writeAtomic(target string, encode func(io.Writer) error) (int64, error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, stageErr(StageWrite, target, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return 0, stageErr(StageWrite, target, err)
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	counter := &countingWriter{w: tmp}
	bw := bufio.NewWriter(counter)
	if err := encode(bw); err != nil {
		return 0, stageErr(StageEncode, target, err)
	}
	if err := bw.Flush(); err != nil {
		return 0, stageErr(StageWrite, target, err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, stageErr(StageWrite, target, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, stageErr(StageWrite, target, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return 0, stageErr(StageWrite, target, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return 0, stageErr(StageWrite, target, err)
	}
	committed = true

	return counter.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
