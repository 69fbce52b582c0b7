// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/panelhouse/internal/assets"
	"github.com/tomtom215/panelhouse/internal/imaging"
	"github.com/tomtom215/panelhouse/internal/logging"
	"github.com/tomtom215/panelhouse/internal/metrics"
	"github.com/tomtom215/panelhouse/internal/validation"
)

// generateImageParams are the accepted query or form parameters of the
// generate endpoint.
type generateImageParams struct {
	Image        string `form:"image" validate:"required,imageid"`
	Preset       string `form:"preset" validate:"omitempty,imageid"`
	Format       string `form:"format" validate:"omitempty,imageformat"`
	Quality      int    `form:"quality" validate:"omitempty,min=1,max=100"`
	Lossless     bool   `form:"lossless"`
	ResizeMode   string `form:"resize_mode" validate:"omitempty,resizemode"`
	CropPosition string `form:"crop_position" validate:"omitempty,cropanchor"`
}

// ImageListResponse lists derived assets.
type ImageListResponse struct {
	Status string         `json:"status"`
	Images []assets.Asset `json:"images"`
}

// parseGenerateParams binds r's form into params. Malformed numbers and
// booleans are reported as a validation failure.
func parseGenerateParams(r *http.Request) (generateImageParams, *ImageResponse) {
	p := generateImageParams{
		Image:        strings.TrimSpace(r.FormValue("image")),
		Preset:       strings.TrimSpace(r.FormValue("preset")),
		Format:       strings.ToLower(strings.TrimSpace(r.FormValue("format"))),
		ResizeMode:   strings.TrimSpace(r.FormValue("resize_mode")),
		CropPosition: strings.TrimSpace(r.FormValue("crop_position")),
	}
	if p.Preset == "" {
		p.Preset = imaging.PresetThumbnail
	}

	if raw := strings.TrimSpace(r.FormValue("quality")); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil {
			return p, validationFailure("quality must be a whole number between 1 and 100")
		}
		if q == 0 {
			return p, validationFailure("quality must be at least 1")
		}
		p.Quality = q
	}
	if raw := strings.TrimSpace(r.FormValue("lossless")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return p, validationFailure("lossless must be true or false")
		}
		p.Lossless = v
	}

	if verr := validation.ValidateStruct(&p); verr != nil {
		apiErr := verr.ToAPIError()
		return p, &ImageResponse{Status: "error", Code: apiErr.Code, Message: apiErr.Message}
	}
	return p, nil
}

func validationFailure(message string) *ImageResponse {
	return &ImageResponse{Status: "error", Code: ErrCodeValidation, Message: message}
}

// buildRequest merges params over the preset defaults.
func (h *Handler) buildRequest(preset imaging.Preset, id string, p generateImageParams) (imaging.Request, error) {
	req := imaging.Request{
		Width:  preset.Width,
		Height: preset.Height,
		Mode:   preset.Mode,
		Anchor: preset.Anchor,
		Format: preset.Format,
		EncodeOptions: imaging.EncodeOptions{
			Quality:  preset.Quality,
			Lossless: p.Lossless,
		},
	}

	// Parse errors are impossible here once validation has passed.
	if p.Format != "" {
		req.Format, _ = imaging.ParseFormat(p.Format)
	}
	if p.Quality != 0 {
		req.Quality = p.Quality
	}
	if p.ResizeMode != "" {
		req.Mode, _ = imaging.ParseMode(p.ResizeMode)
	}
	if p.CropPosition != "" {
		req.Anchor, _ = imaging.ParseAnchor(p.CropPosition)
	}

	source, err := h.catalog.Source(id)
	if err != nil {
		return req, err
	}
	target, err := h.catalog.Target(id, preset.Name, req.Format)
	if err != nil {
		return req, err
	}
	req.Source = source
	req.Target = target
	return req, nil
}

// GenerateImage produces one derivative for an image id.
func (h *Handler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	params, failure := parseGenerateParams(r)
	if failure != nil {
		writeJSON(w, http.StatusBadRequest, failure)
		return
	}

	preset, ok := h.presets[params.Preset]
	if !ok {
		writeJSON(w, http.StatusBadRequest, validationFailure(
			fmt.Sprintf("preset must be one of: %s", strings.Join(h.presetNames(), ", "))))
		return
	}

	if err := h.catalog.CheckLayout(h.presetNames()...); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Image directories unusable")
		writeJSON(w, http.StatusInternalServerError, ImageResponse{
			Status:  "error",
			Code:    ErrCodeConfiguration,
			Message: "Image directories are not configured correctly",
		})
		return
	}

	req, err := h.buildRequest(preset, params.Image, params)
	switch {
	case errors.Is(err, assets.ErrInvalidID):
		writeJSON(w, http.StatusBadRequest, validationFailure("image must be a file name made of letters, digits, '.', '_' or '-'"))
		return
	case errors.Is(err, assets.ErrSourceNotFound):
		writeJSON(w, http.StatusNotFound, ImageResponse{
			Status:  "error",
			Code:    ErrCodeNotFound,
			Message: fmt.Sprintf("Source image %s not found", params.Image),
		})
		return
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Str("image", params.Image).Msg("Failed to resolve image paths")
		writeJSON(w, http.StatusInternalServerError, ImageResponse{Status: "error", Code: ErrCodeInternal, Message: "Failed to resolve image"})
		return
	}

	start := time.Now()
	result, err := h.generator.Generate(r.Context(), req)
	if err != nil {
		metrics.RecordImageGeneration(preset.Name, req.Format.String(), "error", time.Since(start))
		code, body := generationFailure(err)
		logging.Ctx(r.Context()).Error().Err(err).
			Str("image", params.Image).
			Str("preset", preset.Name).
			Str("stage", body.Stage).
			Msg("Image generation failed")
		writeJSON(w, code, body)
		return
	}
	metrics.RecordImageGeneration(preset.Name, req.Format.String(), string(result.Status), result.Duration)

	url, err := h.catalog.URL(result.Path)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("path", result.Path).Msg("Failed to build image URL")
		writeJSON(w, http.StatusInternalServerError, ImageResponse{Status: "error", Code: ErrCodeInternal, Message: "Failed to build image URL"})
		return
	}

	message := "Image generated"
	if result.Status == imaging.StatusExists {
		message = "Image already exists"
	}
	writeJSON(w, http.StatusOK, ImageResponse{
		Status:   string(result.Status),
		Message:  message,
		ImageURL: url,
	})
}

// generationFailure maps a Generate error to a status code and body.
// Detect and decode failures are 422, everything else is 500.
func generationFailure(err error) (int, ImageResponse) {
	stage := imaging.StageOf(err)
	body := ImageResponse{Status: "error", Stage: string(stage)}

	switch stage {
	case imaging.StageDetect, imaging.StageDecode:
		body.Code = ErrCodeUnprocessable
		body.Message = "Source image could not be decoded"
		return http.StatusUnprocessableEntity, body
	case imaging.StageOpen:
		body.Code = ErrCodeInternal
		body.Message = "Source image could not be opened"
	case imaging.StageEncode:
		body.Code = ErrCodeInternal
		body.Message = "Image could not be encoded"
	case imaging.StageWrite:
		body.Code = ErrCodeInternal
		body.Message = "Image could not be written"
	default:
		body.Code = ErrCodeInternal
		body.Message = "Image generation failed"
	}
	return http.StatusInternalServerError, body
}

// GenerateAll produces every missing derivative for one preset using a
// bounded pool of workers.
func (h *Handler) GenerateAll(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("preset"))
	if name == "" {
		name = imaging.PresetThumbnail
	}
	preset, ok := h.presets[name]
	if !ok {
		writeJSON(w, http.StatusBadRequest, validationFailure(
			fmt.Sprintf("preset must be one of: %s", strings.Join(h.presetNames(), ", "))))
		return
	}

	if err := h.catalog.CheckLayout(h.presetNames()...); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Image directories unusable")
		writeJSON(w, http.StatusInternalServerError, ImageResponse{
			Status:  "error",
			Code:    ErrCodeConfiguration,
			Message: "Image directories are not configured correctly",
		})
		return
	}

	ids, err := h.catalog.Sources()
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to list source images")
		writeJSON(w, http.StatusInternalServerError, ImageResponse{Status: "error", Code: ErrCodeInternal, Message: "Failed to list source images"})
		return
	}

	resp := h.generateBatch(r.Context(), preset, ids)
	code := http.StatusOK
	if r.Context().Err() != nil {
		code = http.StatusServiceUnavailable
		resp.Status = "error"
		resp.Message = "Batch interrupted"
	}
	writeJSON(w, code, resp)
}

func (h *Handler) generateBatch(ctx context.Context, preset imaging.Preset, ids []string) BatchResponse {
	resp := BatchResponse{Status: "success", Preset: preset.Name}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.workers)

	for _, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			req, err := h.buildRequest(preset, id, generateImageParams{})
			var result imaging.Result
			if err == nil {
				result, err = h.generator.Generate(gctx, req)
			}

			status := string(result.Status)
			if err != nil {
				status = "error"
			}
			metrics.RecordImageGeneration(preset.Name, req.Format.String(), status, result.Duration)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				return err
			case err != nil:
				resp.Failed++
				resp.Failures = append(resp.Failures, BatchFailure{
					Image:   id,
					Stage:   string(imaging.StageOf(err)),
					Message: err.Error(),
				})
				logging.Ctx(ctx).Warn().Err(err).Str("image", id).Str("preset", preset.Name).Msg("Batch image generation failed")
			case result.Status == imaging.StatusExists:
				resp.Existing++
			default:
				resp.Generated++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("preset", preset.Name).Msg("Batch image generation stopped")
	}

	if resp.Failed > 0 {
		resp.Status = "partial"
	}
	resp.Message = fmt.Sprintf("%d generated, %d existing, %d failed", resp.Generated, resp.Existing, resp.Failed)

	logging.Ctx(ctx).Info().
		Str("preset", preset.Name).
		Int("generated", resp.Generated).
		Int("existing", resp.Existing).
		Int("failed", resp.Failed).
		Msg("Batch image generation finished")
	return resp
}

// ListImages returns derived assets for one preset, or for all presets when
// none is named.
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	names := h.presetNames()
	if name := strings.TrimSpace(r.URL.Query().Get("preset")); name != "" {
		if _, ok := h.presets[name]; !ok {
			writeJSON(w, http.StatusBadRequest, validationFailure(
				fmt.Sprintf("preset must be one of: %s", strings.Join(names, ", "))))
			return
		}
		names = []string{name}
	}

	images := make([]assets.Asset, 0)
	for _, name := range names {
		derived, err := h.catalog.Derived(name)
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Str("preset", name).Msg("Failed to list derived images")
			writeJSON(w, http.StatusInternalServerError, ImageResponse{Status: "error", Code: ErrCodeInternal, Message: "Failed to list images"})
			return
		}
		images = append(images, derived...)
	}

	writeJSON(w, http.StatusOK, ImageListResponse{Status: "success", Images: images})
}
