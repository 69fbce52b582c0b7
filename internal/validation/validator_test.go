// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
	if v1 == nil {
		t.Error("GetValidator() should not return nil")
	}
}

type imageParams struct {
	Image   string `form:"image" validate:"required,imageid"`
	Preset  string `form:"preset" validate:"omitempty,oneof=thumbnail social"`
	Format  string `form:"format" validate:"omitempty,imageformat"`
	Quality int    `form:"quality" validate:"omitempty,min=1,max=100"`
	Mode    string `form:"resize_mode" validate:"omitempty,resizemode"`
	Anchor  string `form:"crop_position" validate:"omitempty,cropanchor"`
}

func TestValidateStruct_ImageParams(t *testing.T) {
	tests := []struct {
		name      string
		input     imageParams
		wantField string
		wantTag   string
	}{
		{name: "minimal", input: imageParams{Image: "2024-01-15"}},
		{name: "all set", input: imageParams{Image: "p1", Preset: "social", Format: "jpg", Quality: 90, Mode: "contain", Anchor: "bottom_center"}},
		{name: "missing image", input: imageParams{}, wantField: "image", wantTag: "required"},
		{name: "path traversal", input: imageParams{Image: "../secret"}, wantField: "image", wantTag: "imageid"},
		{name: "unknown preset", input: imageParams{Image: "p1", Preset: "banner"}, wantField: "preset", wantTag: "oneof"},
		{name: "unknown format", input: imageParams{Image: "p1", Format: "bmp"}, wantField: "format", wantTag: "imageformat"},
		{name: "quality too high", input: imageParams{Image: "p1", Quality: 101}, wantField: "quality", wantTag: "max"},
		{name: "quality negative", input: imageParams{Image: "p1", Quality: -5}, wantField: "quality", wantTag: "min"},
		{name: "unknown mode", input: imageParams{Image: "p1", Mode: "stretch"}, wantField: "resize_mode", wantTag: "resizemode"},
		{name: "unknown anchor", input: imageParams{Image: "p1", Anchor: "corner"}, wantField: "crop_position", wantTag: "cropanchor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}

			errs := err.Errors()
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), err)
			}
			if errs[0].Field() != tt.wantField {
				t.Errorf("Field() = %q, want %q", errs[0].Field(), tt.wantField)
			}
			if errs[0].Tag() != tt.wantTag {
				t.Errorf("Tag() = %q, want %q", errs[0].Tag(), tt.wantTag)
			}
		})
	}
}

func TestRequestValidationError_ToAPIError(t *testing.T) {
	single := ValidateStruct(&imageParams{Image: "p1", Quality: 200})
	if single == nil {
		t.Fatal("expected error")
	}
	apiErr := single.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q", apiErr.Code)
	}
	if apiErr.Message != "quality must be at most 100" {
		t.Errorf("Message = %q", apiErr.Message)
	}

	multi := ValidateStruct(&imageParams{Format: "tiff"})
	if multi == nil {
		t.Fatal("expected error")
	}
	apiErr = multi.ToAPIError()
	if !strings.Contains(apiErr.Message, "image is required") || !strings.Contains(apiErr.Message, "format must be one of") {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("multi-error details should list fields")
	}
}

func TestTranslateError_Oneof(t *testing.T) {
	err := ValidateStruct(&imageParams{Image: "p1", Preset: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != "preset must be one of: thumbnail, social" {
		t.Errorf("message = %q", got)
	}
}
