// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package imaging

import (
	"errors"
	"fmt"
)

// Stage names the step of generation that failed.
type Stage string

const (
	StageOpen   Stage = "open"
	StageDetect Stage = "detect"
	StageDecode Stage = "decode"
	StageEncode Stage = "encode"
	StageWrite  Stage = "write"
)

var (
	// ErrUnsupportedType is wrapped by detect failures for unknown MIME types.
	ErrUnsupportedType = errors.New("unsupported image type")

	// ErrImageTooLarge is wrapped by decode failures for sources above the
	// generator's pixel limit.
	ErrImageTooLarge = errors.New("image too large")

	// ErrInvalidRequest is returned for requests that could never succeed.
	ErrInvalidRequest = errors.New("invalid image request")
)

// StageError reports which stage of generation failed and on which file.
type StageError struct {
	Stage Stage
	Path  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("image %s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, path string, err error) error {
	return &StageError{Stage: stage, Path: path, Err: err}
}

// StageOf returns the failed stage of err, or "" when err is not a StageError.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
