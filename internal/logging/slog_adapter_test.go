// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSlogHandler_WritesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	slogger := slog.New(NewSlogHandler(zerolog.New(&buf)))

	slogger.Warn("service restarted", "service", "http-server", "backoff", 15*time.Second)

	output := buf.String()
	for _, want := range []string{`"level":"warn"`, `"service":"http-server"`, "service restarted"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output: %s", want, output)
		}
	}
}

func TestSlogHandler_GroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	slogger := slog.New(NewSlogHandler(zerolog.New(&buf))).
		With("supervisor", "root").
		WithGroup("event")

	slogger.Info("terminated", "name", "janitor")

	output := buf.String()
	if !strings.Contains(output, `"supervisor":"root"`) {
		t.Errorf("expected pre-set attribute, got: %s", output)
	}
	if !strings.Contains(output, `"event.name":"janitor"`) {
		t.Errorf("expected grouped key, got: %s", output)
	}
}

func TestSlogHandler_AttrsKeepTheirGroup(t *testing.T) {
	var buf bytes.Buffer
	slogger := slog.New(NewSlogHandler(zerolog.New(&buf))).
		WithGroup("tree").
		With("layer", "maintenance").
		WithGroup("event").
		With("service", "session-janitor")

	slogger.Info("restarting", "attempt", 2)

	output := buf.String()
	for _, want := range []string{
		`"tree.layer":"maintenance"`,
		`"tree.event.service":"session-janitor"`,
		`"tree.event.attempt":2`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output: %s", want, output)
		}
	}
	if strings.Contains(output, `"tree.event.layer"`) {
		t.Errorf("attribute moved into a later group: %s", output)
	}
}

func TestSlogHandler_Enabled(t *testing.T) {
	handler := NewSlogHandler(zerolog.New(&bytes.Buffer{}).Level(zerolog.WarnLevel))

	if handler.Enabled(t.Context(), slog.LevelInfo) {
		t.Error("info should be disabled for a warn-level logger")
	}
	if !handler.Enabled(t.Context(), slog.LevelError) {
		t.Error("error should be enabled for a warn-level logger")
	}
}
