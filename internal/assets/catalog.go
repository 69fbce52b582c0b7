// Panelhouse - Fan-Translated Webcomic Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/panelhouse

// Package assets maps comic image ids to source files, derivative cache
// paths and public URLs. The filesystem is the only index: derived assets are
// discovered by scanning the cache directory.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/panelhouse/internal/imaging"
)

// Catalog errors
var (
	// ErrInvalidID is returned for ids that are empty, too long or contain path characters.
	ErrInvalidID = errors.New("invalid image id")

	// ErrSourceNotFound is returned when no source file exists for an id.
	ErrSourceNotFound = errors.New("source image not found")

	// ErrLayout is returned when the configured directories are unusable.
	ErrLayout = errors.New("image directories misconfigured")
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// sourceExtensions are tried in order when resolving a source.
var sourceExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// Config holds catalog directories.
type Config struct {
	SourceDir string
	CacheDir  string
	// PublicPrefix is the URL path the cache directory is served under.
	PublicPrefix string
}

// Asset is one derived image found in the cache.
type Asset struct {
	ID      string    `json:"id"`
	Preset  string    `json:"preset"`
	Format  string    `json:"format"`
	Path    string    `json:"-"`
	URL     string    `json:"url"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified"`
}

// Catalog resolves image ids against the source and cache directories.
type Catalog struct {
	sourceDir    string
	cacheDir     string
	publicPrefix string
}

// NewCatalog creates a catalog.
func NewCatalog(cfg Config) *Catalog {
	prefix := "/" + strings.Trim(cfg.PublicPrefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	return &Catalog{
		sourceDir:    filepath.Clean(cfg.SourceDir),
		cacheDir:     filepath.Clean(cfg.CacheDir),
		publicPrefix: prefix,
	}
}

// ValidateID checks that id is safe to use as a file name.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// CheckLayout verifies the source directory exists and creates the cache
// directory for each preset. Failures wrap ErrLayout.
func (c *Catalog) CheckLayout(presets ...string) error {
	info, err := os.Stat(c.sourceDir)
	if err != nil {
		return fmt.Errorf("%w: source directory %s: %w", ErrLayout, c.sourceDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: source path %s is not a directory", ErrLayout, c.sourceDir)
	}

	for _, preset := range presets {
		dir := filepath.Join(c.cacheDir, preset)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: cache directory %s: %w", ErrLayout, dir, err)
		}
	}
	return nil
}

// Source returns the path of the source image for id.
func (c *Catalog) Source(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}

	for _, ext := range sourceExtensions {
		p := filepath.Join(c.sourceDir, id+ext)
		info, err := os.Stat(p)
		if err == nil && info.Mode().IsRegular() {
			return p, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat source %s: %w", p, err)
		}
	}
	return "", fmt.Errorf("%w: %s", ErrSourceNotFound, id)
}

// Target returns <cache_dir>/<preset>/<id>.<ext>.
func (c *Catalog) Target(id, preset string, format imaging.Format) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	if err := ValidateID(preset); err != nil {
		return "", fmt.Errorf("preset: %w", err)
	}
	return filepath.Join(c.cacheDir, preset, id+"."+format.Extension()), nil
}

// URL returns the public URL for a file in the cache directory, with the
// file's mtime appended as a cache-busting version.
func (c *Catalog) URL(p string) (string, error) {
	rel, err := filepath.Rel(c.cacheDir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the cache directory", p)
	}

	info, err := os.Stat(p)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", p, err)
	}
	return c.versionedURL(rel, info.ModTime()), nil
}

func (c *Catalog) versionedURL(rel string, modTime time.Time) string {
	return path.Join(c.publicPrefix+"/", filepath.ToSlash(rel)) + "?v=" + strconv.FormatInt(modTime.Unix(), 10)
}

// Sources lists the ids that have a source image, sorted.
func (c *Catalog) Sources() ([]string, error) {
	entries, err := os.ReadDir(c.sourceDir)
	if err != nil {
		return nil, fmt.Errorf("%w: read source directory: %w", ErrLayout, err)
	}

	seen := make(map[string]struct{}, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		id, ok := splitSourceName(e.Name())
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func splitSourceName(name string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	for _, accepted := range sourceExtensions {
		if ext == accepted {
			id := strings.TrimSuffix(name, filepath.Ext(name))
			return id, ValidateID(id) == nil
		}
	}
	return "", false
}

// Derived lists the generated assets for preset, sorted by id. A preset that
// has never been generated yields an empty list.
func (c *Catalog) Derived(preset string) ([]Asset, error) {
	if err := ValidateID(preset); err != nil {
		return nil, fmt.Errorf("preset: %w", err)
	}

	dir := filepath.Join(c.cacheDir, preset)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Asset{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache directory %s: %w", dir, err)
	}

	assets := make([]Asset, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		// Skip in-flight temp files.
		if strings.HasPrefix(name, ".") || !e.Type().IsRegular() {
			continue
		}
		ext := filepath.Ext(name)
		format, err := imaging.ParseFormat(strings.TrimPrefix(ext, "."))
		if err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		rel := filepath.Join(preset, name)
		assets = append(assets, Asset{
			ID:      strings.TrimSuffix(name, ext),
			Preset:  preset,
			Format:  format.String(),
			Path:    filepath.Join(dir, name),
			URL:     c.versionedURL(rel, info.ModTime()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(assets, func(i, j int) bool {
		if assets[i].ID == assets[j].ID {
			return assets[i].Format < assets[j].Format
		}
		return assets[i].ID < assets[j].ID
	})
	return assets, nil
}
