// Package filemap holds the virtual project a conversation generates: a map
// from absolute path to source text, overlaid on a default scaffold.
package filemap

import (
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/vanpelt/sitecraft/internal/assets"
	"github.com/vanpelt/sitecraft/internal/models"
)

// File is a single entry in a FileMap
type File struct {
	Code string `json:"code"`
}

// FileMap maps an absolute, slash-prefixed path to its file
type FileMap map[string]File

// NormalizePath makes p absolute ("footer.jsx" -> "/footer.jsx") and cleans
// "./" and duplicate slashes.
func NormalizePath(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// FromGenerated converts backend files to a FileMap. Entries with an empty
// path are dropped; later duplicates win.
func FromGenerated(files []models.GeneratedFile) FileMap {
	fm := make(FileMap, len(files))
	for _, f := range files {
		p := NormalizePath(f.Path)
		if p == "" || p == "/" {
			continue
		}
		fm[p] = File{Code: f.Content}
	}
	return fm
}

// Defaults returns a fresh copy of the scaffold every project starts from
func Defaults() FileMap {
	scaffold := assets.ScaffoldFiles()
	fm := make(FileMap, len(scaffold))
	for p, code := range scaffold {
		fm[p] = File{Code: code}
	}
	return fm
}

// Overlay returns base with top laid over it. Neither input is modified.
func Overlay(base, top FileMap) FileMap {
	out := make(FileMap, len(base)+len(top))
	for p, f := range base {
		out[p] = f
	}
	for p, f := range top {
		out[p] = f
	}
	return out
}

// Clone returns a shallow copy; File values are immutable strings so this is
// a full copy in practice.
func (fm FileMap) Clone() FileMap {
	out := make(FileMap, len(fm))
	for p, f := range fm {
		out[p] = f
	}
	return out
}

// Paths returns the sorted list of paths
func (fm FileMap) Paths() []string {
	paths := make([]string, 0, len(fm))
	for p := range fm {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ToGenerated flattens the map into a path-sorted list
func (fm FileMap) ToGenerated() []models.GeneratedFile {
	files := make([]models.GeneratedFile, 0, len(fm))
	for _, p := range fm.Paths() {
		files = append(files, models.GeneratedFile{Path: p, Content: fm[p].Code})
	}
	return files
}

// Equal reports whether both maps hold the same paths and contents
func (fm FileMap) Equal(other FileMap) bool {
	if len(fm) != len(other) {
		return false
	}
	for p, f := range fm {
		if o, ok := other[p]; !ok || o.Code != f.Code {
			return false
		}
	}
	return true
}

// Fingerprint hashes paths and contents; equal maps have equal fingerprints
func (fm FileMap) Fingerprint() string {
	d := xxhash.New()
	for _, p := range fm.Paths() {
		_, _ = d.WriteString(p)
		_, _ = d.Write([]byte{0})
		_, _ = d.WriteString(fm[p].Code)
		_, _ = d.Write([]byte{0})
	}
	return strconv.FormatUint(d.Sum64(), 16)
}
