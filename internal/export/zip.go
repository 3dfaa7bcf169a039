package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/vanpelt/sitecraft/internal/filemap"
	"github.com/vanpelt/sitecraft/internal/models"
)

// DefaultZipName is the archive name used when none is given
const DefaultZipName = "responsive-website.zip"

// Zip writes every file in fm to w, with the leading slash stripped from each
// entry name. Entries are written in path order.
func Zip(w io.Writer, fm filemap.FileMap) error {
	zw := zip.NewWriter(w)
	modified := time.Now()

	for _, p := range fm.Paths() {
		name := strings.TrimPrefix(p, "/")
		if name == "" {
			continue
		}
		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified}
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", name, err)
		}
		if _, err := io.WriteString(fw, fm[p].Code); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

// WriteZipFile writes fm to a zip at path, creating parent directories
func WriteZipFile(path string, fm filemap.FileMap) error {
	if path == "" {
		path = DefaultZipName
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	var buf bytes.Buffer
	if err := Zip(&buf, fm); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadZip lists the files in an archive, with paths in FileMap form
func ReadZip(r io.ReaderAt, size int64) ([]models.GeneratedFile, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	files := make([]models.GeneratedFile, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		files = append(files, models.GeneratedFile{Path: filemap.NormalizePath(f.Name), Content: string(data)})
	}
	return files, nil
}
