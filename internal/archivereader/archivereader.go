// Package archivereader implements C1: enumerating and reading members of a
// library archive (a JAR is a zip file) plus its optional
// META-INF/openapi-library.yaml descriptor.
package archivereader

import (
	"archive/zip"
	"bytes"
	"io"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/opencustomize/opencustomize/internal/domain"
)

const metadataEntry = "META-INF/openapi-library.yaml"

// ZipArchiveReader implements domain.ArchiveReader over a *zip.ReadCloser.
type ZipArchiveReader struct {
	path string
	zr   *zip.ReadCloser
	// byName indexes entries for O(1) lookup; zip.Reader already keeps an
	// internal index but it is not exported, so List/Read build their own.
	byName map[string]*zip.File
}

// Open opens the archive at archivePath for reading.
func Open(archivePath string) (*ZipArchiveReader, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, &domain.InventoryError{Path: archivePath, Err: err, Fatal: true}
	}
	byName := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		byName[f.Name] = f
	}
	return &ZipArchiveReader{path: archivePath, zr: zr, byName: byName}, nil
}

var _ domain.ArchiveReader = (*ZipArchiveReader)(nil)

// List returns every entry path under prefix (prefix itself excluded).
// A trailing slash on prefix is optional.
func (r *ZipArchiveReader) List(prefix string) ([]string, error) {
	prefix = strings.TrimSuffix(prefix, "/")
	var out []string
	for name := range r.byName {
		if name == prefix || strings.HasSuffix(name, "/") {
			continue
		}
		if prefix == "" || strings.HasPrefix(name, prefix+"/") {
			out = append(out, name)
		}
	}
	return out, nil
}

// Read returns the raw bytes of one entry.
func (r *ZipArchiveReader) Read(entryPath string) ([]byte, error) {
	f, ok := r.byName[entryPath]
	if !ok {
		return nil, &domain.InventoryError{
			Path: path.Join(r.path, entryPath),
			Err:  errEntryNotFound(entryPath),
		}
	}
	rc, err := f.Open()
	if err != nil {
		return nil, &domain.InventoryError{Path: path.Join(r.path, entryPath), Err: err}
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &domain.InventoryError{Path: path.Join(r.path, entryPath), Err: err}
	}
	return data, nil
}

// ReadMetadata reads META-INF/openapi-library.yaml. A missing descriptor is
// not an error: it yields (nil, nil). A present-but-malformed descriptor is
// fatal for this library (spec.md §4.1, §7).
func (r *ZipArchiveReader) ReadMetadata() (*domain.LibraryMetadata, error) {
	if _, ok := r.byName[metadataEntry]; !ok {
		return nil, nil
	}
	data, err := r.Read(metadataEntry)
	if err != nil {
		return nil, err
	}
	var meta domain.LibraryMetadata
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(false)
	if err := dec.Decode(&meta); err != nil {
		return nil, &domain.InventoryError{
			Path: path.Join(r.path, metadataEntry), Err: err, Fatal: true,
		}
	}
	return &meta, nil
}

func (r *ZipArchiveReader) Close() error {
	return r.zr.Close()
}

type entryNotFoundError string

func (e entryNotFoundError) Error() string { return "entry not found: " + string(e) }

func errEntryNotFound(name string) error { return entryNotFoundError(name) }
