package export

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Archive provides read access to the members of a data export, whether it
// was handed to us as a .zip file or an already-extracted directory
type Archive interface {
	// Names lists the member file names, relative to the archive root
	Names() []string

	// Open opens a member for reading
	Open(name string) (io.ReadCloser, error)

	// Close releases the archive
	Close() error
}

// OpenArchive opens a data export at path. A path ending in .zip is read
// in place; anything else must be a directory of extracted files.
func OpenArchive(path string) (Archive, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}

	if info.IsDir() {
		return openDir(path)
	}
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return openZip(path)
	}
	return nil, fmt.Errorf("failed to open export %s: not a directory or .zip archive", path)
}

// dirArchive reads an extracted export directory
type dirArchive struct {
	root  string
	names []string
}

func openDir(root string) (*dirArchive, error) {
	var names []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk export directory: %w", err)
	}

	return &dirArchive{root: root, names: names}, nil
}

func (a *dirArchive) Names() []string {
	return a.names
}

func (a *dirArchive) Open(name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(a.root, filepath.FromSlash(name)))
}

func (a *dirArchive) Close() error {
	return nil
}

// zipArchive reads a packaged export without extracting it
type zipArchive struct {
	rc    *zip.ReadCloser
	names []string
}

func openZip(path string) (*zipArchive, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip archive: %w", err)
	}

	names := make([]string, 0, len(rc.File))
	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		names = append(names, f.Name)
	}

	return &zipArchive{rc: rc, names: names}, nil
}

func (a *zipArchive) Names() []string {
	return a.names
}

func (a *zipArchive) Open(name string) (io.ReadCloser, error) {
	for _, f := range a.rc.File {
		if f.Name == name {
			return f.Open()
		}
	}
	return nil, fmt.Errorf("no such archive member: %s", name)
}

func (a *zipArchive) Close() error {
	return a.rc.Close()
}
