// Package util - Batch input discovery.
package util

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-windet/images"
)

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Format is derived from the extension.
	Format images.ImageFormat
	// Data is the raw bytes of the image file, nil unless loaded.
	Data []byte
}

// ListDirectoryImageFiles returns the supported image files directly inside dir.
//
// Files are ordered by name, with a trailing number compared numerically so
// "frame-2.jpg" sorts before "frame-10.jpg".
//
// Arguments:
//   - dir: Directory path containing image files.
//
// Returns:
//   - []ImageFile: The image files without their data.
//   - error: Error if the directory cannot be read.
func ListDirectoryImageFiles(dir string) ([]ImageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read directory %s", dir)
	}

	var files []ImageFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		format, ok := images.FormatFromPath(entry.Name())
		if !ok {
			continue
		}
		files = append(files, ImageFile{
			Path:   filepath.Join(dir, entry.Name()),
			Format: format,
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		return naturalLess(filepath.Base(files[i].Path), filepath.Base(files[j].Path))
	})
	return files, nil
}

// LoadDirectoryImageFiles reads all image files from a directory.
//
// Arguments:
//   - dir: Directory path containing image files.
//
// Returns:
//   - []ImageFile: Slice of ImageFile, each containing the raw bytes of an image file.
//   - error: Error if loading fails.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	files, err := ListDirectoryImageFiles(dir)
	if err != nil {
		return nil, err
	}
	for i := range files {
		data, err := os.ReadFile(files[i].Path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", files[i].Path)
		}
		files[i].Data = data
	}
	return files, nil
}

// naturalLess compares names by their stem without the trailing number, then by
// that number, then lexically.
func naturalLess(a, b string) bool {
	pa, na, oka := splitTrailingNumber(a)
	pb, nb, okb := splitTrailingNumber(b)
	if oka && okb && pa == pb && na != nb {
		return na < nb
	}
	return a < b
}

func splitTrailingNumber(name string) (string, int, bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	i := len(stem)
	for i > 0 && stem[i-1] >= '0' && stem[i-1] <= '9' {
		i--
	}
	if i == len(stem) {
		return stem, 0, false
	}
	n, err := strconv.Atoi(stem[i:])
	if err != nil {
		return stem, 0, false
	}
	return stem[:i], n, true
}
