package gallery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
}

// DatasetImage is a labelled image in the dataset directory.
type DatasetImage struct {
	Path        string
	IdentityID  string
	DisplayName string
}

// IsImageFile reports whether name has a supported image extension.
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// ParseDatasetName splits "123_Ali_Yilmaz.jpg" into id "123" and name "Ali Yilmaz".
// The id is everything before the first underscore, remaining underscores become spaces.
func ParseDatasetName(filename string) (id, name string, ok bool) {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	id, rest, found := strings.Cut(base, "_")
	if !found || id == "" {
		return "", "", false
	}
	name = strings.TrimSpace(strings.ReplaceAll(rest, "_", " "))
	if name == "" {
		return "", "", false
	}
	return id, name, true
}

// DatasetFileName is the inverse of ParseDatasetName for a new student photo.
func DatasetFileName(id, name, ext string) string {
	if ext == "" {
		ext = ".jpg"
	}
	return id + "_" + strings.Join(strings.Fields(name), "_") + strings.ToLower(ext)
}

// HasNumericID reports whether id is a non-empty run of digits, the
// expected form of a student number.
func HasNumericID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// ScanDataset lists labelled images in dir sorted by file name. Files with a
// supported extension but an unparsable name are returned in invalid.
func ScanDataset(dir string) (images []DatasetImage, invalid []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading dataset directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsImageFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, n := range names {
		id, name, ok := ParseDatasetName(n)
		if !ok {
			invalid = append(invalid, n)
			continue
		}
		images = append(images, DatasetImage{
			Path:        filepath.Join(dir, n),
			IdentityID:  id,
			DisplayName: name,
		})
	}
	return images, invalid, nil
}
