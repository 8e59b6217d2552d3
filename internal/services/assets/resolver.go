// Package assets resolves sequence resource paths to files on disk.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Class selects the extension candidates tried for a resource.
type Class string

const (
	ClassImage Class = "image"
	ClassAudio Class = "audio"
)

// ErrAssetNotFound is returned when no candidate file exists.
var ErrAssetNotFound = errors.New("asset not found")

// Extension candidates in priority order.
var (
	ImageExtensions = []string{".png", ".jpg", ".jpeg"}
	AudioExtensions = []string{".wav", ".mp3", ".ogg", ".m4a"}
)

// Resolver maps resource paths to files under a root directory.
type Resolver struct {
	root string
}

// NewResolver creates a resolver rooted at dir.
func NewResolver(dir string) *Resolver {
	return &Resolver{root: dir}
}

// Root returns the asset directory.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve returns the absolute file for a resource path, trying each
// extension of class in order. The first existing file wins.
func (r *Resolver) Resolve(class Class, resource string) (string, error) {
	rel, err := r.clean(resource)
	if err != nil {
		return "", err
	}

	for _, ext := range extensions(class) {
		candidate := filepath.Join(r.root, filepath.FromSlash(rel+ext))
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s %s", ErrAssetNotFound, class, resource)
}

// URL returns the path the kiosk uses to fetch a resolved asset under
// prefix, for example "/assets/images/foo.png".
func (r *Resolver) URL(prefix string, class Class, resource string) (string, error) {
	file, err := r.Resolve(class, resource)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(r.root, file)
	if err != nil {
		return "", fmt.Errorf("failed to relativize %s: %w", file, err)
	}
	return path.Join(prefix, filepath.ToSlash(rel)), nil
}

// clean rejects paths that would escape the asset root.
func (r *Resolver) clean(resource string) (string, error) {
	resource = strings.TrimSpace(strings.ReplaceAll(resource, "\\", "/"))
	if resource == "" {
		return "", fmt.Errorf("%w: empty resource path", ErrAssetNotFound)
	}
	cleaned := path.Clean("/" + resource)
	return strings.TrimPrefix(cleaned, "/"), nil
}

func extensions(class Class) []string {
	switch class {
	case ClassImage:
		return ImageExtensions
	case ClassAudio:
		return AudioExtensions
	default:
		return []string{""}
	}
}
