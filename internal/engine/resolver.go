package engine

import (
	"net/url"
	"os"
	"path/filepath"
)

// ImportResolver maps a relative stylesheet import reference to a file.
// ok is false when the engine's own resolution should be used.
type ImportResolver interface {
	Resolve(href string) (path string, ok bool)
}

type importResolver struct {
	base string
	cwd  string
}

// NewImportResolver resolves references against base first, then against
// the process's current directory.
func NewImportResolver(base string) ImportResolver {
	cwd, _ := os.Getwd()
	return &importResolver{base: base, cwd: cwd}
}

func (r *importResolver) Resolve(href string) (string, bool) {
	if !isRelativeRef(href) {
		return "", false
	}
	rel := filepath.FromSlash(href)
	if r.base != "" {
		if p := filepath.Join(r.base, rel); isFile(p) {
			return absPath(p), true
		}
	}
	if r.cwd != "" {
		if p := filepath.Join(r.cwd, rel); isFile(p) {
			return p, true
		}
	}
	return "", false
}

// ImportBase picks the import base for one request: workingDirectory when it
// is an existing directory, otherwise the stylesheet's own directory.
func ImportBase(workingDirectory, stylesheetPath string) string {
	if workingDirectory != "" {
		if info, err := os.Stat(workingDirectory); err == nil && info.IsDir() {
			return absPath(workingDirectory)
		}
	}
	return absPath(filepath.Dir(stylesheetPath))
}

func isRelativeRef(href string) bool {
	if href == "" || filepath.IsAbs(href) || href[0] == '/' {
		return false
	}
	// A single-letter scheme is a Windows drive, not a URI.
	if u, err := url.Parse(href); err == nil && len(u.Scheme) > 1 {
		return false
	}
	return true
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
