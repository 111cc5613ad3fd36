package engine

import (
	"context"
	"errors"
	"io/fs"
	"strings"
)

const (
	CauseStylesheetReference = "stylesheet reference error"
	CauseMissingResource     = "missing resource"
	CauseMalformedDocument   = "malformed document"
	CauseRenderFailure       = "render failure"
	CauseTimeout             = "engine timeout"
)

var (
	missingMarkers = []string{
		"failed to load external entity",
		"no such file",
		"filenotfoundexception",
		"cannot find",
		"could not find",
		"not found",
		"unable to open",
	}
	referenceMarkers = []string{
		"xsl:import",
		"xsl:include",
		"import",
		"include",
		"compilation error",
		"failed to compile",
	}
	malformedMarkers = []string{
		"parser error",
		"not well-formed",
		"premature end",
		"saxparseexception",
		"xml syntax error",
		"start tag expected",
		"content is not allowed",
	}
)

// Classify returns a short best-effort description of why the engine failed,
// or "" when nothing more specific than the error itself is known.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CauseTimeout
	}

	var f *Failure
	if !errors.As(err, &f) {
		return ""
	}
	text := strings.ToLower(f.Output + "\n" + f.Err.Error())

	switch {
	case f.Stage == StageCompile:
		if errors.Is(f.Err, fs.ErrNotExist) {
			return CauseMissingResource
		}
		return CauseMalformedDocument
	case containsAny(text, missingMarkers):
		if containsAny(text, referenceMarkers) {
			return CauseStylesheetReference
		}
		return CauseMissingResource
	case containsAny(text, referenceMarkers):
		return CauseStylesheetReference
	case containsAny(text, malformedMarkers):
		return CauseMalformedDocument
	case f.Stage == StageRender:
		return CauseRenderFailure
	default:
		return ""
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
