// Package engine wraps the external transform and rendering engines behind a
// small set of interfaces. An Engine is built once per process and shared
// read-only by every request.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"render-worker/internal/common/logger"
)

// TransformFactory compiles stylesheets. Implementations must not keep
// per-request state.
type TransformFactory interface {
	Compile(ctx context.Context, stylesheetPath string) (CompiledTransform, error)
}

// CompiledTransform applies one compiled stylesheet to a source document,
// writing the result tree to result. resolver decides where relative
// stylesheet imports point.
type CompiledTransform interface {
	Apply(ctx context.Context, sourcePath string, result io.Writer, resolver ImportResolver) error
}

// RenderFactory creates render targets for an output format.
type RenderFactory interface {
	NewRenderTarget(ctx context.Context, mimeType string, sink io.Writer) (RenderTarget, error)
}

// RenderTarget accepts a formatting-object tree. Close lays it out and writes
// the rendered document to the sink; Abort discards it.
type RenderTarget interface {
	io.WriteCloser
	Abort()
}

type Options struct {
	MimeType string
	Logger   logger.Logger
}

type Engine struct {
	transforms TransformFactory
	renders    RenderFactory
	mimeType   string
	logger     logger.Logger
}

// Request describes one rendering. ImportBase may be empty, in which case
// relative imports resolve against the stylesheet's directory.
type Request struct {
	SourcePath     string
	StylesheetPath string
	ImportBase     string
}

func New(transforms TransformFactory, renders RenderFactory, opts Options) *Engine {
	if opts.MimeType == "" {
		opts.MimeType = "application/pdf"
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	return &Engine{
		transforms: transforms,
		renders:    renders,
		mimeType:   opts.MimeType,
		logger:     opts.Logger,
	}
}

func (e *Engine) MimeType() string { return e.mimeType }

// Render transforms the source with the stylesheet and returns the rendered
// bytes. Every failure is a *Failure. Cancelling ctx stops the engine.
func (e *Engine) Render(ctx context.Context, req Request) ([]byte, error) {
	importBase := req.ImportBase
	if importBase == "" {
		importBase = filepath.Dir(req.StylesheetPath)
	}
	resolver := NewImportResolver(importBase)

	compiled, err := e.transforms.Compile(ctx, req.StylesheetPath)
	if err != nil {
		return nil, asFailure(ctx, StageCompile, err)
	}

	var out bytes.Buffer
	target, err := e.renders.NewRenderTarget(ctx, e.mimeType, &out)
	if err != nil {
		return nil, asFailure(ctx, StageRender, err)
	}

	if err := compiled.Apply(ctx, req.SourcePath, target, resolver); err != nil {
		target.Abort()
		return nil, asFailure(ctx, StageTransform, err)
	}
	if err := target.Close(); err != nil {
		return nil, asFailure(ctx, StageRender, err)
	}

	e.logger.Debug("Rendered document", map[string]interface{}{
		"source":     req.SourcePath,
		"stylesheet": req.StylesheetPath,
		"importBase": importBase,
		"bytes":      out.Len(),
	})
	return out.Bytes(), nil
}

// Stage names the engine step that failed.
type Stage string

const (
	StageCompile   Stage = "compile"
	StageTransform Stage = "transform"
	StageRender    Stage = "render"
)

// Failure is an engine error with the engine's own output attached.
type Failure struct {
	Stage  Stage
	Err    error
	Output string
}

func (f *Failure) Error() string {
	if line := firstLine(f.Output); line != "" {
		return fmt.Sprintf("%s: %v: %s", f.Stage, f.Err, line)
	}
	return fmt.Sprintf("%s: %v", f.Stage, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Diagnostic returns the full engine output, or the error text when the
// engine produced none.
func (f *Failure) Diagnostic() string {
	if f.Output != "" {
		return f.Output
	}
	return f.Err.Error()
}

// Cause classifies the failure for callers. See Classify.
func (f *Failure) Cause() string {
	return Classify(f)
}

func asFailure(ctx context.Context, stage Stage, err error) *Failure {
	f, ok := err.(*Failure)
	if !ok {
		f = &Failure{Err: err}
	}
	if f.Stage == "" {
		f.Stage = stage
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(f.Err, ctxErr) {
		f.Err = fmt.Errorf("%w: %v", ctxErr, f.Err)
	}
	return f
}
