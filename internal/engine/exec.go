package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"render-worker/internal/common/logger"
)

// ExecConfig configures engines run as external processes. Arguments may
// contain the placeholders {stylesheet}, {source}, {input}, {output} and
// {mime}.
type ExecConfig struct {
	TransformCommand    []string
	RenderCommand       []string
	FopHome             string
	AllowExternalAccess bool
	TempDir             string
	Logger              logger.Logger
}

// Flags that keep known transform launchers off the network.
var restrictFlags = map[string][]string{
	"xsltproc": {"--nonet"},
}

// NewExec builds an Engine whose factories shell out to the configured
// commands. Both launchers must resolve before anything is rendered.
func NewExec(cfg ExecConfig, opts Options) (*Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}
	transforms, err := NewExecTransformFactory(cfg)
	if err != nil {
		return nil, err
	}
	renders, err := NewExecRenderFactory(cfg)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = cfg.Logger
	}
	return New(transforms, renders, opts), nil
}

type ExecTransformFactory struct {
	argv    []string
	tempDir string
	logger  logger.Logger
}

func NewExecTransformFactory(cfg ExecConfig) (*ExecTransformFactory, error) {
	if len(cfg.TransformCommand) == 0 {
		return nil, fmt.Errorf("transform command is empty")
	}
	launcher, err := exec.LookPath(cfg.TransformCommand[0])
	if err != nil {
		return nil, fmt.Errorf("transform engine: %w", err)
	}

	argv := []string{launcher}
	if !cfg.AllowExternalAccess {
		argv = append(argv, restrictFlags[filepath.Base(cfg.TransformCommand[0])]...)
	}
	argv = append(argv, cfg.TransformCommand[1:]...)

	return &ExecTransformFactory{argv: argv, tempDir: cfg.TempDir, logger: cfg.Logger}, nil
}

func (f *ExecTransformFactory) Compile(ctx context.Context, stylesheetPath string) (CompiledTransform, error) {
	sheet, err := ParseStylesheet(stylesheetPath)
	if err != nil {
		return nil, &Failure{Stage: StageCompile, Err: err}
	}
	return &execTransform{factory: f, sheet: sheet}, nil
}

type execTransform struct {
	factory *ExecTransformFactory
	sheet   *Stylesheet
}

func (t *execTransform) Apply(ctx context.Context, sourcePath string, result io.Writer, resolver ImportResolver) error {
	stylesheet := t.sheet.Path
	if data, changed := t.sheet.Rewrite(resolver); changed {
		tmp, err := writeTemp(t.factory.tempDir, "stylesheet-*.xsl", data)
		if err != nil {
			return &Failure{Stage: StageTransform, Err: err}
		}
		defer os.Remove(tmp)
		stylesheet = tmp
		t.factory.logger.Debug("Rewrote stylesheet imports", map[string]interface{}{
			"stylesheet": t.sheet.Path,
			"rewritten":  tmp,
		})
	}

	args := expand(t.factory.argv, map[string]string{
		"{stylesheet}": stylesheet,
		"{source}":     absPath(sourcePath),
	})
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = result
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &Failure{Stage: StageTransform, Err: err, Output: stderr.String()}
	}
	return nil
}

type ExecRenderFactory struct {
	argv    []string
	tempDir string
	logger  logger.Logger
}

func NewExecRenderFactory(cfg ExecConfig) (*ExecRenderFactory, error) {
	if len(cfg.RenderCommand) == 0 {
		return nil, fmt.Errorf("render command is empty")
	}
	launcher, err := findLauncher(cfg.RenderCommand[0], cfg.FopHome)
	if err != nil {
		return nil, fmt.Errorf("render engine: %w", err)
	}
	argv := append([]string{launcher}, cfg.RenderCommand[1:]...)
	return &ExecRenderFactory{argv: argv, tempDir: cfg.TempDir, logger: cfg.Logger}, nil
}

func (f *ExecRenderFactory) NewRenderTarget(ctx context.Context, mimeType string, sink io.Writer) (RenderTarget, error) {
	if mimeType == "" {
		return nil, fmt.Errorf("no output mime type")
	}
	fo, err := os.CreateTemp(f.tempDir, "render-*.fo")
	if err != nil {
		return nil, err
	}
	return &execRenderTarget{ctx: ctx, factory: f, mimeType: mimeType, sink: sink, fo: fo}, nil
}

type execRenderTarget struct {
	ctx      context.Context
	factory  *ExecRenderFactory
	mimeType string
	sink     io.Writer
	fo       *os.File
}

func (t *execRenderTarget) Write(p []byte) (int, error) {
	return t.fo.Write(p)
}

func (t *execRenderTarget) Abort() {
	t.fo.Close()
	os.Remove(t.fo.Name())
}

func (t *execRenderTarget) Close() error {
	defer os.Remove(t.fo.Name())
	if err := t.fo.Close(); err != nil {
		return err
	}

	out, err := os.CreateTemp(t.factory.tempDir, "render-*.out")
	if err != nil {
		return err
	}
	outPath := out.Name()
	out.Close()
	defer os.Remove(outPath)

	args := expand(t.factory.argv, map[string]string{
		"{input}":  t.fo.Name(),
		"{output}": outPath,
		"{mime}":   t.mimeType,
	})
	var output bytes.Buffer
	cmd := exec.CommandContext(t.ctx, args[0], args[1:]...)
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		return &Failure{Stage: StageRender, Err: err, Output: output.String()}
	}

	rendered, err := os.Open(outPath)
	if err != nil {
		return &Failure{Stage: StageRender, Err: err, Output: output.String()}
	}
	defer rendered.Close()
	_, err = io.Copy(t.sink, rendered)
	return err
}

// findLauncher resolves name on PATH, or under fopHome when it is set.
func findLauncher(name, fopHome string) (string, error) {
	if fopHome == "" || filepath.IsAbs(name) {
		return exec.LookPath(name)
	}
	for _, candidate := range []string{
		filepath.Join(fopHome, name),
		filepath.Join(fopHome, "bin", name),
		filepath.Join(fopHome, "fop", name),
	} {
		if p, err := exec.LookPath(candidate); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s not found under %s", name, fopHome)
}

func expand(argv []string, values map[string]string) []string {
	out := make([]string, len(argv))
	for i, arg := range argv {
		for k, v := range values {
			arg = strings.ReplaceAll(arg, k, v)
		}
		out[i] = arg
	}
	return out
}

func writeTemp(dir, pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
