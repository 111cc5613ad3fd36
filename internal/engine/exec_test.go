package engine

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireTools(t *testing.T, tools ...string) {
	t.Helper()
	for _, tool := range tools {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not available", tool)
		}
	}
}

func TestExecEngine_Render(t *testing.T) {
	requireTools(t, "cat", "cp")

	dir := t.TempDir()
	source := writeFile(t, filepath.Join(dir, "doc.xml"), "<fo:root>hello</fo:root>")
	stylesheet := writeFile(t, filepath.Join(dir, "main.xsl"), mainStylesheet)

	e, err := NewExec(ExecConfig{
		TransformCommand:    []string{"cat", "{source}"},
		RenderCommand:       []string{"cp", "{input}", "{output}"},
		AllowExternalAccess: true,
		TempDir:             t.TempDir(),
	}, Options{})
	require.NoError(t, err)

	out, err := e.Render(context.Background(), Request{SourcePath: source, StylesheetPath: stylesheet})
	require.NoError(t, err)
	assert.Equal(t, "<fo:root>hello</fo:root>", string(out))
}

func TestExecEngine_RewritesImportsAgainstImportBase(t *testing.T) {
	requireTools(t, "cat", "cp")

	styles := t.TempDir()
	stylesheet := writeFile(t, filepath.Join(styles, "main.xsl"), mainStylesheet)
	source := writeFile(t, filepath.Join(styles, "doc.xml"), "<doc/>")

	base := t.TempDir()
	common := writeFile(t, filepath.Join(base, "common.xsl"), "<x/>")

	e, err := NewExec(ExecConfig{
		TransformCommand:    []string{"cat", "{stylesheet}"},
		RenderCommand:       []string{"cp", "{input}", "{output}"},
		AllowExternalAccess: true,
		TempDir:             t.TempDir(),
	}, Options{})
	require.NoError(t, err)

	out, err := e.Render(context.Background(), Request{SourcePath: source, StylesheetPath: stylesheet, ImportBase: base})
	require.NoError(t, err)
	assert.Contains(t, string(out), `href="`+filepath.ToSlash(common)+`"`)
}

func TestExecEngine_TransformFailure(t *testing.T) {
	requireTools(t, "cat", "cp")

	dir := t.TempDir()
	stylesheet := writeFile(t, filepath.Join(dir, "main.xsl"), mainStylesheet)

	e, err := NewExec(ExecConfig{
		TransformCommand:    []string{"cat", "{source}"},
		RenderCommand:       []string{"cp", "{input}", "{output}"},
		AllowExternalAccess: true,
		TempDir:             t.TempDir(),
	}, Options{})
	require.NoError(t, err)

	_, err = e.Render(context.Background(), Request{SourcePath: filepath.Join(dir, "gone.xml"), StylesheetPath: stylesheet})
	require.Error(t, err)

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, StageTransform, f.Stage)
	assert.Contains(t, f.Diagnostic(), "gone.xml")
	assert.Equal(t, CauseMissingResource, Classify(err))
}

func TestExecEngine_MalformedStylesheet(t *testing.T) {
	requireTools(t, "cat", "cp")

	dir := t.TempDir()
	stylesheet := writeFile(t, filepath.Join(dir, "bad.xsl"), "<xsl:stylesheet")
	source := writeFile(t, filepath.Join(dir, "doc.xml"), "<doc/>")

	e, err := NewExec(ExecConfig{
		TransformCommand: []string{"cat", "{source}"},
		RenderCommand:    []string{"cp", "{input}", "{output}"},
	}, Options{})
	require.NoError(t, err)

	_, err = e.Render(context.Background(), Request{SourcePath: source, StylesheetPath: stylesheet})
	require.Error(t, err)
	assert.Equal(t, CauseMalformedDocument, Classify(err))
}

func TestNewExec_MissingLaunchers(t *testing.T) {
	_, err := NewExec(ExecConfig{
		TransformCommand: []string{"definitely-not-a-transformer-xyz"},
		RenderCommand:    []string{"cp"},
	}, Options{})
	assert.Error(t, err)

	requireTools(t, "cat")
	_, err = NewExec(ExecConfig{
		TransformCommand: []string{"cat"},
		RenderCommand:    []string{"fop"},
		FopHome:          t.TempDir(),
	}, Options{})
	assert.Error(t, err)

	_, err = NewExec(ExecConfig{RenderCommand: []string{"cp"}}, Options{})
	assert.Error(t, err)
}

func TestNewExecTransformFactory_RestrictsNetwork(t *testing.T) {
	requireTools(t, "xsltproc")

	f, err := NewExecTransformFactory(ExecConfig{TransformCommand: []string{"xsltproc", "{stylesheet}", "{source}"}})
	require.NoError(t, err)
	assert.Equal(t, "--nonet", f.argv[1])

	f, err = NewExecTransformFactory(ExecConfig{
		TransformCommand:    []string{"xsltproc", "{stylesheet}", "{source}"},
		AllowExternalAccess: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "{stylesheet}", f.argv[1])
}

func TestExpand(t *testing.T) {
	got := expand([]string{"fop", "-fo", "{input}", "-out", "{mime}", "{output}"}, map[string]string{
		"{input}":  "/tmp/a.fo",
		"{output}": "/tmp/a.pdf",
		"{mime}":   "application/pdf",
	})
	assert.Equal(t, []string{"fop", "-fo", "/tmp/a.fo", "-out", "application/pdf", "/tmp/a.pdf"}, got)
}
