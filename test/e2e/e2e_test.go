// test/e2e/e2e_test.go
package e2e

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"render-worker/internal/common/config"
	"render-worker/internal/common/logger"
	"render-worker/internal/common/observability"
	"render-worker/internal/dispatcher"
	"render-worker/internal/models"
	"render-worker/internal/server"
	"render-worker/pkg/client"
)

const stylesheet = `<?xml version="1.0"?>
<xsl:stylesheet version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:import href="common.xsl"/>
</xsl:stylesheet>`

type harness struct {
	srv    *server.Server
	client *client.Client
	exit   chan int
}

func requireTools(t *testing.T, tools ...string) {
	t.Helper()
	for _, tool := range tools {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not available", tool)
		}
	}
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// start runs a server over in-memory pipes and attaches a client to it.
// The engine is the external-process engine with cat standing in for the
// transformer and cp for the renderer, so the FO result is the source file.
func start(t *testing.T) *harness {
	t.Helper()
	requireTools(t, "cat", "cp")

	cfg := &config.Config{
		App: config.AppConfig{Name: "render-worker-e2e"},
		Engine: config.EngineConfig{
			TransformCommand:    []string{"cat", "{source}"},
			RenderCommand:       []string{"cp", "{input}", "{output}"},
			MimeType:            config.DefaultMimeType,
			AllowExternalAccess: true,
			TempDir:             t.TempDir(),
		},
		Protocol: config.ProtocolConfig{ResponsePrefix: config.DefaultResponsePrefix},
	}

	cmdR, cmdW := io.Pipe()
	respR, respW := io.Pipe()
	t.Cleanup(func() {
		cmdW.Close()
		respR.Close()
	})

	obs := observability.New(cfg.App.Name, observability.Options{Registerer: promclient.NewRegistry()})
	t.Cleanup(obs.Shutdown)

	srv, err := server.New(server.Options{
		Config:        cfg,
		Input:         cmdR,
		Output:        respW,
		Logger:        logger.NewNoOpLogger(),
		Observability: obs,
	})
	require.NoError(t, err)

	exit := make(chan int, 1)
	go func() {
		code := srv.Run(context.Background())
		respW.Close()
		exit <- code
	}()

	c, err := client.Attach(context.Background(), respR, cmdW, client.Options{ReadyTimeout: 5 * time.Second})
	require.NoError(t, err)

	return &harness{srv: srv, client: c, exit: exit}
}

func (h *harness) shutdown(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.client.Shutdown(ctx))

	select {
	case code := <-h.exit:
		assert.Equal(t, server.ExitOK, code)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not exit after shutdown")
	}
	assert.Equal(t, dispatcher.StateTerminated, h.srv.State())
}

func TestFullE2E(t *testing.T) {
	h := start(t)
	ctx := context.Background()

	assert.Equal(t, dispatcher.StateReady, h.srv.State())
	require.NoError(t, h.client.Ping(ctx))

	dir := t.TempDir()
	source := writeFile(t, filepath.Join(dir, "invoice.xml"), "<fo:root>invoice</fo:root>")
	xsl := writeFile(t, filepath.Join(dir, "styles", "invoice.xsl"), stylesheet)
	writeFile(t, filepath.Join(dir, "styles", "common.xsl"), "<xsl:stylesheet/>")
	output := filepath.Join(dir, "out", "nested", "invoice.pdf")

	resp, err := h.client.Generate(ctx, client.GenerateRequest{
		SourcePath:     source,
		StylesheetPath: xsl,
		OutputPath:     output,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, resp.Status)
	assert.Contains(t, resp.Message, "PDF generated successfully in")
	assert.Equal(t, []byte("<fo:root>invoice</fo:root>"), resp.Payload)

	written, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, resp.Payload, written)

	h.shutdown(t)
}

func TestE2E_ErrorsDoNotEndSession(t *testing.T) {
	h := start(t)
	ctx := context.Background()
	dir := t.TempDir()

	xsl := writeFile(t, filepath.Join(dir, "doc.xsl"), stylesheet)

	resp, err := h.client.Generate(ctx, client.GenerateRequest{
		SourcePath:     filepath.Join(dir, "missing.xml"),
		StylesheetPath: xsl,
		OutputPath:     filepath.Join(dir, "doc.pdf"),
	})
	var respErr *client.ResponseError
	require.True(t, stderrors.As(err, &respErr), "err: %v", err)
	assert.Equal(t, "RESOURCE_NOT_FOUND", resp.ErrorCode)
	assert.Contains(t, resp.Message, "Source file not found")
	assert.NoFileExists(t, filepath.Join(dir, "doc.pdf"))

	_, err = h.client.Generate(ctx, client.GenerateRequest{StylesheetPath: xsl})
	require.True(t, stderrors.As(err, &respErr))
	assert.Equal(t, "VALIDATION_FAILED", respErr.Response.ErrorCode)

	require.NoError(t, h.client.Ping(ctx))
	h.shutdown(t)
}

func TestE2E_WorkingDirectoryResolvesImports(t *testing.T) {
	h := start(t)
	ctx := context.Background()

	styles := t.TempDir()
	shared := t.TempDir()
	writeFile(t, filepath.Join(shared, "common.xsl"), "<xsl:stylesheet/>")
	xsl := writeFile(t, filepath.Join(styles, "doc.xsl"), stylesheet)
	source := writeFile(t, filepath.Join(styles, "doc.xml"), "<fo:root/>")

	resp, err := h.client.Generate(ctx, client.GenerateRequest{
		SourcePath:       source,
		StylesheetPath:   xsl,
		OutputPath:       filepath.Join(styles, "doc.pdf"),
		WorkingDirectory: shared,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, resp.Status)

	h.shutdown(t)
}
