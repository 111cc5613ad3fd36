// pkg/client/client.go
package client

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"render-worker/internal/common/config"
	"render-worker/internal/common/logger"
	"render-worker/internal/models"
	"render-worker/internal/protocol"
	"render-worker/pkg/registry"
)

var (
	// ErrClosed is returned for calls made after the worker stream ended.
	ErrClosed = stderrors.New("render worker closed")
	// ErrNotReady is returned when the worker does not announce readiness.
	ErrNotReady = stderrors.New("render worker did not become ready")
)

// ResponseError wraps an error response from the worker.
type ResponseError struct {
	Response *models.Response
}

func (e *ResponseError) Error() string {
	if e.Response.ErrorCode != "" {
		return fmt.Sprintf("%s: %s", e.Response.ErrorCode, e.Response.Message)
	}
	return e.Response.Message
}

// Options configures a Client.
type Options struct {
	ResponsePrefix string
	ReadyTimeout   time.Duration
	// Stderr receives the spawned worker's log stream. Nil means os.Stderr.
	Stderr io.Writer
	Logger logger.Logger
}

func (o *Options) withDefaults() {
	if o.ResponsePrefix == "" {
		o.ResponsePrefix = config.DefaultResponsePrefix
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = 30 * time.Second
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.Logger == nil {
		o.Logger = logger.NewNoOpLogger()
	}
}

// GenerateRequest names the files for one rendering.
type GenerateRequest struct {
	SourcePath       string
	StylesheetPath   string
	OutputPath       string
	WorkingDirectory string
}

// Client supervises one render worker. Calls may be made from several
// goroutines; the worker answers them in order.
type Client struct {
	codec   *protocol.Codec
	reader  *protocol.Reader
	writer  *protocol.Writer
	pending *pendingMap
	log     logger.Logger

	nextID atomic.Int64
	ready  chan *models.Response
	done   chan struct{}

	mu      sync.Mutex
	readErr error

	process  *exec.Cmd
	waitOnce sync.Once
	waitErr  error
	closer   io.Closer
}

// Start launches the worker binary at path and waits for its ready line.
func Start(ctx context.Context, path string, args []string, opts Options) (*Client, error) {
	opts.withDefaults()

	cmd := exec.Command(path, args...)
	cmd.Stderr = opts.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}

	opts.Logger = opts.Logger.WithFields(map[string]interface{}{"pid": cmd.Process.Pid})
	c, err := newClient(stdout, stdin, opts)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}
	c.process = cmd
	c.closer = stdin

	if err := c.awaitReady(ctx, opts.ReadyTimeout); err != nil {
		c.kill()
		return nil, err
	}
	return c, nil
}

// Attach talks to a worker already wired to r and w and waits for its
// ready line.
func Attach(ctx context.Context, r io.Reader, w io.Writer, opts Options) (*Client, error) {
	opts.withDefaults()
	c, err := newClient(r, w, opts)
	if err != nil {
		return nil, err
	}
	if wc, ok := w.(io.Closer); ok {
		c.closer = wc
	}
	if err := c.awaitReady(ctx, opts.ReadyTimeout); err != nil {
		return nil, err
	}
	return c, nil
}

func newClient(r io.Reader, w io.Writer, opts Options) (*Client, error) {
	reg, err := registry.Default()
	if err != nil {
		return nil, err
	}
	codec, err := protocol.NewCodec(opts.ResponsePrefix, reg.EnvelopeSchema)
	if err != nil {
		return nil, err
	}

	c := &Client{
		codec:   codec,
		reader:  protocol.NewReader(r),
		writer:  protocol.NewWriter(w),
		pending: newPendingMap(),
		log:     opts.Logger.WithFields(map[string]interface{}{"clientId": uuid.NewString()}),
		ready:   make(chan *models.Response, 1),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) awaitReady(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-c.ready:
		if resp.Status != models.StatusReady {
			return fmt.Errorf("%w: %w", ErrNotReady, &ResponseError{Response: resp})
		}
		c.log.Info("Render worker ready", map[string]interface{}{"message": resp.Message})
		return nil
	case <-c.done:
		return fmt.Errorf("%w: %w", ErrNotReady, c.err())
	case <-timer.C:
		return fmt.Errorf("%w: timed out after %s", ErrNotReady, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) readLoop() {
	defer close(c.done)

	gotReady := false
	for {
		line, err := c.reader.ReadLine()
		if err != nil {
			if err == io.EOF {
				err = ErrClosed
			}
			c.setErr(err)
			if failed := c.pending.failAll(err); len(failed) > 0 {
				actions := make([]string, len(failed))
				for i, f := range failed {
					actions[i] = fmt.Sprintf("%s#%d", f.Action, f.ID)
				}
				c.log.Warn("Worker stream ended with requests in flight", map[string]interface{}{
					"pending":  actions,
					"oldestMs": failed[0].Age.Milliseconds(),
					"error":    err.Error(),
				})
			}
			return
		}

		resp, err := c.codec.DecodeResponse(line)
		if err != nil {
			if !stderrors.Is(err, protocol.ErrNotResponse) {
				c.log.Warn("Undecodable response line", map[string]interface{}{"error": err.Error()})
			}
			continue
		}

		if !gotReady {
			gotReady = true
			c.ready <- resp
			continue
		}

		if resp.RequestID == 0 && resp.Status == models.StatusError {
			// Loop-level failure; the worker is about to exit.
			c.pending.failAll(&ResponseError{Response: resp})
			continue
		}
		if !c.pending.resolve(resp) {
			c.log.Warn("Response for unknown request", map[string]interface{}{
				"requestId": resp.RequestID,
				"status":    string(resp.Status),
			})
		}
	}
}

func (c *Client) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readErr = err
}

func (c *Client) err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr == nil {
		return ErrClosed
	}
	return c.readErr
}

// call sends cmd with a fresh request id and waits for the matching
// response. When ctx expires first a spawned worker is killed, since it can
// no longer be trusted to answer in order.
func (c *Client) call(ctx context.Context, cmd *models.Command) (*models.Response, error) {
	cmd.RequestID = int(c.nextID.Add(1))
	ch, err := c.pending.register(cmd.RequestID, cmd.Action)
	if err != nil {
		return nil, err
	}

	line, err := c.codec.EncodeCommand(cmd)
	if err != nil {
		c.pending.unregister(cmd.RequestID)
		return nil, err
	}
	if err := c.writer.WriteLine(line); err != nil {
		c.pending.unregister(cmd.RequestID)
		return nil, fmt.Errorf("send %s: %w", cmd.Action, err)
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		if res.resp.Status == models.StatusError {
			return res.resp, &ResponseError{Response: res.resp}
		}
		return res.resp, nil
	case <-ctx.Done():
		c.pending.unregister(cmd.RequestID)
		c.log.Error("Request timed out, stopping worker", map[string]interface{}{
			"requestId": cmd.RequestID,
			"action":    string(cmd.Action),
		})
		c.kill()
		return nil, ctx.Err()
	}
}

// Generate asks the worker to render one document.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*models.Response, error) {
	return c.call(ctx, &models.Command{
		Action:           models.ActionGenerate,
		SourcePath:       req.SourcePath,
		StylesheetPath:   req.StylesheetPath,
		OutputPath:       req.OutputPath,
		WorkingDirectory: req.WorkingDirectory,
	})
}

// Ping checks that the worker still answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.call(ctx, &models.Command{Action: models.ActionPing})
	return err
}

// Shutdown asks the worker to stop and, for a spawned worker, waits for it
// to exit.
func (c *Client) Shutdown(ctx context.Context) error {
	resp, err := c.call(ctx, &models.Command{Action: models.ActionShutdown})
	if err != nil {
		return err
	}
	if resp.Status != models.StatusShutdown {
		return fmt.Errorf("unexpected shutdown status %q", resp.Status)
	}
	if c.closer != nil {
		_ = c.closer.Close()
	}
	if c.process == nil {
		return nil
	}

	exited := make(chan error, 1)
	go func() { exited <- c.wait() }()
	select {
	case err := <-exited:
		return err
	case <-ctx.Done():
		c.kill()
		return ctx.Err()
	}
}

// Done is closed once the worker's output stream ends.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close stops the worker without the shutdown handshake.
func (c *Client) Close() error {
	if c.closer != nil {
		_ = c.closer.Close()
	}
	if c.process != nil {
		c.kill()
	}
	return nil
}

func (c *Client) kill() {
	if c.process == nil || c.process.Process == nil {
		return
	}
	_ = c.process.Process.Kill()
	_ = c.wait()
}

func (c *Client) wait() error {
	c.waitOnce.Do(func() {
		c.waitErr = c.process.Wait()
	})
	return c.waitErr
}

// ExitCode reports the spawned worker's exit status, or -1 while it runs or
// when the client is attached.
func (c *Client) ExitCode() int {
	if c.process == nil || c.process.ProcessState == nil {
		return -1
	}
	return c.process.ProcessState.ExitCode()
}
