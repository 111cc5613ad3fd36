// Package server owns the worker's process lifecycle: one-time engine
// initialization, the ready signal, the read loop, and termination.
package server

import (
	"context"
	"fmt"
	"io"
	"strings"

	"render-worker/internal/common/config"
	"render-worker/internal/common/errors"
	"render-worker/internal/common/logger"
	"render-worker/internal/common/observability"
	"render-worker/internal/dispatcher"
	"render-worker/internal/engine"
	"render-worker/internal/models"
	"render-worker/internal/protocol"
	generatepdf "render-worker/internal/workers/render/generate-pdf"
	"render-worker/internal/workers/control/ping"
	"render-worker/internal/workers/control/shutdown"
	"render-worker/pkg/registry"
)

const (
	ExitOK    = 0
	ExitFatal = 1
)

const readyMessage = "Render worker initialized and ready"

// EngineFactory builds the rendering engine. It is called once per Run.
type EngineFactory func() (generatepdf.Renderer, error)

type Options struct {
	Config        *config.Config
	Input         io.Reader
	Output        io.Writer
	Logger        logger.Logger
	Observability *observability.Observability
	// NewEngine defaults to the external-process engine described by
	// Config.Engine.
	NewEngine EngineFactory
	// Registry defaults to the registry embedded in the binary.
	Registry *registry.ActionRegistry
}

type Server struct {
	cfg        *config.Config
	reader     *protocol.Reader
	writer     *protocol.Writer
	codec      *protocol.Codec
	dispatcher *dispatcher.Dispatcher
	registry   *registry.ActionRegistry
	newEngine  EngineFactory
	logger     logger.Logger
	obs        *observability.Observability
}

func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("server requires a config")
	}
	if opts.Input == nil || opts.Output == nil {
		return nil, fmt.Errorf("server requires input and output streams")
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	if opts.Registry == nil {
		reg, err := registry.Default()
		if err != nil {
			return nil, err
		}
		opts.Registry = reg
	}
	if opts.NewEngine == nil {
		opts.NewEngine = ExecEngineFactory(opts.Config, opts.Logger)
	}

	prefix := opts.Config.Protocol.ResponsePrefix
	if prefix == "" {
		prefix = config.DefaultResponsePrefix
	}
	codec, err := protocol.NewCodec(prefix, opts.Registry.EnvelopeSchema)
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:    opts.Config,
		reader: protocol.NewReader(opts.Input),
		writer: protocol.NewWriter(opts.Output),
		codec:  codec,
		dispatcher: dispatcher.New(dispatcher.Options{
			Logger:        opts.Logger,
			Observability: opts.Observability,
		}),
		registry:  opts.Registry,
		newEngine: opts.NewEngine,
		logger:    opts.Logger,
		obs:       opts.Observability,
	}, nil
}

// ExecEngineFactory returns the factory for the external-process engine.
func ExecEngineFactory(cfg *config.Config, log logger.Logger) EngineFactory {
	return func() (generatepdf.Renderer, error) {
		e, err := engine.NewExec(engine.ExecConfig{
			TransformCommand:    cfg.Engine.TransformCommand,
			RenderCommand:       cfg.Engine.RenderCommand,
			FopHome:             cfg.Engine.FopHome,
			AllowExternalAccess: cfg.Engine.AllowExternalAccess,
			TempDir:             cfg.Engine.TempDir,
			Logger:              log,
		}, engine.Options{MimeType: cfg.Engine.MimeType, Logger: log})
		if err != nil {
			return nil, err
		}
		return e, nil
	}
}

// State reports the dispatcher state, for readiness checks.
func (s *Server) State() dispatcher.State {
	return s.dispatcher.State()
}

// Run initializes the engine, announces readiness and serves commands until
// shutdown, end of input, ctx cancellation or a fatal failure. It returns
// the process exit code.
func (s *Server) Run(ctx context.Context) int {
	if err := s.initialize(); err != nil {
		return s.fatal(errors.NewInitializationFailedError(err))
	}

	if err := s.send(models.NewReadyResponse(readyMessage)); err != nil {
		return s.fatal(errors.NewFatalLoopFailureError(err))
	}
	s.logger.Info("Worker ready", map[string]interface{}{
		"actions": s.registry.IDs(),
	})

	requests := make(chan struct{})
	results := make(chan readResult, 1)
	defer close(requests)
	go s.readLines(requests, results)

	for {
		requests <- struct{}{}

		r, ok := nextLine(ctx, results)
		if !ok {
			s.dispatcher.Terminate()
			s.logger.Info("Stopping on signal", map[string]interface{}{"reason": ctx.Err().Error()})
			return ExitOK
		}

		if r.err == io.EOF {
			s.dispatcher.Terminate()
			s.logger.Info("Input closed, stopping", nil)
			return ExitOK
		}
		if r.err != nil {
			return s.fatal(errors.NewFatalLoopFailureError(r.err))
		}
		if strings.TrimSpace(r.line) == "" {
			continue
		}

		resp := s.handleLine(ctx, r.line)
		if err := s.send(resp); err != nil {
			return s.fatal(errors.NewFatalLoopFailureError(err))
		}
		if resp.IsTerminal() {
			s.logger.Info("Shutdown acknowledged", map[string]interface{}{"requestId": resp.RequestID})
			return ExitOK
		}
	}
}

func (s *Server) initialize() error {
	renderer, err := s.newEngine()
	if err != nil {
		return err
	}

	generate, err := generatepdf.NewHandler(generatepdf.HandlerOptions{
		AppConfig:     s.cfg,
		Engine:        renderer,
		Observability: s.obs,
		Logger:        s.logger,
	})
	if err != nil {
		return err
	}

	handlers := map[models.Action]dispatcher.Handler{
		generatepdf.ActionType: generate,
		ping.ActionType:        ping.NewHandler(s.logger),
		shutdown.ActionType:    shutdown.NewHandler(s.logger),
	}
	for action, h := range handlers {
		if _, ok := s.registry.Get(string(action)); !ok {
			return fmt.Errorf("action %q is not in the action registry", action)
		}
		s.dispatcher.Register(action, h)
	}
	return s.dispatcher.MarkReady()
}

func (s *Server) handleLine(ctx context.Context, line string) *models.Response {
	cmd, err := s.codec.Decode(line)
	if err != nil {
		s.logger.Warn("Rejected malformed command", map[string]interface{}{"error": err.Error()})
		return s.dispatcher.Reject(err)
	}
	return s.dispatcher.Dispatch(ctx, cmd)
}

func (s *Server) send(resp *models.Response) error {
	return s.writer.WriteLine(s.codec.Encode(resp))
}

// fatal reports stdErr on a best-effort basis and returns the fatal exit code.
func (s *Server) fatal(stdErr *errors.StandardError) int {
	s.dispatcher.Fail()
	s.logger.Error("Fatal worker failure", map[string]interface{}{
		"errorCode": string(stdErr.Code),
		"message":   stdErr.Message,
	})
	_ = s.send(models.NewErrorResponse(0, string(stdErr.Code), stdErr.Message, stdErr.Diagnostic))
	return ExitFatal
}

type readResult struct {
	line string
	err  error
}

// nextLine waits for the next read result. A line that is already read wins
// over cancellation so it still gets its response.
func nextLine(ctx context.Context, results <-chan readResult) (readResult, bool) {
	select {
	case r := <-results:
		return r, true
	default:
	}
	select {
	case r := <-results:
		return r, true
	case <-ctx.Done():
		select {
		case r := <-results:
			return r, true
		default:
			return readResult{}, false
		}
	}
}

// readLines reads one line per request so nothing is consumed past the
// command that ends the loop.
func (s *Server) readLines(requests <-chan struct{}, results chan<- readResult) {
	for range requests {
		line, err := s.reader.ReadLine()
		results <- readResult{line: line, err: err}
		if err != nil {
			return
		}
	}
}
