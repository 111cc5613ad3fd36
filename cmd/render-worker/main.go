// cmd/render-worker/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"render-worker/internal/common/config"
	"render-worker/internal/common/errors"
	"render-worker/internal/common/logger"
	"render-worker/internal/common/observability"
	"render-worker/internal/dispatcher"
	"render-worker/internal/models"
	"render-worker/internal/server"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("render-worker", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return server.ExitOK
		}
		reportFatal(err)
		return server.ExitFatal
	}

	cfg, err := config.LoadWithFlags(fs)
	if err != nil {
		reportFatal(fmt.Errorf("config load failed: %w", err))
		return server.ExitFatal
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	workerID := uuid.NewString()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"workerId": workerID,
		"service":  cfg.App.Name,
		"version":  cfg.App.Version,
	})
	log.Info("Starting render worker", map[string]interface{}{
		"environment":      cfg.App.Environment,
		"transformCommand": cfg.Engine.TransformCommand,
		"renderCommand":    cfg.Engine.RenderCommand,
		"fopHome":          cfg.Engine.FopHome,
	})

	obs := observability.New(cfg.App.Name, observability.Options{
		TracingEnabled: cfg.Tracing.Enabled,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	defer obs.Shutdown()

	srv, err := server.New(server.Options{
		Config:        cfg,
		Input:         os.Stdin,
		Output:        os.Stdout,
		Logger:        log,
		Observability: obs,
	})
	if err != nil {
		log.Error("Server setup failed", map[string]interface{}{"error": err.Error()})
		reportFatal(err)
		return server.ExitFatal
	}

	if cfg.Metrics.Enabled {
		httpSrv := startHealthServer(cfg.Metrics.Address, srv, zapLog)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(ctx)
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := srv.Run(ctx)
	log.Info("Render worker stopped", map[string]interface{}{"exitCode": code})
	return code
}

func startHealthServer(addr string, srv *server.Server, zapLog *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", srv.State())
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		state := srv.State()
		code := http.StatusOK
		if state != dispatcher.StateReady && state != dispatcher.StateHandling {
			code = http.StatusServiceUnavailable
		}
		writeStatus(w, code, string(state), state)
	})
	mux.Handle("/metrics", promhttp.Handler())

	httpSrv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()
	return httpSrv
}

func writeStatus(w http.ResponseWriter, code int, status string, state dispatcher.State) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"state":  string(state),
		"time":   time.Now().Format(time.RFC3339),
	})
}

// reportFatal writes a best-effort error response for failures that happen
// before the server exists.
func reportFatal(err error) {
	stdErr := errors.NewInitializationFailedError(err)
	resp := models.NewErrorResponse(0, string(stdErr.Code), stdErr.Message, stdErr.Diagnostic)
	data, _ := json.Marshal(resp)
	fmt.Fprintf(os.Stdout, "%s%s\n", config.DefaultResponsePrefix, data)
	fmt.Fprintln(os.Stderr, stdErr.Message)
}
