// cmd/tools/render-client/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"render-worker/internal/common/logger"
	"render-worker/pkg/client"
	"render-worker/pkg/registry"
)

func main() {
	generateCmd := pflag.NewFlagSet("generate", pflag.ExitOnError)
	pingCmd := pflag.NewFlagSet("ping", pflag.ExitOnError)
	actionsCmd := pflag.NewFlagSet("actions", pflag.ExitOnError)

	// Generate command flags
	source := generateCmd.String("source", "", "Source XML document")
	stylesheet := generateCmd.String("stylesheet", "", "XSL stylesheet")
	output := generateCmd.String("output", "", "Output PDF path")
	workDir := generateCmd.String("workdir", "", "Base directory for relative stylesheet imports")

	workers := map[*pflag.FlagSet]*workerFlags{
		generateCmd: addWorkerFlags(generateCmd),
		pingCmd:     addWorkerFlags(pingCmd),
	}

	// Actions command flags
	registryPath := actionsCmd.String("path", "", "Action registry file (defaults to the embedded registry)")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		generateCmd.Parse(os.Args[2:])
		if *source == "" || *stylesheet == "" || *output == "" {
			fmt.Fprintln(os.Stderr, "Error: source, stylesheet, and output are required for generate.")
			generateCmd.Usage()
			os.Exit(1)
		}
		os.Exit(withWorker(workers[generateCmd], func(ctx context.Context, c *client.Client) error {
			resp, err := c.Generate(ctx, client.GenerateRequest{
				SourcePath:       *source,
				StylesheetPath:   *stylesheet,
				OutputPath:       *output,
				WorkingDirectory: *workDir,
			})
			if err != nil {
				if resp != nil && resp.Diagnostic != "" {
					fmt.Fprintln(os.Stderr, resp.Diagnostic)
				}
				return err
			}
			fmt.Printf("%s (%s, %d bytes)\n", resp.Message, resp.OutputPath, len(resp.Payload))
			return nil
		}))

	case "ping":
		pingCmd.Parse(os.Args[2:])
		os.Exit(withWorker(workers[pingCmd], func(ctx context.Context, c *client.Client) error {
			start := time.Now()
			if err := c.Ping(ctx); err != nil {
				return err
			}
			fmt.Printf("Server is alive (%s)\n", time.Since(start).Round(time.Millisecond))
			return nil
		}))

	case "actions":
		actionsCmd.Parse(os.Args[2:])
		if err := listActions(*registryPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading registry: %v\n", err)
			os.Exit(1)
		}

	default:
		help()
		os.Exit(1)
	}
}

type workerFlags struct {
	binary  *string
	args    *[]string
	timeout *time.Duration
	verbose *bool
}

func addWorkerFlags(fs *pflag.FlagSet) *workerFlags {
	return &workerFlags{
		binary:  fs.String("worker", "render-worker", "Render worker binary"),
		args:    fs.StringSlice("worker-arg", nil, "Extra argument passed to the worker (repeatable)"),
		timeout: fs.Duration("timeout", 2*time.Minute, "Overall deadline"),
		verbose: fs.BoolP("verbose", "v", false, "Log client activity to stderr"),
	}
}

// withWorker spawns a worker, runs fn against it and shuts it down again.
func withWorker(wf *workerFlags, fn func(ctx context.Context, c *client.Client) error) int {
	log := logger.NewNoOpLogger()
	if *wf.verbose {
		log = logger.NewStructured("debug", "console")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *wf.timeout)
	defer cancel()

	c, err := client.Start(ctx, *wf.binary, *wf.args, client.Options{Logger: log})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting worker: %v\n", err)
		return 1
	}

	code := 0
	if err := fn(ctx, c); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		code = 1
	}
	if err := c.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error stopping worker: %v\n", err)
		_ = c.Close()
		return 1
	}
	return code
}

func listActions(path string) error {
	var (
		reg *registry.ActionRegistry
		err error
	)
	if path == "" {
		reg, err = registry.Default()
	} else {
		reg, err = registry.LoadRegistry(path)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Action registry v%s (%d actions)\n", reg.Version, len(reg.Actions))
	for _, id := range reg.IDs() {
		a, _ := reg.Get(id)
		fmt.Printf("  %-10s %s\n", a.ID, a.Description)
		if len(a.RequiredFields) > 0 {
			fmt.Printf("             required: %s\n", strings.Join(a.RequiredFields, ", "))
		}
		if len(a.ErrorCodes) > 0 {
			fmt.Printf("             errors:   %s\n", strings.Join(a.ErrorCodes, ", "))
		}
	}
	return nil
}

func help() {
	fmt.Println("Usage: render-client <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  generate   Render one document through a spawned worker")
	fmt.Println("  ping       Check that the worker starts and answers")
	fmt.Println("  actions    List the actions the worker understands")
}
