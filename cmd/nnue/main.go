// Package main provides the nnue kernel backend CLI.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/born-ml/nnue/backend/cpu"
	"github.com/born-ml/nnue/backend/webgpu"
	"github.com/born-ml/nnue/ops"
)

const version = "v0.1.0-dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stdout)
		return 0
	}

	var err error
	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "nnue %s\n", version)
	case "kernels":
		err = kernelsCmd(args[1:], stdout)
	case "selfcheck":
		err = selfcheckCmd(args[1:], stdout, stderr)
	case "help", "-h", "-help", "--help":
		usage(stdout)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "nnue %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "nnue - sparse-input network training kernels")
	fmt.Fprintf(w, "Version: %s\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  version      Show version")
	fmt.Fprintln(w, "  kernels      Resolve the kernel catalog on a backend")
	fmt.Fprintln(w, "  selfcheck    Run the numeric self checks on a backend")
}

// openDevice opens the named backend.
func openDevice(backend string) (ops.Device, error) {
	switch backend {
	case "cpu":
		return cpu.New(cpu.Config{}), nil
	case "webgpu":
		return webgpu.Open()
	default:
		return nil, fmt.Errorf("unknown backend %q (want cpu or webgpu)", backend)
	}
}

func kernelsCmd(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("kernels", flag.ContinueOnError)
	backend := fs.String("backend", "cpu", "compute backend: cpu or webgpu")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dev, err := openDevice(*backend)
	if err != nil {
		return err
	}
	defer dev.Release()

	fmt.Fprintf(stdout, "device: %s\n", dev.Name())
	missing := 0
	for _, name := range ops.Kernels() {
		if _, err := dev.Function(name); err != nil {
			missing++
			fmt.Fprintf(stdout, "  %-28s MISSING (%v)\n", name, err)
			continue
		}
		fmt.Fprintf(stdout, "  %-28s ok\n", name)
	}
	if missing > 0 {
		return fmt.Errorf("%d kernels unresolved", missing)
	}
	return nil
}

func selfcheckCmd(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("selfcheck", flag.ContinueOnError)
	backend := fs.String("backend", "cpu", "compute backend: cpu or webgpu")
	configPath := fs.String("config", "", "YAML file with ops.Config fields")
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus metrics on this address while checking")
	verbose := fs.Bool("v", false, "log every dispatch to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var cfg ops.Config
	if *configPath != "" {
		var err error
		if cfg, err = ops.LoadConfig(*configPath); err != nil {
			return err
		}
	}
	if *verbose {
		cfg.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	if *metricsAddr != "" {
		srv := &http.Server{Addr: *metricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Fprintf(stderr, "metrics server: %v\n", err)
			}
		}()
		defer srv.Close()
	}

	dev, err := openDevice(*backend)
	if err != nil {
		return err
	}
	h, err := ops.New(dev, cfg)
	if err != nil {
		dev.Release()
		return err
	}
	defer h.Close()

	fmt.Fprintf(stdout, "device: %s\n", dev.Name())
	failed := 0
	for _, c := range selfchecks {
		if err := c.run(h); err != nil {
			failed++
			fmt.Fprintf(stdout, "FAIL %-26s %v\n", c.name, err)
			continue
		}
		fmt.Fprintf(stdout, "ok   %s\n", c.name)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(selfchecks))
	}
	return nil
}
