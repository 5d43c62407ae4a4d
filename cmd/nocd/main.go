// Command nocd runs a NoC adapter: it services the receive multiplexer,
// exports statistics, and can bridge one endpoint to standard I/O.
//
// Usage:
//
//	nocd [options]
//
// Options:
//
//	-config path   YAML configuration file (default: built-in defaults)
//	-v             Enable verbose (debug) logging
//	-json          Use JSON log format
//	-sim           Use the simulated adapter regardless of the configuration
//	-cat N         Copy data received on endpoint N to standard output
//	-send N        Send each line of standard input as a packet on endpoint N
//	-metrics addr  Serve Prometheus metrics on addr (overrides the config)
//
// With the default configuration nocd runs a four-endpoint simulated adapter.
// For example, loop endpoint 0 back to endpoint 1 with a configuration file
// containing
//
//	window:
//	  loopback: {0: 1}
//
// and run "nocd -config loop.yaml -send 0 -cat 1" to echo standard input.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/ardnew/softnoc/config"
	"github.com/ardnew/softnoc/hal"
	"github.com/ardnew/softnoc/hal/fifo"
	"github.com/ardnew/softnoc/hal/mmio"
	"github.com/ardnew/softnoc/metrics"
	"github.com/ardnew/softnoc/noc"
	"github.com/ardnew/softnoc/pkg"
)

// component identifies this executable for structured logging.
const component = pkg.ComponentAdapter

// shutdownTimeout bounds the metrics server shutdown.
const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	verbose := flag.Bool("v", false, "enable verbose (debug) logging")
	jsonLog := flag.Bool("json", false, "use JSON log format")
	sim := flag.Bool("sim", false, "use the simulated adapter")
	catEP := flag.Int("cat", -1, "copy data received on this endpoint to stdout")
	sendEP := flag.Int("send", -1, "send stdin lines as packets on this endpoint")
	metricsAddr := flag.String("metrics", "", "serve Prometheus metrics on this address")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			pkg.LogError(component, "failed to load configuration", "error", err)
			os.Exit(1)
		}
	}

	// Set up logging; flags override the configuration
	if err := cfg.Log.Apply(); err != nil {
		pkg.LogError(component, "invalid log configuration", "error", err)
		os.Exit(1)
	}
	if *verbose {
		pkg.SetLogLevel(slog.LevelDebug)
	}
	if *jsonLog {
		pkg.SetLogFormat(pkg.LogFormatJSON)
	}

	if *sim {
		cfg.Window.Path = ""
	}
	if *metricsAddr != "" {
		cfg.Metrics.Listen = *metricsAddr
	}

	if err := run(cfg, *catEP, *sendEP); err != nil {
		pkg.LogError(component, "adapter failed", "error", err)
		os.Exit(1)
	}
}

// openWindow opens the register window selected by the configuration. The
// returned closer releases it.
func openWindow(w config.Window) (hal.Window, io.Closer, error) {
	if w.Simulated() {
		hw := fifo.New(w.SimulatedEndpoints)
		for src, dst := range w.Loopback {
			hw.Route(src, dst)
		}
		pkg.LogInfo(component, "using simulated adapter",
			"endpoints", w.SimulatedEndpoints, "routes", len(w.Loopback))
		return hw, hw, nil
	}

	if w.UIO != "" {
		dev, err := mmio.OpenDevice(w.MMIO(), w.UIO)
		if err != nil {
			return nil, nil, err
		}
		return dev, dev, nil
	}

	win, err := mmio.Open(w.MMIO())
	if err != nil {
		return nil, nil, err
	}
	pkg.LogWarn(component, "no interrupt source configured, polling", "path", w.Path)
	return win, win, nil
}

func run(cfg config.File, catEP, sendEP int) (err error) {
	win, closer, err := openWindow(cfg.Window)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, closer.Close())
	}()

	adapter, err := noc.New(win, cfg.Adapter)
	if err != nil {
		return err
	}

	if cfg.Adapter.Mode == noc.ModeClassified {
		// Queue classified payload traffic for the stdio pumps
		h := adapter.EndpointHandler()
		for class := 0; class < noc.ClassControl; class++ {
			if err := adapter.Register(class, h); err != nil {
				return err
			}
		}
	}

	// Handle signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			pkg.LogInfo(component, "shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	var cat *noc.File
	if catEP >= 0 {
		if cat, err = adapter.OpenFile(gctx, catEP); err != nil {
			return err
		}
	}

	if err := adapter.Start(gctx); err != nil {
		return err
	}
	g.Go(func() error {
		<-gctx.Done()
		return adapter.Shutdown()
	})

	if cfg.Metrics.Listen != "" {
		serveMetrics(gctx, g, adapter, cfg.Metrics)
	}

	if cat != nil {
		g.Go(func() error {
			return pumpOut(cat, os.Stdout)
		})
	}

	if sendEP >= 0 {
		// Reads from stdin cannot be cancelled, so this pump stays outside
		// the group and simply dies with the process.
		go func() {
			if err := pumpIn(adapter, sendEP, os.Stdin); err != nil {
				pkg.LogError(component, "send pump failed", "endpoint", sendEP, "error", err)
				cancel()
			}
		}()
	}

	pkg.LogInfo(component, "adapter running",
		"endpoints", adapter.NumEndpoints(), "mode", cfg.Adapter.Mode)

	return g.Wait()
}

// serveMetrics runs the Prometheus endpoint until ctx is done.
func serveMetrics(ctx context.Context, g *errgroup.Group, adapter *noc.Adapter, m config.Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.NewCollector(adapter, metrics.DefaultNamespace),
	)

	mux := http.NewServeMux()
	mux.Handle(m.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              m.Listen,
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	g.Go(func() error {
		pkg.LogInfo(pkg.ComponentMetrics, "serving metrics", "addr", m.Listen, "path", m.Path)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
}

// pumpOut copies received data to w until the endpoint is closed or its
// context ends.
func pumpOut(f *noc.File, w io.Writer) error {
	_, err := io.Copy(w, f)
	if errors.Is(err, context.Canceled) || errors.Is(err, pkg.ErrClosed) || errors.Is(err, pkg.ErrNotOpen) {
		return nil
	}
	return err
}

// pumpIn sends each line read from r as one packet on endpoint ep.
func pumpIn(adapter *noc.Adapter, ep int, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := append(append([]byte(nil), scanner.Bytes()...), '\n')
		if _, err := adapter.Write(ep, line); err != nil {
			return err
		}
	}
	return scanner.Err()
}
