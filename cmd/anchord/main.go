// Command anchord is the anchor-side daemon: it owns the serial control
// channel to a DW1000 UWB carrier board (internal/serialmux), folds the
// board's line-oriented diagnostics and attribute readbacks into the state
// its RPC handlers report, and answers the anchor-side RPC function table
// from spec §6. It publishes nothing on the RF event topics. Flags and exit-code semantics mirror cmd/rtls-server (itself
// grounded on the teacher's cmd/lidar), since both daemons share §6's
// CLI contract.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/rtls/internal/config"
	"github.com/banshee-data/rtls/internal/eui64"
	"github.com/banshee-data/rtls/internal/monitoring"
	"github.com/banshee-data/rtls/internal/mqttbus"
	"github.com/banshee-data/rtls/internal/rpc"
	"github.com/banshee-data/rtls/internal/serialmux"
)

var (
	loggingPath = flag.String("L", "", "path to a logging configuration YAML file (optional)")
	configPath  = flag.String("c", "anchor.conf", "path to the anchor configuration YAML file")
	httpAddr    = flag.String("http", ":8081", "admin/debug HTTP listen address")
)

func main() {
	flag.Parse()

	if *loggingPath != "" {
		if err := configureLogging(*loggingPath); err != nil {
			log.Printf("anchord: %v (continuing with default logging)", err)
		}
	}

	if err := run(); err != nil {
		log.Printf("anchord: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	self, err := cfg.GetAnchorEUI64()
	if err != nil {
		return fmt.Errorf("anchor identity: %w", err)
	}
	name := cfg.GetAnchorName()

	mux, err := newSerialMux(cfg)
	if err != nil {
		return fmt.Errorf("open serial channel: %w", err)
	}
	defer mux.Close()

	if err := mux.Initialize(); err != nil {
		return fmt.Errorf("initialize dw1000: %w", err)
	}

	bus, err := mqttbus.Dial(mqttbus.DialOptions{
		Host:     cfg.GetAnchorMQTTHost(),
		Port:     cfg.GetAnchorMQTTPort(),
		ClientID: self.String(),
	})
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer bus.Close()

	rpcClient, err := rpc.NewClient(bus, self.String())
	if err != nil {
		return fmt.Errorf("create rpc client: %w", err)
	}
	defer rpcClient.Close()

	a := &anchorDaemon{
		self:      self,
		name:      name,
		mux:       mux,
		registry:  make(map[eui64.Addr]bool),
	}
	a.registerHandlers(rpcClient)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lineID, lines := mux.Subscribe()
	defer mux.Unsubscribe(lineID)
	go a.consumeLines(ctx, lines)

	monitorDone := make(chan error, 1)
	go func() { monitorDone <- mux.Monitor(ctx) }()

	httpMux := http.NewServeMux()
	mux.AttachAdminRoutes(httpMux)
	httpSrv := &http.Server{Addr: *httpAddr, Handler: httpMux}
	go func() {
		monitoring.Logf("anchord: admin HTTP listening on %s", *httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			monitoring.Logf("anchord: admin HTTP server: %v", err)
		}
	}()

	monitoring.Logf("anchord: %s (%s) ready", name, self)

	select {
	case <-ctx.Done():
	case err := <-monitorDone:
		if err != nil && err != context.Canceled {
			monitoring.Logf("anchord: serial monitor: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		_ = httpSrv.Close()
	}
	return nil
}

func newSerialMux(cfg *config.Config) (serialmux.SerialMuxInterface, error) {
	path := cfg.GetAnchorSerialPort()
	if path == "" {
		monitoring.Logf("anchord: no anchor.serial_port configured, running with serial disabled")
		return serialmux.NewDisabledSerialMux(), nil
	}
	return serialmux.NewRealSerialMux(path, serialmux.PortOptions{})
}

// consumeLines feeds every line read from the serial channel through the
// serialmux event classifier, which updates the package-level
// CurrentState/LastDiag state the RPC handlers answer queries from.
func (a *anchorDaemon) consumeLines(ctx context.Context, lines <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := serialmux.HandleEvent(line); err != nil {
				monitoring.Logf("anchord: handle serial line %q: %v", line, err)
			}
		}
	}
}
