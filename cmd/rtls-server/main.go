// Command rtls-server is the location-solving daemon: it consumes RF
// events published by every anchor's cmd/anchord over MQTT, runs the
// ranging/TDOA pipeline, and republishes solved coordinates plus a
// gRPC live stream for debug clients. Flags and exit-code semantics
// follow spec §6, the same shape the teacher's cmd/lidar uses for its
// own UDP/HTTP daemon (flag.Parse, signal.NotifyContext, a WaitGroup
// per goroutine, graceful http.Server.Shutdown).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/banshee-data/rtls/internal/admin"
	"github.com/banshee-data/rtls/internal/config"
	"github.com/banshee-data/rtls/internal/livestream"
	"github.com/banshee-data/rtls/internal/monitoring"
	"github.com/banshee-data/rtls/internal/mqttbus"
	"github.com/banshee-data/rtls/internal/ranging"
	"github.com/banshee-data/rtls/internal/store"
	"github.com/banshee-data/rtls/internal/timeutil"
)

var (
	loggingPath = flag.String("L", "", "path to a logging configuration YAML file (optional)")
	configPath  = flag.String("c", "rtls.conf", "path to the server configuration YAML file")
	httpAddr    = flag.String("http", ":8080", "admin/debug HTTP listen address")
	grpcAddr    = flag.String("grpc", ":8090", "livestream gRPC listen address")
	dbPath      = flag.String("db", "rtls.db", "path to the SQLite store database")
)

func main() {
	flag.Parse()

	if *loggingPath != "" {
		if err := configureLogging(*loggingPath); err != nil {
			log.Printf("rtls-server: %v (continuing with default logging)", err)
		}
	}

	if err := run(); err != nil {
		log.Printf("rtls-server: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	bus, err := mqttbus.Dial(mqttbus.DialOptions{
		Host:     cfg.GetRTLSMQTTHost(),
		Port:     cfg.GetRTLSMQTTPort(),
		ClientID: cfg.GetMQRPCID(),
	})
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer bus.Close()

	db, err := store.Open(*dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	domain := cfg.GetRTLSMQTTDomain()
	srv := ranging.NewServer(domain, cfg.RangingConfig(), bus, timeutil.RealClock{})

	anchors, err := cfg.AnchorHandles()
	if err != nil {
		return fmt.Errorf("build anchor handles: %w", err)
	}
	for _, a := range anchors {
		srv.AddAnchor(a)
		if err := db.UpsertAnchor(a.EUI64, a.Name, a.Coord); err != nil {
			monitoring.Logf("rtls-server: persist anchor %s: %v", a.Name, err)
		}
	}

	tags, err := cfg.TagAddrs()
	if err != nil {
		return fmt.Errorf("validate tag list: %w", err)
	}
	for _, t := range tags {
		monitoring.Logf("rtls-server: configured tag %s (%s)", t.Name, t.EUI64)
	}

	if err := srv.Start(); err != nil {
		return fmt.Errorf("start ranging server: %w", err)
	}
	defer srv.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := persistCoordinates(ctx, bus, domain, db); err != nil {
		return fmt.Errorf("subscribe coordinate persister: %w", err)
	}

	ls := livestream.NewServer(domain, bus, srv)
	if err := ls.Start(); err != nil {
		return fmt.Errorf("start livestream: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		runAdminServer(ctx, admin.Surface{Server: srv, DB: db})
	}()
	go func() {
		defer wg.Done()
		runGRPCServer(ctx, ls)
	}()

	wg.Wait()
	monitoring.Logf("rtls-server: shutdown complete")
	return nil
}

// persistCoordinates subscribes to the domain's solved-coordinate topic
// and records every update in the store, independent of the MQTT
// publish path and the gRPC livestream fan-out.
func persistCoordinates(ctx context.Context, bus mqttbus.Bus, domain string, db *store.DB) error {
	topic := mqttbus.CoordTopic(domain, "+")
	return bus.Subscribe(topic, func(_ string, payload []byte) {
		msg, err := mqttbus.DecodeCoordMessage(payload)
		if err != nil {
			monitoring.Logf("rtls-server: decode coord message: %v", err)
			return
		}
		coord := pointOf(msg.Coord)
		filtered := pointOf(msg.Filtered)
		if err := db.RecordCoordinate(msg.Tag, time.Now().UnixNano(), coord, filtered); err != nil {
			monitoring.Logf("rtls-server: record coordinate for %s: %v", msg.Tag, err)
		}
	})
}

func runAdminServer(ctx context.Context, surface admin.Surface) {
	mux := http.NewServeMux()
	if err := surface.Attach(mux); err != nil {
		monitoring.Logf("rtls-server: attach admin routes: %v", err)
		return
	}
	httpSrv := &http.Server{Addr: *httpAddr, Handler: mux}

	go func() {
		monitoring.Logf("rtls-server: admin HTTP listening on %s", *httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			monitoring.Logf("rtls-server: admin HTTP server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		_ = httpSrv.Close()
	}
}

func runGRPCServer(ctx context.Context, ls *livestream.Server) {
	lis, err := net.Listen("tcp", *grpcAddr)
	if err != nil {
		monitoring.Logf("rtls-server: grpc listen on %s: %v", *grpcAddr, err)
		return
	}

	grpcSrv := grpc.NewServer()
	livestream.RegisterCoordinatesServer(grpcSrv, ls)

	go func() {
		monitoring.Logf("rtls-server: livestream gRPC listening on %s", *grpcAddr)
		if err := grpcSrv.Serve(lis); err != nil {
			monitoring.Logf("rtls-server: grpc serve: %v", err)
		}
	}()

	<-ctx.Done()
	grpcSrv.GracefulStop()
}
