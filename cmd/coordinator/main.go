// Command coordinator runs one shardkeeper instance: it connects to NATS,
// loads its configuration from an optional YAML file, and starts a
// Coordinator that claims a share of a stream's shards until terminated.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/shardkeeper"
	"github.com/arloliu/shardkeeper/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional, defaults are used otherwise)")
	natsURL := flag.String("nats-url", nats.DefaultURL, "NATS server URL")
	flag.Parse()

	logger := logging.NewSlogDefault()

	cfg := shardkeeper.DefaultConfig()
	if *configPath != "" {
		if err := loadConfig(*configPath, &cfg); err != nil {
			log.Fatalf("load config: %v", err)
		}
	}
	if v := os.Getenv("SHARDKEEPER_STREAM_NAME"); v != "" {
		cfg.StreamName = v
	}
	if v := os.Getenv("SHARDKEEPER_WORKER_COMMAND"); v != "" {
		cfg.WorkerCommand = v
	}

	nc, err := nats.Connect(*natsURL)
	if err != nil {
		log.Fatalf("connect to NATS: %v", err)
	}
	defer nc.Close()

	coord, err := shardkeeper.New(nc, cfg, shardkeeper.WithLogger(logger))
	if err != nil {
		log.Fatalf("create coordinator: %v", err)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), cfg.BootstrapTimeout)
	defer cancelStart()
	if err := coord.Start(startCtx); err != nil {
		log.Fatalf("start coordinator: %v", err)
	}

	logger.Info("coordinator running", "self_id", coord.SelfID(), "stream_name", cfg.StreamName)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	stopCtx, cancelStop := context.WithTimeout(context.Background(), 2*cfg.GraceTimeout)
	defer cancelStop()
	if err := coord.Stop(stopCtx); err != nil {
		log.Fatalf("stop coordinator: %v", err)
	}
}

func loadConfig(path string, cfg *shardkeeper.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}
