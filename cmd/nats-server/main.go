// Command nats-server runs a standalone embedded NATS server with
// JetStream enabled, for manually exercising cmd/coordinator and
// cmd/worker without a separately installed broker. It picks a random
// free port and prints the connection URL to stdout.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	skptest "github.com/arloliu/shardkeeper/testing"
)

func main() {
	port, err := skptest.RandomTCPPort()
	if err != nil {
		log.Fatal(err)
	}

	storeDir, err := skptest.JetStreamTempDir()
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		_ = os.RemoveAll(storeDir) // Best effort cleanup
	}()

	// Create NATS server with JetStream
	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      port,
		JetStream: true,
		StoreDir:  storeDir,
		// Disable logging to reduce noise
		NoLog:  true,
		NoSigs: true, // We handle signals ourselves
	}

	srv, err := server.NewServer(opts)
	if err != nil {
		// Use os.Exit instead of log.Fatal to allow deferred cleanup
		_, _ = fmt.Fprintf(os.Stderr, "Failed to create NATS server: %v\n", err)
		os.Exit(1) //nolint:gocritic // OS will clean up temp directory on process exit
	}

	// Start server
	go srv.Start()

	// Wait for server to be ready
	if !srv.ReadyForConnections(10 * time.Second) {
		_, _ = fmt.Fprintln(os.Stderr, "NATS server not ready within timeout")
		os.Exit(1)
	}

	// Write connection info to stdout for parent process
	// Parent process parses this to get the connection URL
	fmt.Printf("NATS_URL=nats://%s:%d\n", opts.Host, opts.Port)
	fmt.Println("NATS_READY=true")
	_, _ = fmt.Fprintf(os.Stderr, "NATS server started on port %d (PID: %d)\n", port, os.Getpid())

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	_, _ = fmt.Fprintln(os.Stderr, "Shutting down NATS server...")

	// Graceful shutdown
	srv.Shutdown()
	srv.WaitForShutdown()

	_, _ = fmt.Fprintln(os.Stderr, "NATS server stopped")
}
