// Command meshsim runs a multi-node simulated mesh from a scenario
// file, optionally exposing a live monitoring API, following the
// project's batch-runner conventions.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meshcore/internal/apiserver"
	"meshcore/internal/scenario"
)

func main() {
	if err := os.MkdirAll("logs", 0755); err != nil {
		log.Fatalf("failed to create logs directory: %v", err)
	}
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logFile, err := os.OpenFile("logs/sim_"+timestamp+".log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("failed to open log file: %v", err)
	}
	defer logFile.Close()

	multiWriter := io.MultiWriter(os.Stdout, logFile)
	logger := log.New(multiWriter, "", log.Ltime|log.Lmicroseconds)

	scPath := flag.String("scenario", "scenario.yaml", "YAML or JSON scenario description")
	apiAddr := flag.String("api-addr", "", "if set, serve the monitoring API (REST + /ws/events) on this address")
	flag.Parse()

	logger.Println("starting simulation...")
	sc, err := scenario.Load(*scPath)
	if err != nil {
		logger.Fatalf("scenario: %v", err)
	}

	runner, err := scenario.NewRunner(sc, logger)
	if err != nil {
		logger.Fatalf("scenario: %v", err)
	}

	if *apiAddr != "" {
		srv := apiserver.NewServer(runner, runner.Bus(), logger)
		go func() {
			logger.Printf("monitoring API listening on %s", *apiAddr)
			if err := srv.ListenAndServe(*apiAddr); err != nil {
				logger.Printf("apiserver: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	runner.Bus().MonitorResources(5*time.Second, ctx.Done())

	runErr := make(chan error, 1)
	go func() {
		runErr <- runner.Run(ctx)
	}()

	select {
	case err := <-runErr:
		if err != nil {
			logger.Printf("runner error: %v", err)
		}
	case s := <-sigCh:
		logger.Printf("received signal %v: shutting down early...", s)
		cancel()
		if err := <-runErr; err != nil {
			logger.Printf("runner stopped with error: %v", err)
		}
	}
	cancel()

	if err := runner.Flush(); err != nil {
		logger.Printf("flush-metrics: %v", err)
	} else {
		logger.Printf("stats written to %s", sc.MetricsFile)
	}
}
