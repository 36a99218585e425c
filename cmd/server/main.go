package main

import (
	"context"
	"errors"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"presence-engine/internal/app"
	"presence-engine/internal/config"
	"presence-engine/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("app: %v", err)
	}
	defer func() {
		// Let in-flight async emits finish before the exporters shut down.
		time.Sleep(telemetry.ShutdownDrainDuration)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	s, err := a.GRPCServer()
	if err != nil {
		log.Fatalf("grpc: %v", err)
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("gRPC server listening on %s (store %s)", cfg.GRPCAddr, cfg.Dialect())
		return s.Serve(lis)
	})
	if every := cfg.SweepEvery(); every > 0 {
		g.Go(func() error {
			log.Printf("sweeper: settling expired countdowns every %s", every)
			return a.Sweeper.Run(gctx, every)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down gRPC server...")
		s.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("server: %v", err)
	}
	log.Println("gRPC server stopped")
}
