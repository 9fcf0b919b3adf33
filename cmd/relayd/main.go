package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/joho/godotenv"
	"github.com/joripage/tradehook/config"
	"github.com/joripage/tradehook/pkg/logging"
	"github.com/joripage/tradehook/pkg/relay"
	fixgateway "github.com/joripage/tradehook/pkg/relay/fix"
	"github.com/joripage/tradehook/pkg/webhookapi"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "./config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		zap.S().Fatalf("load config: %v", err)
	}

	log := logging.NewLogger(logging.ParseLevel(cfg.LogLevel))
	defer log.Sync() // nolint

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	gw := fixgateway.NewClient(fixgateway.ClientConfig{
		FIXLogPath: cfg.Gateway.FIXLogPath,
	}, log)

	svc := relay.NewService(gw, relay.Config{
		Endpoint: relay.Endpoint{
			Host:     cfg.Gateway.Host,
			Port:     cfg.Gateway.Port,
			ClientID: cfg.Gateway.ClientID,
		},
		ConnectTimeout: cfg.Gateway.ConnectTimeout(),
		AckTimeout:     cfg.Gateway.AckTimeout(),
	}, log)

	if cfg.Gateway.EagerConnect {
		// The session manager makes single attempts; startup retry lives here.
		policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
		if err := backoff.Retry(func() error { return svc.Connect(ctx) }, policy); err != nil {
			log.Warn(ctx, "eager connect failed, continuing with lazy connect", zap.Error(err))
		}
	}

	server := webhookapi.NewServer(webhookapi.Config{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		WebhookSecret: cfg.WebhookSecret,
	}, svc, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigs:
		log.Info(ctx, "shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error(ctx, "http server stopped", zap.Error(err))
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)

	svc.Disconnect()
	log.Info(context.Background(), "exited cleanly")
}
