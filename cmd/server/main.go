package main

import (
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

	"gopkg.in/natefinch/lumberjack.v2"

	match "github.com/openvenue/matching-engine"
	"github.com/openvenue/matching-engine/config"
	"github.com/openvenue/matching-engine/server"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config, defaults apply when empty")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config failed", "error", err)
		os.Exit(1)
	}

	log := buildLogger(cfg)
	slog.SetDefault(log)
	match.SetLogger(log)

	// handlers fill in below, before the ring starts consuming
	var handler match.FanoutHandler[match.Event]

	pub, err := match.NewRingPublisher(cfg.Stream.RingSize, &handler)
	if err != nil {
		log.Error("create execution stream failed", "error", err)
		os.Exit(1)
	}

	eng := match.NewMatchingEngine(pub)
	srv := server.New(eng, log)
	handler = append(handler, srv)

	var kafkaSink *match.KafkaPublisher
	if cfg.Kafka.Enabled {
		kafkaSink = match.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		handler = append(handler, kafkaSink)
		log.Info("kafka sink enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pub.Start(ctx)

	httpSrv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("trading server listening", "addr", cfg.Server.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}

	eng.Shutdown()

	if err := pub.Shutdown(shutdownCtx); err != nil {
		log.Error("execution stream drain failed", "error", err)
	}
	if kafkaSink != nil {
		if err := kafkaSink.Close(); err != nil {
			log.Error("kafka close failed", "error", err)
		}
	}

	log.Info("stopped",
		"submissions", eng.Submissions(),
		"trades", eng.Trades())
}

func buildLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	if cfg.Logging.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.Logging.File,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
}
