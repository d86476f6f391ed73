// Package main provides the chat server binary: one process serving rooms
// to Telnet and WebSocket clients.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/cory-johannsen/chatrooms/internal/chat/command"
	"github.com/cory-johannsen/chatrooms/internal/chat/room"
	"github.com/cory-johannsen/chatrooms/internal/chat/session"
	"github.com/cory-johannsen/chatrooms/internal/chatserver"
	"github.com/cory-johannsen/chatrooms/internal/config"
	"github.com/cory-johannsen/chatrooms/internal/frontend/handlers"
	"github.com/cory-johannsen/chatrooms/internal/frontend/telnet"
	"github.com/cory-johannsen/chatrooms/internal/frontend/web"
	"github.com/cory-johannsen/chatrooms/internal/observability"
	"github.com/cory-johannsen/chatrooms/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/chatserver.yaml", "path to configuration file; empty uses defaults")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "chatserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting chat server",
		zap.Bool("telnet_enabled", cfg.Telnet.Enabled),
		zap.String("telnet_addr", cfg.Telnet.Addr()),
		zap.String("http_addr", cfg.HTTP.Addr()),
	)

	catalog := chatserver.DefaultCatalog()
	if cfg.Chat.CatalogPath != "" {
		catalog, err = chatserver.LoadCatalog(cfg.Chat.CatalogPath)
		if err != nil {
			logger.Fatal("loading message catalog", zap.String("path", cfg.Chat.CatalogPath), zap.Error(err))
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(reg)

	names := session.NewNameGenerator(cfg.Chat.NamePrefix, cfg.Chat.NameSpan, cfg.Chat.MaxNameAttempts, nil)
	coord := chatserver.New(
		session.NewRegistry(names, cfg.Chat.OutboxSize),
		room.NewRegistry(),
		catalog,
		metrics,
		logger,
	)

	lifecycle := server.NewLifecycle(logger)

	if cfg.Telnet.Enabled {
		chatHandler := handlers.NewChatHandler(coord, command.DefaultRegistry(), logger)
		acceptor := telnet.NewAcceptor(cfg.Telnet, chatHandler, logger)
		if err := lifecycle.Add("telnet", &server.FuncService{
			StartFn: acceptor.ListenAndServe,
			StopFn:  acceptor.Stop,
		}); err != nil {
			logger.Fatal("registering telnet service", zap.Error(err))
		}
	}

	httpServer := web.NewServer(cfg.HTTP, cfg.Metrics, coord, reg, logger)
	if err := lifecycle.Add("http", httpServer); err != nil {
		logger.Fatal("registering http service", zap.Error(err))
	}

	logger.Info("chat server initialized", zap.Duration("startup", time.Since(start)))

	if err := lifecycle.Run(context.Background()); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
