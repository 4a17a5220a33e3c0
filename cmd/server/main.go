package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meetinsight/service/internal/api"
	"github.com/meetinsight/service/internal/config"
	"github.com/meetinsight/service/internal/extract"
	"github.com/meetinsight/service/internal/llm"
	"github.com/meetinsight/service/internal/prompt"
	"github.com/meetinsight/service/internal/session"
)

func main() {
	mode := flag.String("mode", envOr("SERVER_MODE", "http"), "serving mode: http or stdio")
	flag.Parse()

	bootLog := logrus.New()
	cfg, err := config.Load(bootLog)
	if err != nil {
		bootLog.WithError(err).Fatal("configuration load failed")
	}
	log := cfg.NewLogger()

	factory := llm.NewFactory(log)
	cfg.ConfigureFactory(factory)
	defer factory.Close()

	sessions := session.NewStore(cfg.SessionTTL, cfg.SessionMaxTurns)
	defer sessions.Close()

	service := extract.NewService(factory, prompt.NewBuilder(""), sessions, log)
	if cfg.DefaultModel != "" {
		if err := service.SwitchModel(cfg.DefaultModel); err != nil {
			log.WithField("model", cfg.DefaultModel).WithError(err).
				Warn("default model unavailable, keeping built-in default")
		}
	}

	switch *mode {
	case "stdio":
		runStdio(service, log)
	case "http":
		runHTTP(cfg, service, sessions, log)
	default:
		log.Fatalf("unknown mode %q (want http or stdio)", *mode)
	}
}

func runHTTP(cfg *config.Config, service *extract.Service, sessions *session.Store, log *logrus.Logger) {
	server := api.NewServer(service, sessions, log)
	router := server.Router(cfg.GinMode)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
