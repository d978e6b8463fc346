// Command trader runs the squeeze-breakout trading bot: it polls klines,
// computes the indicator pipeline, evaluates the signal rules and submits
// risk-gated market orders.
package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"squeezebot/config"
	"squeezebot/internal/engine"
	"squeezebot/internal/exchange"
	"squeezebot/internal/indicator"
	"squeezebot/internal/journal"
	"squeezebot/internal/logger"
	"squeezebot/internal/metrics"
	"squeezebot/internal/risk"
	"squeezebot/internal/signal"
	redisstore "squeezebot/internal/store/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.Init("trader", level)

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	met := metrics.New(prometheus.DefaultRegisterer)
	health := metrics.NewHealthStatus()
	srv := metrics.NewServer(cfg.MetricsAddr, health)
	srv.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Stop(shutdownCtx)
	}()

	var jnl journal.Journal
	switch cfg.JournalBackend {
	case "sqlite":
		jnl, err = journal.OpenSQLite(cfg.JournalDB)
	default:
		jnl, err = journal.OpenCSV(cfg.TradesFile)
	}
	if err != nil {
		log.Error("open journal", "backend", cfg.JournalBackend, "err", err)
		os.Exit(1)
	}
	defer jnl.Close()

	client := exchange.NewClient(cfg.BaseURL, cfg.APIKey, cfg.SecretKey)

	stream := exchange.NewTickerStream(cfg.StreamURL, cfg.Symbol, log)
	go stream.Run(ctx)

	var pub engine.DecisionPublisher
	if cfg.RedisAddr != "" {
		p, err := redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}, log)
		if err != nil {
			log.Warn("redis unavailable, decisions will not be published", "err", err)
		} else {
			pub = p
			defer p.Close()
		}
	}

	ctrl := engine.New(engine.Config{
		Symbol:                 cfg.Symbol,
		Interval:               cfg.Interval,
		Quantity:               cfg.Quantity,
		LookbackDays:           cfg.LookbackDays,
		AnalysisInterval:       cfg.AnalysisInterval(),
		RetryDelay:             cfg.RetryDelay(),
		MaxConsecutiveFailures: cfg.MaxConsecutiveFailures,
		Params: indicator.Params{
			VolatilityWindow: cfg.VolatilityWindow,
			BBWindow:         cfg.BBWindow,
			BBStdMult:        cfg.BBStd,
			KCWindow:         cfg.KeltnerWindow,
			KCMult:           cfg.KeltnerATRMult,
			ADXPeriod:        cfg.ADXPeriod,
			RSIPeriod:        cfg.RSIPeriod,
			MACDFast:         cfg.MACDFast,
			MACDSlow:         cfg.MACDSlow,
			MACDSignal:       cfg.MACDSignal,
		},
		Thresholds: signal.Thresholds{ADX: cfg.ADXThreshold},
	}, client, stream, pub, risk.NewGate(cfg.MaxTradesPerDay), jnl, met, health, log)

	if err := ctrl.Run(ctx); err != nil {
		log.Error("trader stopped", "err", err)
		os.Exit(1)
	}
	log.Info("trader shut down cleanly")
}
