package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/arimoto/sipcore/internal/adminapi"
	"github.com/arimoto/sipcore/internal/audit"
	"github.com/arimoto/sipcore/internal/banner"
	"github.com/arimoto/sipcore/internal/clock"
	"github.com/arimoto/sipcore/internal/config"
	"github.com/arimoto/sipcore/internal/dialogstore"
	"github.com/arimoto/sipcore/internal/engine"
	"github.com/arimoto/sipcore/internal/logger"
	"github.com/arimoto/sipcore/internal/registry"
	"github.com/arimoto/sipcore/internal/timer"
	"github.com/arimoto/sipcore/internal/transport"
)

const adminAddr = ":8080"

func main() {
	cfg := config.Load()
	logger.InitLogger(os.Stdout)
	logger.SetLevel(cfg.LogLevel)

	banner.Print("sipcore signaling engine", []banner.ConfigLine{
		{Label: "bind", Value: cfg.BindAddr},
		{Label: "advertise", Value: cfg.AdvertiseAddr},
		{Label: "liveness timeout", Value: fmt.Sprintf("%ds", cfg.LivenessTimeoutSec)},
		{Label: "reaper tick", Value: fmt.Sprintf("%ds", cfg.ReaperTickSec)},
		{Label: "ring delay", Value: fmt.Sprintf("%dms", cfg.RingDelayMS)},
		{Label: "audit bus capacity", Value: strconv.Itoa(cfg.AuditBusCapacity)},
		{Label: "admin api", Value: "http://0.0.0.0" + adminAddr},
	})

	clk := clock.Real{}
	bus := audit.New(cfg.AuditBusCapacity)
	reg := registry.New(bus, clk)
	dialogs := dialogstore.New(bus, clk)
	timers := timer.New(clk)
	reaper := registry.NewReaper(reg, clk, time.Duration(cfg.ReaperTickSec)*time.Second, cfg.LivenessTimeoutSec)

	var udpServer *transport.Server
	eng := engine.New(reg, dialogs, bus, clk, timers, engine.Config{
		BindAddr:  cfg.AdvertiseAddr,
		RingDelay: time.Duration(cfg.RingDelayMS) * time.Millisecond,
	}, func(d engine.Datagram) {
		if udpServer != nil {
			udpServer.Deliver(d)
		}
	})

	var err error
	udpServer, err = transport.NewServer(cfg.BindAddr, eng, bus, clk, cfg.MaxDatagramBytes)
	if err != nil {
		slog.Error("failed to bind UDP socket", "addr", cfg.BindAddr, "error", err)
		os.Exit(1)
	}

	admin := adminapi.NewServer(adminAddr, reg, dialogs, bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go reaper.Run(ctx)
	go func() {
		if err := admin.Run(ctx); err != nil {
			slog.Error("admin api stopped", "error", err)
		}
	}()
	go func() {
		if err := udpServer.Run(ctx); err != nil {
			slog.Error("UDP transport stopped", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)
	cancel()
	time.Sleep(200 * time.Millisecond)
}
