package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jstrand/loopdeck/internal/audio"
	"github.com/jstrand/loopdeck/internal/config"
	"github.com/jstrand/loopdeck/internal/session"
	"github.com/jstrand/loopdeck/internal/stream"
)

func main() {
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Println("loopdeck starting up...")

	source := newMicSource(cfg)
	events := newEventHub()

	coord := session.New(session.Config{
		SampleRate:               cfg.SampleRate,
		UndoLimit:                cfg.UndoStackLimit,
		MasterCapSeconds:         cfg.MasterCapSeconds,
		AllowWrapOverdub:         cfg.AllowWrapOverdub,
		AutoMuteMonitorOnOverdub: cfg.AutoMuteMonitorOnOverdub,
		LoopbackRMSThreshold:     cfg.LoopbackRMSThreshold,
	}, source, events)

	// Broadcaster: fan-out the master bus PCM frames to all remote monitors
	broadcaster := stream.NewBroadcaster()
	feed := audio.NewLiveFeed(cfg.SampleRate, 2, audio.DefaultFrameDuration)
	coord.SetMonitorMuteHook(feed.SetMuted)
	go feed.Run(ctx, func(frameSamples int) []float32 {
		return coord.MixDown(2, frameSamples)
	})
	go broadcaster.Run(ctx, feed.Frames())

	webrtcHandler := stream.NewWebRTCHandler(broadcaster, cfg.SampleRate, 2, cfg.OpusBitrate)

	probeCtx, probeCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := coord.RunLoopbackProbe(probeCtx, nil); err != nil {
		log.Printf("loopback probe failed: %v", err)
	} else {
		log.Printf("loopback probe: detected=%v", coord.LoopbackDetected())
	}
	probeCancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/command", commandHandler(coord))
	mux.HandleFunc("/api/status", statusHandler(coord))
	mux.HandleFunc("/api/export", exportHandler(coord))
	mux.HandleFunc("/api/events", eventsHandler(events))
	mux.Handle("/stream", stream.NewRawPCMHandler(broadcaster))
	mux.Handle("/offer", webrtcHandler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		log.Println("shutting down...")
		server.Close()
	}()

	log.Printf("loopdeck live on %s", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}
}
