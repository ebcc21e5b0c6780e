package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/rainbowmatrix/internal/bridge"
	"github.com/coreman2200/rainbowmatrix/internal/config"
	"github.com/coreman2200/rainbowmatrix/internal/preview"
	"github.com/coreman2200/rainbowmatrix/internal/transport"
)

func main() {
	var (
		listen         = flag.String("listen", transport.DefaultUDPAddr, "UDP listen address")
		device         = flag.String("device", transport.DefaultSerialDevice, "serial device path")
		port           = flag.String("port", "", "periph UART port name; wins over -device")
		previewAddr    = flag.String("preview", "", "HTTP address for the websocket preview (empty = off)")
		dropMismatched = flag.Bool("drop-mismatched", false, "discard datagrams that are not exactly one frame")
		configPath     = flag.String("config", "rainbow.yaml", "path to config file")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	cfg := config.Default()
	if c, err := config.Load(*configPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with flags")
		}
	} else {
		cfg = c
	}
	cfg.Log.Apply()

	// ---- Effective params: explicit flags win, then config, then flag defaults ----
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	eListen := firstNonZero(set["listen"], *listen, cfg.Bridge.Listen)
	eDevice := firstNonZero(set["device"], *device, cfg.Bridge.Serial.Device)
	ePort := firstNonZero(set["port"], *port, cfg.Bridge.Serial.Port)
	ePreview := firstNonZero(set["preview"], *previewAddr, cfg.Bridge.PreviewAddr)
	eDrop := *dropMismatched || (!set["drop-mismatched"] && cfg.Bridge.DropMismatched)

	serial, err := transport.OpenSerial(transport.SerialOpts{Device: eDevice, Port: ePort, Baud: cfg.Bridge.Serial.Baud})
	if err != nil {
		log.Fatal().Err(err).Str("device", eDevice).Msg("serial open failed")
	}
	defer serial.Close()

	sinks := []bridge.Sink{serial}
	var hub *preview.Hub
	if ePreview != "" {
		hub = preview.NewHub()
		sinks = append(sinks, hub)
	}

	b, err := bridge.Listen(eListen, sinks...)
	if err != nil {
		log.Fatal().Err(err).Msg("bridge listen failed")
	}
	defer b.Close()
	b.DropMismatched = eDrop

	var srv *http.Server
	if hub != nil {
		b.Reporter = hub
		srv = &http.Server{
			Addr:         ePreview,
			Handler:      hub.Handler(),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			log.Info().Str("addr", ePreview).Msg("preview server starting")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal().Err(err).Msg("preview server crashed")
			}
		}()
	}

	// ---- Graceful shutdown ----
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("listen", b.Addr().String()).
		Str("serial", serial.String()).
		Bool("drop_mismatched", eDrop).
		Msg("bridge running")
	err = b.Run(ctx)

	if srv != nil {
		_ = srv.Close()
		_ = hub.Close()
	}
	st := b.Stats()
	ev := log.Info()
	if err != nil && !errors.Is(err, context.Canceled) {
		ev = log.Error().Err(err)
	}
	ev.Uint64("received", st.Received).
		Uint64("forwarded", st.Forwarded).
		Uint64("mismatched", st.Mismatched).
		Uint64("dropped", st.Dropped).
		Msg("bridge stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		_ = b.Close()
		_ = serial.Close()
		os.Exit(1)
	}
}

func firstNonZero(explicit bool, flagVal, cfgVal string) string {
	if explicit || cfgVal == "" {
		return flagVal
	}
	return cfgVal
}
