package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/rainbowmatrix/internal/clock"
	"github.com/coreman2200/rainbowmatrix/internal/config"
	"github.com/coreman2200/rainbowmatrix/internal/font"
	"github.com/coreman2200/rainbowmatrix/internal/glyph"
	"github.com/coreman2200/rainbowmatrix/internal/pattern"
	"github.com/coreman2200/rainbowmatrix/internal/render"
	"github.com/coreman2200/rainbowmatrix/internal/show"
	"github.com/coreman2200/rainbowmatrix/internal/textutil"
	"github.com/coreman2200/rainbowmatrix/internal/transport"
)

func main() {
	// ---- Flags (explicit flags beat config.yaml) ----
	var (
		mode       = flag.String("mode", "ticker", "what to show: char | ticker | clock | pattern | random | show")
		program    = flag.String("program", "", "show: YAML program; empty alternates the clock with the text")
		text       = flag.String("text", "", "text to show; read from stdin when empty")
		begin      = flag.Int("begin", 0, "first stdin line to show")
		end        = flag.Int("end", 0, "line after the last stdin line to show (0 = all)")
		fontPath   = flag.String("font", show.GreenFont, "font strip image (png, bmp, tiff); default picks by text length")
		firstChar  = flag.Int("first-char", show.GreenFirstChar, "character code of the first glyph in the strip")
		kind       = flag.String("transport", transport.KindUDP, "frame transport: udp | serial | strip")
		addr       = flag.String("addr", transport.DefaultUDPAddr, "udp destination host:port")
		device     = flag.String("device", transport.DefaultSerialDevice, "serial device path")
		delay      = flag.Duration("delay", 100*time.Millisecond, "delay between frames in char and ticker modes")
		discrete   = flag.Bool("discrete", false, "clock: show one character at a time instead of scrolling")
		count      = flag.Int("count", 1, "repetitions; 0 runs until interrupted")
		configPath = flag.String("config", "rainbow.yaml", "path to config file")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// ---- Config (optional) ----
	cfg := config.Default()
	if c, err := config.Load(*configPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with flags")
		}
	} else {
		cfg = c
	}
	cfg.Log.Apply()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	eFont := pick(set["font"], *fontPath, cfg.Font.Path)
	eFirst := cfg.Font.FirstChar
	if set["first-char"] {
		eFirst = *firstChar
	}
	eKind := pick(set["transport"], *kind, cfg.Transport.Kind)
	eAddr := pick(set["addr"], *addr, cfg.Transport.Addr)
	eDevice := pick(set["device"], *device, cfg.Transport.Serial.Device)
	eDelay := pick(set["delay"], *delay, cfg.Render.Delay)
	eDiscrete := *discrete || (!set["discrete"] && cfg.Render.Discrete)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prog := show.Single(show.Mode(*mode), *count)
	if *mode == "show" {
		prog = show.Combined("")
		if *program != "" {
			p, err := show.LoadFile(*program)
			if err != nil {
				log.Fatal().Err(err).Str("program", *program).Msg("program load failed")
			}
			prog = p
		}
	}
	if err := prog.Validate(); err != nil {
		log.Fatal().Err(err).Str("mode", *mode).Msg("nothing to play")
	}

	sender, err := transport.Open(transport.Opts{
		Kind: eKind,
		Addr: eAddr,
		Serial: transport.SerialOpts{
			Device: eDevice,
			Port:   cfg.Transport.Serial.Port,
			Baud:   cfg.Transport.Serial.Baud,
		},
		Strip: transport.StripOpts{
			SPI:        cfg.Transport.Strip.SPI,
			Serpentine: cfg.Transport.Strip.Serpentine,
			FreqKHz:    cfg.Transport.Strip.FreqKHz,
			WhiteCap:   cfg.Transport.Strip.WhiteCap,
		},
	})
	if err != nil {
		log.Fatal().Err(err).Str("transport", eKind).Msg("transport open failed")
	}
	defer sender.Close()
	log.Info().Str("mode", *mode).Str("transport", eKind).Msg("starting")

	a := newApp(sender, eFont, eFirst, eDelay, eDiscrete, func() (string, error) {
		if set["text"] {
			return *text, nil
		}
		return readLines(os.Stdin, *begin, *end)
	})
	a.autoFont = !set["font"] && !set["first-char"] && cfg.Font == config.Default().Font
	player := show.NewPlayer(a.play, show.Hooks{OnClip: func(i int, c show.Clip) {
		log.Info().Int("clip", i).Str("name", c.Name).Str("mode", string(c.Mode)).Msg("playing")
	}})
	if err = player.Load(prog); err == nil {
		err = player.Run(ctx)
	}
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		log.Info().Msg("shutting down")
	case errors.Is(err, transport.ErrTransport):
		log.Fatal().Err(err).Msg("frame transport failed")
	default:
		log.Fatal().Err(err).Str("mode", *mode).Msg("render failed")
	}
}

// app plays clips on one Sender. Fonts and input text are loaded on first
// use, so pattern clips run without either.
type app struct {
	sender   transport.Sender
	font     string
	first    int
	delay    time.Duration
	discrete bool
	// autoFont picks the strip for text clips by length when the clip
	// names none.
	autoFont bool

	loadFont func(path string) (*font.Atlas, error)
	input    func() (string, error)

	atlases map[string]*font.Atlas
	text    *string
}

func newApp(s transport.Sender, fontPath string, first int, delay time.Duration, discrete bool, input func() (string, error)) *app {
	return &app{
		sender:   s,
		font:     fontPath,
		first:    first,
		delay:    delay,
		discrete: discrete,
		loadFont: func(path string) (*font.Atlas, error) { return font.LoadFile(locate(path)) },
		input:    input,
		atlases:  map[string]*font.Atlas{},
	}
}

func (a *app) play(ctx context.Context, c show.Clip) error {
	switch c.Mode {
	case show.Pattern, show.Random:
		kind := pattern.Colors
		if c.Mode == show.Random {
			kind = pattern.Random
		}
		p, err := pattern.NewRunner(pattern.Plan{Kind: kind})
		if err != nil {
			return err
		}
		return p.Run(ctx, a.sender, render.Sleep, 1)
	}

	delay := a.delay
	if c.Delay > 0 {
		delay = c.Delay
	}

	switch c.Mode {
	case show.Clock:
		r, err := a.renderer(c)
		if err != nil {
			return err
		}
		return clock.New(r, !(c.Discrete || a.discrete)).SendTime(ctx)
	case show.Char, show.Ticker:
		msg := c.Text
		if msg == "" {
			var err error
			if msg, err = a.readInput(); err != nil {
				return err
			}
		}
		msg = textutil.ASCII(msg)
		if a.autoFont && c.Font == "" && c.FirstChar == nil {
			path, first := show.FontFor(msg)
			c.Font, c.FirstChar = path, &first
		}
		r, err := a.renderer(c)
		if err != nil {
			return err
		}
		return showText(ctx, r, c.Mode, msg, delay)
	default:
		return errors.New("unknown mode " + string(c.Mode))
	}
}

func (a *app) renderer(c show.Clip) (*render.Renderer, error) {
	w, err := a.window(c)
	if err != nil {
		return nil, err
	}
	return render.New(w, a.sender), nil
}

func (a *app) window(c show.Clip) (*glyph.Window, error) {
	path, first := a.font, a.first
	if c.Font != "" {
		path = c.Font
	}
	if c.FirstChar != nil {
		first = *c.FirstChar
	}
	at, ok := a.atlases[path]
	if !ok {
		var err error
		if at, err = a.loadFont(path); err != nil {
			return nil, err
		}
		log.Debug().Str("font", path).Int("glyphs", at.Glyphs()).Str("format", at.Format()).Msg("font loaded")
		a.atlases[path] = at
	}
	return glyph.New(at, first), nil
}

func (a *app) readInput() (string, error) {
	if a.text == nil {
		s, err := a.input()
		if err != nil {
			return "", err
		}
		a.text = &s
	}
	return *a.text, nil
}

func showText(ctx context.Context, r *render.Renderer, mode show.Mode, msg string, delay time.Duration) error {
	if mode == show.Char {
		for _, c := range msg {
			if err := r.SendChar(ctx, c, delay); err != nil {
				return err
			}
		}
		return nil
	}
	if err := r.SendFullString(ctx, msg, delay); err != nil {
		return err
	}
	return r.SendChar(ctx, ' ', delay)
}

func readLines(in io.Reader, begin, end int) (string, error) {
	var lines []string
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return textutil.JoinLines(lines, begin, end), nil
}

// locate falls back to a font of the same name next to the executable.
func locate(path string) string {
	if _, err := os.Stat(path); err == nil {
		return path
	}
	exe, err := os.Executable()
	if err != nil {
		return path
	}
	alt := filepath.Join(filepath.Dir(exe), filepath.Base(path))
	if _, err := os.Stat(alt); err == nil {
		return alt
	}
	return path
}

// pick returns the flag value when the flag was given, else a non-zero
// config value, else the flag default.
func pick[T comparable](explicit bool, flagVal, cfgVal T) T {
	var zero T
	if explicit || cfgVal == zero {
		return flagVal
	}
	return cfgVal
}
