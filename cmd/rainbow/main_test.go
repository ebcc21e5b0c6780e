package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/rainbowmatrix/internal/font"
	"github.com/coreman2200/rainbowmatrix/internal/font/fonttest"
	"github.com/coreman2200/rainbowmatrix/internal/frame"
	"github.com/coreman2200/rainbowmatrix/internal/glyph"
	"github.com/coreman2200/rainbowmatrix/internal/show"
	"github.com/coreman2200/rainbowmatrix/internal/transport/transporttest"
)

// testApp renders with a 96 glyph atlas starting at ' '.
func testApp(s *transporttest.Recorder, text string) (*app, *int) {
	loads := 0
	a := newApp(s, "font.png", 32, 0, false, func() (string, error) { return text, nil })
	a.loadFont = func(path string) (*font.Atlas, error) {
		loads++
		return fonttest.Strip(96), nil
	}
	return a, &loads
}

func play(t *testing.T, a *app, prog show.Program) error {
	t.Helper()
	p := show.NewPlayer(a.play, show.Hooks{})
	require.NoError(t, p.Load(prog))
	return p.Run(context.Background())
}

func packChar(t *testing.T, c rune) frame.Packed {
	t.Helper()
	p, err := glyph.New(fonttest.Strip(96), 32).PackChar(c)
	require.NoError(t, err)
	return p
}

func TestPlayChar(t *testing.T) {
	s := &transporttest.Recorder{}
	a, _ := testApp(s, "Hé")
	require.NoError(t, play(t, a, show.Single(show.Char, 1)))
	assert.Equal(t, []frame.Packed{packChar(t, 'H'), packChar(t, 'e')}, s.Frames(), "accents folded before rendering")
}

func TestPlayTicker(t *testing.T) {
	s := &transporttest.Recorder{}
	a, loads := testApp(s, "abc")
	require.NoError(t, play(t, a, show.Single(show.Ticker, 2)))

	// Each pass scrolls len*8 frames and then blanks with a space.
	frames := s.Frames()
	require.Len(t, frames, 2*(3*8+1))
	assert.Equal(t, packChar(t, ' '), frames[24])
	assert.Equal(t, packChar(t, ' '), frames[49])
	assert.Equal(t, 1, *loads, "font loaded once")
}

func TestPlayClipOverrides(t *testing.T) {
	s := &transporttest.Recorder{}
	a, loads := testApp(s, "ignored")
	zero := 0
	var paths []string
	a.loadFont = func(path string) (*font.Atlas, error) {
		*loads++
		paths = append(paths, path)
		return fonttest.Strip(128), nil
	}
	require.NoError(t, play(t, a, show.Program{Clips: []show.Clip{
		{Mode: show.Char, Text: "A", Font: "inv.png", FirstChar: &zero},
		{Mode: show.Char, Text: "A"},
	}}))

	want0, err := glyph.New(fonttest.Strip(128), 0).PackChar('A')
	require.NoError(t, err)
	want1, err := glyph.New(fonttest.Strip(128), 32).PackChar('A')
	require.NoError(t, err)
	assert.Equal(t, []frame.Packed{want0, want1}, s.Frames())
	assert.Equal(t, []string{"inv.png", "font.png"}, paths)
}

func TestPlayPicksFontByLength(t *testing.T) {
	s := &transporttest.Recorder{}
	a, _ := testApp(s, "")
	a.autoFont = true
	var paths []string
	a.loadFont = func(path string) (*font.Atlas, error) {
		paths = append(paths, path)
		return fonttest.Strip(128), nil
	}
	require.NoError(t, play(t, a, show.Program{Clips: []show.Clip{
		{Mode: show.Char, Text: "A"},
		{Mode: show.Char, Text: "AAAAAA"},
	}}))

	green, err := glyph.New(fonttest.Strip(128), show.GreenFirstChar).PackChar('A')
	require.NoError(t, err)
	inverted, err := glyph.New(fonttest.Strip(128), show.InvertedFirstChar).PackChar('A')
	require.NoError(t, err)
	frames := s.Frames()
	require.Len(t, frames, 7)
	assert.Equal(t, green, frames[0])
	assert.Equal(t, inverted, frames[1])
	assert.Equal(t, []string{show.GreenFont, show.InvertedFont}, paths)
}

func TestPlayEmptyTickerText(t *testing.T) {
	s := &transporttest.Recorder{}
	a, _ := testApp(s, "")
	err := a.play(context.Background(), show.Clip{Mode: show.Ticker})
	assert.ErrorIs(t, err, frame.ErrInvalidInput)
	assert.Empty(t, s.Frames())
}

func TestPlayPatternNeedsNoFont(t *testing.T) {
	s := &transporttest.Recorder{}
	a, loads := testApp(s, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := a.play(ctx, show.Clip{Mode: show.Pattern})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, s.Frames(), 1)
	assert.Zero(t, *loads)
}

func TestPlayFontError(t *testing.T) {
	s := &transporttest.Recorder{}
	a, _ := testApp(s, "x")
	a.loadFont = func(string) (*font.Atlas, error) { return nil, font.ErrDecode }
	assert.ErrorIs(t, a.play(context.Background(), show.Clip{Mode: show.Clock}), font.ErrDecode)
	assert.Empty(t, s.Frames())
}

func TestPlayInputError(t *testing.T) {
	s := &transporttest.Recorder{}
	a, _ := testApp(s, "")
	a.input = func() (string, error) { return "", errors.New("stdin closed") }
	assert.ErrorContains(t, a.play(context.Background(), show.Clip{Mode: show.Ticker}), "stdin closed")
}

func TestReadLines(t *testing.T) {
	got, err := readLines(strings.NewReader("one\ntwo\nthree\n"), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, "twothree", got)
}

func TestPick(t *testing.T) {
	assert.Equal(t, "flag", pick(true, "flag", "cfg"))
	assert.Equal(t, "cfg", pick(false, "flag", "cfg"))
	assert.Equal(t, "flag", pick(false, "flag", ""))
	assert.Equal(t, 250*time.Millisecond, pick(false, time.Second, 250*time.Millisecond))
}
