package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColorHandlerLevelColors(t *testing.T) {
	cases := []struct {
		name  string
		log   func(l *slog.Logger)
		color string
	}{
		{"error is red", func(l *slog.Logger) { l.Error("boom") }, colorRed},
		{"warn is yellow", func(l *slog.Logger) { l.Warn("careful") }, colorYellow},
		{"persist message is green", func(l *slog.Logger) { l.Info("persisting resolved edges") }, colorGreen},
		{"plain info has no color", func(l *slog.Logger) { l.Info("searching") }, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(&buf, slog.LevelDebug)
			tc.log(l)
			out := buf.String()
			if tc.color == "" {
				assert.NotContains(t, out, colorRed)
				assert.NotContains(t, out, colorGreen)
				assert.NotContains(t, out, colorYellow)
			} else {
				assert.True(t, strings.Contains(out, tc.color))
			}
		})
	}
}

func TestColorHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelDebug)
	l.Error("extraction failed", "episode_uuid", "ep-1")

	out := buf.String()
	assert.Contains(t, out, "extraction failed")
	assert.Contains(t, out, "episode_uuid=ep-1")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
