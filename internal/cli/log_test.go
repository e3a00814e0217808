package cli

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info", log.InfoLevel, func(l *log.Logger) { l.Info("solve started") }, true},
		{"debug at info", log.InfoLevel, func(l *log.Logger) { l.Debug("iteration") }, false},
		{"debug at debug", log.DebugLevel, func(l *log.Logger) { l.Debug("iteration") }, true},
		{"warn at warn", log.WarnLevel, func(l *log.Logger) { l.Warn("residual violations") }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("logged = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestQuietLogger(t *testing.T) {
	var buf bytes.Buffer
	old := errOut
	errOut = &buf
	t.Cleanup(func() { errOut = old })

	l := quietLogger()
	l.Info("solving")
	if buf.Len() != 0 {
		t.Errorf("info leaked through the quiet logger: %q", buf.String())
	}
	l.Warn("residual violations", "assets", []string{"bench"})
	if !strings.Contains(buf.String(), "residual violations") {
		t.Errorf("warning missing: %q", buf.String())
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel))
	time.Sleep(5 * time.Millisecond)

	if d := prog.elapsed(); d < 5*time.Millisecond {
		t.Errorf("elapsed() = %v, want >= 5ms", d)
	}
	prog.done("Solved corridor.toml")
	if !strings.Contains(buf.String(), "Solved corridor.toml (") {
		t.Errorf("done() output = %q", buf.String())
	}
}

func TestProgressDiscard(t *testing.T) {
	prog := newProgress(newLogger(io.Discard, log.InfoLevel))
	prog.done("nothing to see")
}
