package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func decodeAll(t *testing.T, b []byte) []map[string]any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader(b))
	var out []map[string]any
	for dec.More() {
		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			t.Fatalf("decode: %v\n%s", err, b)
		}
		out = append(out, m)
	}
	return out
}

func TestPrettyJSONHandler_GroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyJSONHandler(&buf, nil))

	log.With("game_id", "g1").WithGroup("tick").Info("game over", "score", 42, "cause", "wall", "err", errors.New("boom"))
	log.Debug("hidden")

	recs := decodeAll(t, buf.Bytes())
	if len(recs) != 1 {
		t.Fatalf("records=%d want=1\n%s", len(recs), buf.String())
	}
	r := recs[0]
	if r["msg"] != "game over" || r["level"] != "INFO" {
		t.Fatalf("envelope=%v", r)
	}
	if r["game_id"] != "g1" {
		t.Fatalf("game_id=%v want=g1 (attrs before group stay top-level)", r["game_id"])
	}
	tick, ok := r["tick"].(map[string]any)
	if !ok {
		t.Fatalf("tick group missing: %v", r)
	}
	if tick["score"] != float64(42) || tick["cause"] != "wall" || tick["err"] != "boom" {
		t.Fatalf("tick=%v", tick)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Fatalf("output not indented:\n%s", buf.String())
	}
}

func TestNew_Formats(t *testing.T) {
	for _, f := range []string{"", FormatText, FormatJSON, FormatPretty} {
		var buf bytes.Buffer
		log, err := New(&buf, f, slog.LevelDebug)
		if err != nil {
			t.Fatalf("format %q: %v", f, err)
		}
		log.Debug("hello", "k", 1)
		if !strings.Contains(buf.String(), "hello") {
			t.Fatalf("format %q wrote %q", f, buf.String())
		}
	}
	if _, err := New(&bytes.Buffer{}, "xml", slog.LevelInfo); err == nil {
		t.Fatalf("unknown format accepted")
	}
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("WARN")
	if err != nil || l != slog.LevelWarn {
		t.Fatalf("level=%v err=%v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("bad level accepted")
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "snake.log")
	log, closeFn, err := Open(path, FormatJSON, "info")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	log.Debug("hidden")
	log.Info("shown", "score", 40)
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(b), "hidden") || !strings.Contains(string(b), `"score":40`) {
		t.Fatalf("log file=%q", b)
	}
	if _, _, err := Open("", FormatText, "nope"); err == nil {
		t.Fatalf("bad level accepted")
	}
}
