package store

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/brensch/snek5110/session"
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("store: closed")

// HighScoreLog persists the best score as an append-only log.
//
// Each new record is appended and fsynced; on open the file is scanned and the
// largest score wins. Partial or corrupt lines (a crash mid-write) are skipped.
//
// Format: <score> <unix_nanos>\n
// Safe for concurrent use by several sessions.
type HighScoreLog struct {
	mu   sync.Mutex
	path string
	file *os.File
	best int
}

func OpenHighScoreLog(path string) (*HighScoreLog, error) {
	if path == "" {
		return nil, fmt.Errorf("high score path is required")
	}

	best := 0
	// Best-effort load of existing records.
	if f, err := os.Open(path); err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			fields := strings.Fields(scanner.Text())
			if len(fields) == 0 {
				continue
			}
			v, err := strconv.Atoi(fields[0])
			if err != nil || v < 0 {
				continue
			}
			if v > best {
				best = v
			}
		}
		_ = f.Close()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create high score dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open high score log: %w", err)
	}

	return &HighScoreLog{path: path, file: file, best: best}, nil
}

func (l *HighScoreLog) Path() string { return l.path }

// Load returns the best score recorded so far.
func (l *HighScoreLog) Load() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.best, nil
}

// Save appends score if it beats the stored best. Lower or equal scores are
// ignored so the log only ever records improvements.
func (l *HighScoreLog) Save(score int) error {
	if score < 0 {
		return fmt.Errorf("negative score %d", score)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if score <= l.best {
		return nil
	}
	if l.file == nil {
		return ErrClosed
	}

	line := strconv.Itoa(score) + " " + strconv.FormatInt(time.Now().UnixNano(), 10) + "\n"
	if _, err := l.file.WriteString(line); err != nil {
		return fmt.Errorf("append high score: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync high score: %w", err)
	}
	l.best = score
	return nil
}

func (l *HighScoreLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// MemoryHighScore keeps the best score in memory only.
type MemoryHighScore struct {
	mu   sync.Mutex
	best int
}

func (m *MemoryHighScore) Load() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.best, nil
}

func (m *MemoryHighScore) Save(score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if score > m.best {
		m.best = score
	}
	return nil
}

// OpenHighScore opens the log at path, or keeps scores in memory when path is
// empty. The returned func releases the file.
func OpenHighScore(path string) (session.HighScoreStore, func() error, error) {
	if path == "" {
		return &MemoryHighScore{}, func() error { return nil }, nil
	}
	l, err := OpenHighScoreLog(path)
	if err != nil {
		return nil, nil, err
	}
	return l, l.Close, nil
}
