package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const filePrefix = "jpmed-"

// RotatingLogger is an io.Writer over weekly log files. A week that outgrows maxSize
// continues in numbered files (jpmed-2024-W23_01.log, _02, ...). Files older than the
// retention period are removed once a day.
type RotatingLogger struct {
	dir       string
	retention time.Duration
	maxSize   int64

	mu   sync.Mutex
	file *os.File
	week string
	seq  int
	size int64

	started   bool
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewRotatingLogger creates a logger writing under dir. maxSize <= 0 disables size rotation.
func NewRotatingLogger(dir string, retentionWeeks int, maxSize int64) *RotatingLogger {
	return &RotatingLogger{
		dir:       dir,
		retention: time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxSize:   maxSize,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Open creates the directory, opens this week's file and starts the daily cleanup.
func (rl *RotatingLogger) Open() error {
	if err := os.MkdirAll(rl.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	rl.mu.Lock()
	err := rl.openWeek(weekKey(time.Now()))
	rl.mu.Unlock()
	if err != nil {
		return err
	}

	rl.started = true
	go rl.cleanupLoop()
	return nil
}

func (rl *RotatingLogger) cleanupLoop() {
	defer close(rl.done)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			if _, err := rl.Cleanup(now); err != nil {
				fmt.Fprintf(os.Stderr, "log cleanup failed: %v\n", err)
			}
		}
	}
}

// weekKey returns the ISO week as YYYY-Www.
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func fileName(week string, seq int) string {
	if seq == 0 {
		return filePrefix + week + ".log"
	}
	return fmt.Sprintf("%s%s_%02d.log", filePrefix, week, seq)
}

// lastSeq returns the highest sequence number already on disk for week.
func (rl *RotatingLogger) lastSeq(week string) int {
	matches, _ := filepath.Glob(filepath.Join(rl.dir, filePrefix+week+"_??.log"))
	last := 0
	for _, m := range matches {
		base := strings.TrimSuffix(filepath.Base(m), ".log")
		n, err := strconv.Atoi(base[strings.LastIndexByte(base, '_')+1:])
		if err == nil && n > last {
			last = n
		}
	}
	return last
}

// openWeek resumes the newest file of week that still has room. Caller holds mu.
func (rl *RotatingLogger) openWeek(week string) error {
	seq := rl.lastSeq(week)
	for {
		info, err := os.Stat(filepath.Join(rl.dir, fileName(week, seq)))
		if err != nil || rl.maxSize <= 0 || info.Size() < rl.maxSize {
			break
		}
		seq++
	}
	return rl.openFile(week, seq)
}

// openFile switches to the given file. Caller holds mu.
func (rl *RotatingLogger) openFile(week string, seq int) error {
	if rl.file != nil {
		_ = rl.file.Close()
		rl.file = nil
	}

	path := filepath.Join(rl.dir, fileName(week, seq))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	rl.file, rl.week, rl.seq, rl.size = f, week, seq, size
	return nil
}

func (rl *RotatingLogger) Write(p []byte) (int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	week := weekKey(time.Now())
	switch {
	case rl.file == nil || week != rl.week:
		if err := rl.openWeek(week); err != nil {
			return 0, err
		}
	case rl.maxSize > 0 && rl.size > 0 && rl.size+int64(len(p)) > rl.maxSize:
		if err := rl.openFile(week, rl.seq+1); err != nil {
			return 0, err
		}
	}

	n, err := rl.file.Write(p)
	rl.size += int64(n)
	return n, err
}

// Cleanup removes log files last modified before now minus the retention period and
// reports how many were removed.
func (rl *RotatingLogger) Cleanup(now time.Time) (int, error) {
	entries, err := os.ReadDir(rl.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	rl.mu.Lock()
	current := ""
	if rl.file != nil {
		current = filepath.Base(rl.file.Name())
	}
	rl.mu.Unlock()

	cutoff := now.Add(-rl.retention)
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == current || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if os.Remove(filepath.Join(rl.dir, name)) == nil {
			removed++
		}
	}
	return removed, nil
}

// Close stops the cleanup goroutine and closes the current file.
func (rl *RotatingLogger) Close() error {
	var err error
	rl.closeOnce.Do(func() {
		close(rl.stop)
		if rl.started {
			<-rl.done
		}

		rl.mu.Lock()
		defer rl.mu.Unlock()
		if rl.file != nil {
			err = rl.file.Close()
			rl.file = nil
		}
	})
	return err
}
