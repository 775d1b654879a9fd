package slogutil

import (
	"fmt"
	"os"
	"sync"
)

// rotatingFile is an append-only log file. When a write would take it past
// limit bytes it is renamed to path.1 (shifting older backups up to
// path.<backups>) and a fresh file is started. With no backups the old
// content is simply dropped.
type rotatingFile struct {
	mu      sync.Mutex
	path    string
	limit   int64
	backups int

	f       *os.File
	written int64
}

func openRotatingFile(path string, limit int64, backups int) (*rotatingFile, error) {
	rf := &rotatingFile{path: path, limit: limit, backups: backups}
	if err := rf.reopen(); err != nil {
		return nil, err
	}
	return rf, nil
}

func (rf *rotatingFile) reopen() error {
	f, err := os.OpenFile(rf.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	rf.f, rf.written = f, info.Size()
	return nil
}

func (rf *rotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	// A record larger than limit still goes into an empty file whole.
	if rf.f != nil && rf.written > 0 && rf.written+int64(len(p)) > rf.limit {
		if err := rf.rotate(); err != nil && rf.f == nil {
			return 0, fmt.Errorf("rotate %s: %w", rf.path, err)
		}
	}
	if rf.f == nil {
		return 0, os.ErrClosed
	}

	n, err := rf.f.Write(p)
	rf.written += int64(n)
	return n, err
}

func (rf *rotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.f == nil {
		return nil
	}
	err := rf.f.Close()
	rf.f = nil
	return err
}

// rotate shifts path -> path.1 -> ... -> path.<backups>, discarding the
// oldest, and reopens path empty. Missing backups are not an error.
func (rf *rotatingFile) rotate() error {
	_ = rf.f.Close()
	rf.f = nil

	if rf.backups <= 0 {
		_ = os.Remove(rf.path)
	} else {
		_ = os.Remove(rf.backup(rf.backups))
		for i := rf.backups - 1; i >= 1; i-- {
			_ = os.Rename(rf.backup(i), rf.backup(i+1))
		}
		_ = os.Rename(rf.path, rf.backup(1))
	}
	return rf.reopen()
}

func (rf *rotatingFile) backup(n int) string {
	return fmt.Sprintf("%s.%d", rf.path, n)
}
