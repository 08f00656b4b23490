package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const defaultMaxSizeMB = 100

// RotatingFile is an append-only log file that is renamed to path.1 once it
// would grow past maxSize. Older backups shift up to path.<maxBackups>.
type RotatingFile struct {
	mu         sync.Mutex
	path       string
	maxSize    int64
	maxBackups int
	file       *os.File
	size       int64
}

func OpenRotatingFile(path string, maxSizeMB, maxBackups int) (*RotatingFile, error) {
	if path == "" {
		return nil, errors.New("log file path is required")
	}
	if maxSizeMB <= 0 {
		maxSizeMB = defaultMaxSizeMB
	}
	if maxBackups < 0 {
		maxBackups = 0
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f := &RotatingFile{
		path:       path,
		maxSize:    int64(maxSizeMB) << 20,
		maxBackups: maxBackups,
	}
	if err := f.open(os.O_APPEND); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RotatingFile) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		if err := f.open(os.O_APPEND); err != nil {
			return 0, err
		}
	}
	if f.size > 0 && f.size+int64(len(p)) > f.maxSize {
		if err := f.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := f.file.Write(p)
	f.size += int64(n)
	return n, err
}

func (f *RotatingFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	f.size = 0
	return err
}

func (f *RotatingFile) open(mode int) error {
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|mode, 0o644)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return err
	}
	f.file = file
	f.size = info.Size()
	return nil
}

func (f *RotatingFile) backup(n int) string {
	return fmt.Sprintf("%s.%d", f.path, n)
}

func (f *RotatingFile) rotate() error {
	if f.file != nil {
		_ = f.file.Close()
		f.file = nil
	}
	if f.maxBackups == 0 {
		_ = os.Remove(f.path)
		return f.open(os.O_TRUNC)
	}

	_ = os.Remove(f.backup(f.maxBackups))
	for n := f.maxBackups - 1; n >= 1; n-- {
		_ = os.Rename(f.backup(n), f.backup(n+1))
	}
	if err := os.Rename(f.path, f.backup(1)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return f.open(os.O_TRUNC)
}
