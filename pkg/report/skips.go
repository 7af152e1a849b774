package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
)

// Skip is a (method, simnum, ssnum) unit that produced no results row
type Skip struct {
	Method string `yaml:"method"`
	SimNum int    `yaml:"simnum"`
	SSNum  int    `yaml:"ssnum"`
	Reason string `yaml:"reason"`
}

var skipHeader = []string{"method", "simnum", "ssnum", "reason"}

// SkipLog appends skipped units to a CSV file
type SkipLog struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// OpenSkipLog opens path for appending, writing the header if the file is empty
func OpenSkipLog(path string) (*SkipLog, error) {
	return openAppend(path, skipHeader, func(file *os.File, w *csv.Writer) *SkipLog {
		return &SkipLog{file: file, writer: w}
	})
}

// Log records a skip. A nil log discards it.
func (l *SkipLog) Log(s Skip) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.writer.Write([]string{s.Method, strconv.Itoa(s.SimNum), strconv.Itoa(s.SSNum), s.Reason}); err != nil {
		return fmt.Errorf("failed to write skip: %w", err)
	}
	l.writer.Flush()
	return l.writer.Error()
}

func (l *SkipLog) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer.Flush()
	return errors.Join(l.writer.Error(), l.file.Close())
}
