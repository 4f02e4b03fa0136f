package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// Note: the journal file has one writer goroutine during normal operation and
// readers open their own handles. These helpers do not coordinate concurrent
// writers; add external synchronization if used outside that pattern.

// Write appends bytes to the given open file handle. Caller owns file lifecycle.
func Write(file *os.File, data []byte) error {
	writer := bufio.NewWriter(file)
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Read reads up to length bytes starting at offset. A short result means the
// file ended first.
func Read(r io.ReaderAt, offset int64, length int) ([]byte, error) {
	buf := make([]byte, length)
	n, err := io.ReadFull(io.NewSectionReader(r, offset, int64(length)), buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read: %w", err)
	}
	return buf[:n], nil
}

// Size returns the current size of the file at path, or 0 if it is missing.
func Size(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
