package docio

import (
	"fmt"
	"io"
	"os"
)

// SizeOf reports the length of r. It understands files, in-memory readers
// and anything that can seek.
func SizeOf(r io.ReaderAt) (int64, error) {
	switch v := r.(type) {
	case *os.File:
		info, err := v.Stat()
		if err != nil {
			return 0, fmt.Errorf("failed to get file info: %w", err)
		}
		return info.Size(), nil
	case interface{ Size() int64 }:
		return v.Size(), nil
	case io.Seeker:
		size, err := v.Seek(0, io.SeekEnd)
		if err != nil {
			return 0, fmt.Errorf("failed to seek to end: %w", err)
		}
		return size, nil
	default:
		return 0, fmt.Errorf("cannot determine size of %T", r)
	}
}
