//go:build !linux

package memory

import (
	"errors"
	"runtime"
)

var errUnsupported = errors.New("process memory access is not supported on " + runtime.GOOS)

type ProcessReader struct {
	pid int
}

func OpenProcess(pid int) (*ProcessReader, error) {
	return nil, errUnsupported
}

func (p *ProcessReader) PID() int {
	return p.pid
}

func (p *ProcessReader) ReadAt(addr uint64, buf []byte) error {
	return errUnsupported
}

func FindProcess(name string) (int, error) {
	return 0, errUnsupported
}
