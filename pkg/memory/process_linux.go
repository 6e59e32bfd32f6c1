//go:build linux

package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// ProcessReader reads another process's memory with process_vm_readv.
type ProcessReader struct {
	pid int
}

// OpenProcess returns a Reader for pid. The caller needs ptrace access to it.
func OpenProcess(pid int) (*ProcessReader, error) {
	if err := unix.Kill(pid, 0); err != nil {
		return nil, fmt.Errorf("failed to find process %d: %v", pid, err)
	}
	return &ProcessReader{pid: pid}, nil
}

func (p *ProcessReader) PID() int {
	return p.pid
}

func (p *ProcessReader) ReadAt(addr uint64, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	local := []unix.Iovec{{Base: &buf[0]}}
	local[0].SetLen(len(buf))
	remote := []unix.RemoteIovec{{Base: uintptr(addr), Len: len(buf)}}
	n, err := unix.ProcessVMReadv(p.pid, local, remote, 0)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("short read: %d of %d bytes", n, len(buf))
	}
	return nil
}

// FindProcess returns the pid of the first process whose command name is name.
func FindProcess(name string) (int, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return 0, fmt.Errorf("failed to list processes: %v", err)
	}
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		comm, err := os.ReadFile(filepath.Join("/proc", entry.Name(), "comm"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(comm)) == name {
			return pid, nil
		}
	}
	return 0, fmt.Errorf("process %q not found", name)
}
