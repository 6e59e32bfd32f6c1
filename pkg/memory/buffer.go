package memory

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// Buffer is an in-process Reader backed by a byte slice mapped at Base.
// It stands in for a game process in tests and dry runs.
type Buffer struct {
	lock sync.RWMutex
	base uint64
	data []byte
}

// NewBuffer returns a zeroed Buffer of size bytes mapped at base.
func NewBuffer(base uint64, size int) *Buffer {
	return &Buffer{
		base: base,
		data: make([]byte, size),
	}
}

func (b *Buffer) span(addr uint64, n int) (int, error) {
	if addr < b.base || addr-b.base+uint64(n) > uint64(len(b.data)) {
		return 0, fmt.Errorf("address 0x%X (+%d) outside buffer", addr, n)
	}
	return int(addr - b.base), nil
}

func (b *Buffer) ReadAt(addr uint64, buf []byte) error {
	b.lock.RLock()
	defer b.lock.RUnlock()
	off, err := b.span(addr, len(buf))
	if err != nil {
		return err
	}
	copy(buf, b.data[off:])
	return nil
}

// Write copies p into the buffer at addr.
func (b *Buffer) Write(addr uint64, p []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	off, err := b.span(addr, len(p))
	if err != nil {
		return err
	}
	copy(b.data[off:], p)
	return nil
}

func (b *Buffer) WriteByte(addr uint64, v byte) error {
	return b.Write(addr, []byte{v})
}

func (b *Buffer) WriteUint16(addr uint64, v uint16) error {
	return b.Write(addr, binary.LittleEndian.AppendUint16(nil, v))
}

func (b *Buffer) WriteUint32(addr uint64, v uint32) error {
	return b.Write(addr, binary.LittleEndian.AppendUint32(nil, v))
}

func (b *Buffer) WriteUint64(addr uint64, v uint64) error {
	return b.Write(addr, binary.LittleEndian.AppendUint64(nil, v))
}

// SetBit sets or clears a single bit of the byte at addr.
func (b *Buffer) SetBit(addr uint64, bit int, on bool) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	off, err := b.span(addr, 1)
	if err != nil {
		return err
	}
	if on {
		b.data[off] |= 1 << bit
	} else {
		b.data[off] &^= 1 << bit
	}
	return nil
}
