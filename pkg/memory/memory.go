// Package memory defines the narrow capability the runtime needs from a game
// process: reading little-endian typed values at an address.
package memory

import (
	"encoding/binary"
	"fmt"
)

// Reader reads len(buf) bytes starting at addr.
// Implementations must be safe for concurrent use.
type Reader interface {
	ReadAt(addr uint64, buf []byte) error
}

func read(r Reader, addr uint64, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := r.ReadAt(addr, buf); err != nil {
		return nil, fmt.Errorf("failed to read %d bytes at 0x%X: %v", n, addr, err)
	}
	return buf, nil
}

func ReadByte(r Reader, addr uint64) (byte, error) {
	b, err := read(r, addr, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func ReadUint16(r Reader, addr uint64) (uint16, error) {
	b, err := read(r, addr, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func ReadInt16(r Reader, addr uint64) (int16, error) {
	v, err := ReadUint16(r, addr)
	return int16(v), err
}

func ReadUint32(r Reader, addr uint64) (uint32, error) {
	b, err := read(r, addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func ReadInt32(r Reader, addr uint64) (int32, error) {
	v, err := ReadUint32(r, addr)
	return int32(v), err
}

func ReadUint64(r Reader, addr uint64) (uint64, error) {
	b, err := read(r, addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func ReadInt64(r Reader, addr uint64) (int64, error) {
	v, err := ReadUint64(r, addr)
	return int64(v), err
}

// ReadBit reports whether bit (0 = least significant) of the byte at addr is set.
func ReadBit(r Reader, addr uint64, bit int) (bool, error) {
	if bit < 0 || bit > 7 {
		return false, fmt.Errorf("bit index %d out of range", bit)
	}
	b, err := ReadByte(r, addr)
	if err != nil {
		return false, err
	}
	return b&(1<<bit) != 0, nil
}

// ReadNibble returns the upper or lower four bits of the byte at addr.
func ReadNibble(r Reader, addr uint64, upper bool) (byte, error) {
	b, err := ReadByte(r, addr)
	if err != nil {
		return 0, err
	}
	if upper {
		return b >> 4, nil
	}
	return b & 0x0F, nil
}
