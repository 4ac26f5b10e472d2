// Package elfhdr classifies ELF binaries from the fixed part of their header.
//
// Only the identification bytes, e_machine and e_flags are read; program and
// section headers are never touched, so truncated or stripped binaries still
// classify as long as the first 64 bytes are intact.
package elfhdr

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"

	"fee/internal/diag"
)

// HeaderSize is the number of bytes needed to classify either address width.
const HeaderSize = 64

const (
	offMachine = 18
	offFlags32 = 36
	offFlags64 = 48
)

// Classification is what the architecture registry needs to know about a binary.
type Classification struct {
	Class   elf.Class
	Data    elf.Data
	Machine elf.Machine
	Flags   uint32
}

// Bits returns the address width (32 or 64).
func (c Classification) Bits() int {
	if c.Class == elf.ELFCLASS64 {
		return 64
	}
	return 32
}

// ByteOrder returns the binary.ByteOrder matching Data.
func (c Classification) ByteOrder() binary.ByteOrder {
	if c.Data == elf.ELFDATA2MSB {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Endian returns "little" or "big".
func (c Classification) Endian() string {
	if c.Data == elf.ELFDATA2MSB {
		return "big"
	}
	return "little"
}

func (c Classification) String() string {
	return fmt.Sprintf("%d-bit %s-endian %s flags=%#x", c.Bits(), c.Endian(), c.Machine, c.Flags)
}

// Classify reads the ELF identification and machine fields from raw.
func Classify(raw []byte) (Classification, error) {
	if len(raw) < HeaderSize {
		return Classification{}, diag.New(diag.ElfMalformed,
			"input is %d bytes, an ELF header needs at least %d", len(raw), HeaderSize)
	}
	if !bytes.Equal(raw[:len(elf.ELFMAG)], []byte(elf.ELFMAG)) {
		return Classification{}, diag.New(diag.ElfMalformed, "missing ELF magic")
	}

	var c Classification
	switch cls := elf.Class(raw[elf.EI_CLASS]); cls {
	case elf.ELFCLASS32, elf.ELFCLASS64:
		c.Class = cls
	default:
		return Classification{}, diag.New(diag.ElfMalformed, "invalid ELF class byte %d", raw[elf.EI_CLASS])
	}
	switch data := elf.Data(raw[elf.EI_DATA]); data {
	case elf.ELFDATA2LSB, elf.ELFDATA2MSB:
		c.Data = data
	default:
		return Classification{}, diag.New(diag.ElfMalformed, "invalid ELF data encoding byte %d", raw[elf.EI_DATA])
	}

	order := c.ByteOrder()
	c.Machine = elf.Machine(order.Uint16(raw[offMachine:]))
	if c.Class == elf.ELFCLASS64 {
		c.Flags = order.Uint32(raw[offFlags64:])
	} else {
		c.Flags = order.Uint32(raw[offFlags32:])
	}
	return c, nil
}

// Synthesize builds a minimal header that classifies as c.
func Synthesize(c Classification) []byte {
	h := make([]byte, HeaderSize)
	copy(h, elf.ELFMAG)
	h[elf.EI_CLASS] = byte(c.Class)
	h[elf.EI_DATA] = byte(c.Data)
	h[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	h[elf.EI_OSABI] = byte(elf.ELFOSABI_LINUX)
	order := c.ByteOrder()
	order.PutUint16(h[16:], uint16(elf.ET_EXEC))
	order.PutUint16(h[offMachine:], uint16(c.Machine))
	order.PutUint32(h[20:], uint32(elf.EV_CURRENT))
	if c.Class == elf.ELFCLASS64 {
		order.PutUint32(h[offFlags64:], c.Flags)
		order.PutUint16(h[52:], HeaderSize)
	} else {
		order.PutUint32(h[offFlags32:], c.Flags)
		order.PutUint16(h[40:], 52)
	}
	return h
}
