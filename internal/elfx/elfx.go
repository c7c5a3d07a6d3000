// Package elfx provides ELF loading helpers for Cython-compiled shared objects.
package elfx

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	ErrUnsupportedFormat = errors.New("elfx: unsupported container format")
	ErrTruncated         = errors.New("elfx: declared tables exceed file size")
	ErrUnreadable        = errors.New("elfx: unreadable")
	ErrNoSection         = errors.New("elfx: no section covers address")
	ErrRange             = errors.New("elfx: read range out of bounds")
)

// elfMagic is the 4-byte magic at the start of every ELF file.
var elfMagic = [4]byte{0x7f, 'E', 'L', 'F'}

// File wraps a debug/elf.File with convenience methods for skeleton recovery.
type File struct {
	ELF    *elf.File
	raw    io.ReaderAt
	size   int64
	closer io.Closer
}

// Open opens an ELF file from disk and validates its container format.
// The source file is never mutated; only a read handle is held.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrUnreadable, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: stat: %v", ErrUnreadable, err)
	}

	ef, err := newValidated(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	ef.closer = f
	return ef, nil
}

// NewBytes opens an ELF image held entirely in memory. This is the entry
// point for callers that hand the analyzer one binary at a time.
func NewBytes(data []byte) (*File, error) {
	return newValidated(bytes.NewReader(data), int64(len(data)))
}

func newValidated(r io.ReaderAt, size int64) (*File, error) {
	var magic [4]byte
	if _, err := r.ReadAt(magic[:], 0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if magic != elfMagic {
		return nil, fmt.Errorf("%w: bad magic %x", ErrUnsupportedFormat, magic)
	}

	ef, err := elf.NewFile(r)
	if err != nil {
		// Magic matched but the header or tables are inconsistent.
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}

	f := &File{ELF: ef, raw: r, size: size}
	if err := f.checkTables(); err != nil {
		return nil, err
	}
	return f, nil
}

// checkTables verifies section data offsets lie within the file.
// Sections whose declared size runs past EOF are tolerated; their data is
// clamped at read time.
func (f *File) checkTables() error {
	for _, s := range f.ELF.Sections {
		if s.Type == elf.SHT_NOBITS {
			continue
		}
		if int64(s.Offset) > f.size {
			return fmt.Errorf("%w: section %q at offset 0x%x, file is 0x%x bytes",
				ErrTruncated, s.Name, s.Offset, f.size)
		}
	}
	return nil
}

// Close releases resources. Safe on in-memory files.
func (f *File) Close() error {
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

// FileSize returns the size of the underlying file or buffer.
func (f *File) FileSize() int64 { return f.size }

// SectionInfo describes one section of the loaded binary.
type SectionInfo struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Addr     uint64 `json:"addr"`
	Offset   uint64 `json:"offset"`
	Size     uint64 `json:"size"`
	Alloc    bool   `json:"alloc"`
	Writable bool   `json:"writable"`
	Exec     bool   `json:"exec"`
	NoBits   bool   `json:"nobits"`
}

// ReadOnlyData reports whether the section holds mapped, non-writable,
// non-executable data — the regions worth scanning for strings.
func (s SectionInfo) ReadOnlyData() bool {
	return s.Alloc && !s.Writable && !s.Exec && !s.NoBits && s.Size > 0
}

// Sections returns the section table in index order.
func (f *File) Sections() []SectionInfo {
	out := make([]SectionInfo, 0, len(f.ELF.Sections))
	for i, s := range f.ELF.Sections {
		out = append(out, SectionInfo{
			Index:    i,
			Name:     s.Name,
			Addr:     s.Addr,
			Offset:   s.Offset,
			Size:     s.Size,
			Alloc:    s.Flags&elf.SHF_ALLOC != 0,
			Writable: s.Flags&elf.SHF_WRITE != 0,
			Exec:     s.Flags&elf.SHF_EXECINSTR != 0,
			NoBits:   s.Type == elf.SHT_NOBITS,
		})
	}
	return out
}

// SectionData reads a section's bytes, clamped to the file size. NOBITS
// sections yield nil.
func (f *File) SectionData(idx int) ([]byte, error) {
	if idx < 0 || idx >= len(f.ELF.Sections) {
		return nil, fmt.Errorf("%w: section index %d", ErrRange, idx)
	}
	s := f.ELF.Sections[idx]
	if s.Type == elf.SHT_NOBITS || s.Size == 0 {
		return nil, nil
	}
	n := int64(s.Size)
	if int64(s.Offset)+n > f.size {
		n = f.size - int64(s.Offset)
	}
	if n <= 0 {
		return nil, nil
	}
	return f.ReadRange(int64(s.Offset), int(n))
}

// SectionContaining returns the section whose address range covers va.
func (f *File) SectionContaining(va uint64) (SectionInfo, error) {
	sections := f.Sections()
	for _, s := range sections {
		if !s.Alloc || s.Size == 0 {
			continue
		}
		if va >= s.Addr && va < s.Addr+s.Size {
			return s, nil
		}
	}
	return SectionInfo{}, fmt.Errorf("%w: VA 0x%x", ErrNoSection, va)
}

// ReadRange reads n bytes at the given file offset.
func (f *File) ReadRange(off int64, n int) ([]byte, error) {
	if off < 0 || n < 0 || off+int64(n) > f.size {
		return nil, fmt.Errorf("%w: offset 0x%x len %d, file is 0x%x bytes", ErrRange, off, n, f.size)
	}
	buf := make([]byte, n)
	if _, err := f.raw.ReadAt(buf, off); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: read at 0x%x: %v", ErrUnreadable, off, err)
	}
	return buf, nil
}
