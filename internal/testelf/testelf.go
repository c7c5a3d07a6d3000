// Package testelf builds minimal ELF64 images in memory for tests.
// The produced files parse with debug/elf and carry real section and
// symbol tables, so loader and reader tests need no checked-in samples.
package testelf

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

// Section is one section to place in the image.
type Section struct {
	Name  string
	Type  elf.SectionType
	Flags elf.SectionFlag
	Addr  uint64
	Data  []byte
}

// Sym is one symbol table entry.
type Sym struct {
	Name    string
	Value   uint64
	Size    uint64
	Section string // name of the containing section; "" = SHN_UNDEF
	Binding elf.SymBind
	Type    elf.SymType
}

// Builder accumulates sections and symbols for one image.
type Builder struct {
	sections []Section
	syms     []Sym
}

func New() *Builder { return &Builder{} }

// AddSection appends a section; returns the builder for chaining.
func (b *Builder) AddSection(s Section) *Builder {
	b.sections = append(b.sections, s)
	return b
}

// RoData is shorthand for an allocated read-only data section.
func (b *Builder) RoData(name string, addr uint64, data []byte) *Builder {
	return b.AddSection(Section{Name: name, Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC, Addr: addr, Data: data})
}

// Text is shorthand for an executable section.
func (b *Builder) Text(name string, addr uint64, data []byte) *Builder {
	return b.AddSection(Section{Name: name, Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, Addr: addr, Data: data})
}

// AddSymbol appends a symbol table entry.
func (b *Builder) AddSymbol(s Sym) *Builder {
	b.syms = append(b.syms, s)
	return b
}

// Func is shorthand for a global function symbol in the given section.
func (b *Builder) Func(name, section string, value, size uint64) *Builder {
	return b.AddSymbol(Sym{Name: name, Value: value, Size: size, Section: section, Binding: elf.STB_GLOBAL, Type: elf.STT_FUNC})
}

// Object is shorthand for a global data symbol in the given section.
func (b *Builder) Object(name, section string, value, size uint64) *Builder {
	return b.AddSymbol(Sym{Name: name, Value: value, Size: size, Section: section, Binding: elf.STB_GLOBAL, Type: elf.STT_OBJECT})
}

const (
	ehSize = 64
	shSize = 64
	stSize = 24 // Elf64_Sym
)

type placed struct {
	Section
	nameOff uint32
	offset  uint64
	size    uint64
	link    uint32
	info    uint32
	entsize uint64
}

// Bytes assembles the image: ELF header, section data, then the section
// header table. A .symtab/.strtab pair is emitted when symbols were added,
// and a .shstrtab always.
func (b *Builder) Bytes() []byte {
	sections := make([]placed, 0, len(b.sections)+3)
	for _, s := range b.sections {
		sections = append(sections, placed{Section: s})
	}

	// Symbol string table and symbol entries.
	if len(b.syms) > 0 {
		strtab := []byte{0}
		nameOff := make([]uint32, len(b.syms))
		for i, s := range b.syms {
			nameOff[i] = uint32(len(strtab))
			strtab = append(strtab, s.Name...)
			strtab = append(strtab, 0)
		}

		// Section name → header index (null entry occupies index 0).
		secIdx := map[string]uint16{}
		for i, s := range b.sections {
			secIdx[s.Name] = uint16(i + 1)
		}

		symtab := make([]byte, stSize) // null entry
		var entry [stSize]byte
		for i, s := range b.syms {
			binary.LittleEndian.PutUint32(entry[0:], nameOff[i])
			entry[4] = byte(s.Binding)<<4 | byte(s.Type)
			entry[5] = 0
			binary.LittleEndian.PutUint16(entry[6:], secIdx[s.Section])
			binary.LittleEndian.PutUint64(entry[8:], s.Value)
			binary.LittleEndian.PutUint64(entry[16:], s.Size)
			symtab = append(symtab, entry[:]...)
		}

		strtabIdx := uint32(len(sections) + 2) // header index, after the null entry
		sections = append(sections, placed{
			Section: Section{Name: ".symtab", Type: elf.SHT_SYMTAB, Data: symtab},
			link:    strtabIdx,
			info:    1,
			entsize: stSize,
		})
		sections = append(sections, placed{
			Section: Section{Name: ".strtab", Type: elf.SHT_STRTAB, Data: strtab},
		})
	}

	// Section header string table, named last.
	shstr := []byte{0}
	for i := range sections {
		sections[i].nameOff = uint32(len(shstr))
		shstr = append(shstr, sections[i].Name...)
		shstr = append(shstr, 0)
	}
	shstrNameOff := uint32(len(shstr))
	shstr = append(shstr, ".shstrtab"...)
	shstr = append(shstr, 0)
	sections = append(sections, placed{
		Section: Section{Name: ".shstrtab", Type: elf.SHT_STRTAB, Data: shstr},
		nameOff: shstrNameOff,
	})
	shstrndx := len(sections) // header index, after the null entry

	// Lay out section data after the ELF header, 8-byte aligned.
	var body bytes.Buffer
	off := uint64(ehSize)
	for i := range sections {
		if pad := (8 - off%8) % 8; pad != 0 {
			body.Write(make([]byte, pad))
			off += pad
		}
		sections[i].offset = off
		sections[i].size = uint64(len(sections[i].Data))
		body.Write(sections[i].Data)
		off += sections[i].size
	}
	if pad := (8 - off%8) % 8; pad != 0 {
		body.Write(make([]byte, pad))
		off += pad
	}
	shoff := off

	// ELF header.
	var hdr [ehSize]byte
	copy(hdr[:], "\x7fELF")
	hdr[4] = byte(elf.ELFCLASS64)
	hdr[5] = byte(elf.ELFDATA2LSB)
	hdr[6] = byte(elf.EV_CURRENT)
	binary.LittleEndian.PutUint16(hdr[16:], uint16(elf.ET_DYN))
	binary.LittleEndian.PutUint16(hdr[18:], uint16(elf.EM_X86_64))
	binary.LittleEndian.PutUint32(hdr[20:], 1) // e_version
	binary.LittleEndian.PutUint64(hdr[40:], shoff)
	binary.LittleEndian.PutUint16(hdr[52:], ehSize)
	binary.LittleEndian.PutUint16(hdr[58:], shSize)
	binary.LittleEndian.PutUint16(hdr[60:], uint16(len(sections)+1)) // + null entry
	binary.LittleEndian.PutUint16(hdr[62:], uint16(shstrndx))

	var out bytes.Buffer
	out.Write(hdr[:])
	out.Write(body.Bytes())

	// Section header table: null entry then one header per section.
	var sh [shSize]byte
	out.Write(sh[:])
	for _, s := range sections {
		for i := range sh {
			sh[i] = 0
		}
		binary.LittleEndian.PutUint32(sh[0:], s.nameOff)
		binary.LittleEndian.PutUint32(sh[4:], uint32(s.Type))
		binary.LittleEndian.PutUint64(sh[8:], uint64(s.Flags))
		binary.LittleEndian.PutUint64(sh[16:], s.Addr)
		binary.LittleEndian.PutUint64(sh[24:], s.offset)
		binary.LittleEndian.PutUint64(sh[32:], s.size)
		binary.LittleEndian.PutUint32(sh[40:], s.link)
		binary.LittleEndian.PutUint32(sh[44:], s.info)
		binary.LittleEndian.PutUint64(sh[48:], 1) // addralign
		binary.LittleEndian.PutUint64(sh[56:], s.entsize)
		out.Write(sh[:])
	}

	return out.Bytes()
}
