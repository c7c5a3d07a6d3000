// Package symtab enumerates symbols from a loaded ELF binary.
package symtab

import (
	"debug/elf"
	"fmt"
	"sort"

	"uncython/internal/elfx"
)

// Binding mirrors the ELF symbol binding.
type Binding int

const (
	BindLocal Binding = iota
	BindGlobal
	BindWeak
)

func (b Binding) String() string {
	switch b {
	case BindLocal:
		return "local"
	case BindGlobal:
		return "global"
	case BindWeak:
		return "weak"
	default:
		return "unknown"
	}
}

// RawSymbol is one symbol table entry as read from the binary. Immutable
// once produced.
type RawSymbol struct {
	Name         string  `json:"name"`
	Addr         uint64  `json:"addr"`
	SectionIndex int     `json:"section"`
	Size         uint64  `json:"size"`
	Binding      Binding `json:"binding"`

	// Index is the entry's arrival position, used as the ordering
	// tie-break for symbols at the same address.
	Index int `json:"-"`
}

// Read enumerates symbols from .symtab and .dynsym. A stripped binary with
// neither table yields an empty list, never an error. Entries with both a
// zero address and zero size (undefined external references) are skipped,
// and entries appearing in both tables are kept once. Output is ordered by
// ascending address, then by arrival index.
func Read(f *elfx.File) []RawSymbol {
	var out []RawSymbol
	seen := map[string]bool{}

	for _, syms := range tables(f) {
		for _, s := range syms {
			if s.Value == 0 && s.Size == 0 {
				continue // nothing reconstructable behind it
			}
			key := fmt.Sprintf("%s@%x", s.Name, s.Value)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, RawSymbol{
				Name:         s.Name,
				Addr:         s.Value,
				SectionIndex: int(s.Section),
				Size:         s.Size,
				Binding:      toBinding(elf.ST_BIND(s.Info)),
				Index:        len(out),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Addr != out[j].Addr {
			return out[i].Addr < out[j].Addr
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// tables collects the static and dynamic symbol tables. A missing or
// structurally broken table is treated as empty per the degradation policy.
func tables(f *elfx.File) [][]elf.Symbol {
	var all [][]elf.Symbol
	if syms, err := f.ELF.Symbols(); err == nil {
		all = append(all, syms)
	}
	if syms, err := f.ELF.DynamicSymbols(); err == nil {
		all = append(all, syms)
	}
	return all
}

func toBinding(b elf.SymBind) Binding {
	switch b {
	case elf.STB_GLOBAL:
		return BindGlobal
	case elf.STB_WEAK:
		return BindWeak
	default:
		return BindLocal
	}
}
