// Package harvest extracts printable string runs from the read-only data
// sections of a binary.
package harvest

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"uncython/internal/cyfmt"
	"uncython/internal/elfx"
)

// String is one printable run found in a section. Immutable once produced.
type String struct {
	Offset       uint64 `json:"offset"` // byte offset within the section
	SectionIndex int    `json:"section"`
	Addr         uint64 `json:"addr"` // section address + offset
	Text         string `json:"text"`
	Length       int    `json:"length"` // characters, not bytes
}

// Noise keyword lists inherited from the Cython runtime: strings containing
// these are compiler plumbing, not recovered source text.
var (
	cythonKeywords = []string{
		"pyobject", "pytype", "pycode", "pytuple", "pydict", "pylist",
		"pyint", "pyfloat", "pyexc", "pymethod", "pybytes", "pyframe",
	}
	elfKeywords = []string{"glibc", ".so."}
)

// ScanAll scans every read-only, non-executable section of the binary.
// Sections are scanned in parallel with one output buffer per worker and
// merged in section index order, so identical input and configuration
// always yield the identical output list and order.
func ScanAll(f *elfx.File, cfg cyfmt.Config, diags *cyfmt.Diags) ([]String, error) {
	sections := f.Sections()
	buffers := make([][]String, len(sections))

	var g errgroup.Group
	for _, sec := range sections {
		sec := sec
		if !sec.ReadOnlyData() {
			continue
		}
		g.Go(func() error {
			data, err := f.SectionData(sec.Index)
			if err != nil {
				if cfg.Mode == cyfmt.ModeStrict {
					return err
				}
				return nil // degrade: unreadable section is empty
			}
			buffers[sec.Index] = Scan(sec, data, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []String
	for i, buf := range buffers {
		if len(buf) == cfg.EffectiveMaxStrings() && diags != nil {
			diags.Addf(sections[i].Addr, cyfmt.DiagClamped,
				"section %q harvest clamped at %d strings", sections[i].Name, len(buf))
		}
		out = append(out, buf...)
	}
	return out, nil
}

// Scan performs the greedy printable-run scan over one section's bytes.
// A run starts at the first printable byte, extends while bytes satisfy
// the configured printable predicate, and ends at a null or non-printable
// byte. Runs shorter than MinChars are dropped; with OnlyInteresting set,
// padding and compiler noise are suppressed too. Emitted runs never
// overlap and are ordered by ascending offset.
func Scan(sec elfx.SectionInfo, data []byte, cfg cyfmt.Config) []String {
	var out []String
	maxStrings := cfg.EffectiveMaxStrings()

	i := 0
	for i < len(data) && len(out) < maxStrings {
		start := i
		chars := 0
		for i < len(data) {
			b := data[i]
			if b >= 0x20 && b <= 0x7e {
				i++
				chars++
				continue
			}
			if cfg.Charset == cyfmt.CharsetUTF8 && b >= 0x80 {
				r, sz := utf8.DecodeRune(data[i:])
				if r != utf8.RuneError && unicode.IsPrint(r) {
					i += sz
					chars++
					continue
				}
			}
			break
		}

		if chars >= cfg.MinChars {
			text := string(data[start:i])
			if !cfg.OnlyInteresting || Interesting(text) {
				out = append(out, String{
					Offset:       uint64(start),
					SectionIndex: sec.Index,
					Addr:         sec.Addr + uint64(start),
					Text:         text,
					Length:       chars,
				})
			}
		}

		if i == start {
			i++ // skip the non-printable byte
		}
	}
	return out
}

// Interesting rejects runs that carry no recoverable source information:
// pure padding, strings without a single letter, and Cython/ELF runtime
// noise.
func Interesting(text string) bool {
	if text == "" {
		return false
	}
	hasAlpha := false
	uniform := true
	for i := 0; i < len(text); i++ {
		c := text[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			hasAlpha = true
		}
		if c != text[0] {
			uniform = false
		}
	}
	if !hasAlpha || uniform {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range cythonKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	for _, kw := range elfKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	return true
}

// commentKeywords mark docstring fragments that describe parameters and
// return values.
var commentKeywords = []string{":param", ":return", "@param", "@return"}

// CommentLike reports whether a run looks like a recovered doc comment.
func CommentLike(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range commentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
