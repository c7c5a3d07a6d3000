// Package demangle decodes compiler-mangled symbol names into structured
// identifiers: module path, owning class, member name, and kind.
//
// Decoding is a pluggable strategy selected by a detected format signature,
// so new mangling schemes can be added without touching the pipeline.
// Decoding never fails hard: a malformed name degrades to KindUnknown with
// the raw name preserved verbatim.
package demangle

import (
	"strings"

	"uncython/internal/cyfmt"
	"uncython/internal/symtab"
)

// Kind classifies what a symbol stood for in the original source.
type Kind int

const (
	KindUnknown Kind = iota
	KindFunction
	KindMethod
	KindProperty
	KindClass
	KindModuleVar
	KindModule      // module init symbol, names the module itself
	KindDocstring   // docstring constant for an encoded function path
	KindStringConst // interned name or literal constant data
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindMethod:
		return "method"
	case KindProperty:
		return "property"
	case KindClass:
		return "class"
	case KindModuleVar:
		return "module_var"
	case KindModule:
		return "module"
	case KindDocstring:
		return "docstring"
	case KindStringConst:
		return "string_const"
	default:
		return "unknown"
	}
}

// ClassifiedSymbol is a RawSymbol with its decoded identity. Immutable
// value object derived once per symbol.
type ClassifiedSymbol struct {
	Raw symtab.RawSymbol `json:"raw"`

	ModulePath []string `json:"module_path"` // never empty after Classify
	OwnerClass string   `json:"owner_class,omitempty"`
	MemberName string   `json:"member_name"` // raw name when decoding failed
	Kind       Kind     `json:"kind"`
}

// QualifiedPath renders module.Class.member for matching against dotted
// qualname strings and docstring anchors.
func (c ClassifiedSymbol) QualifiedPath() string {
	parts := make([]string, 0, len(c.ModulePath)+2)
	parts = append(parts, c.ModulePath...)
	if c.OwnerClass != "" {
		parts = append(parts, c.OwnerClass)
	}
	parts = append(parts, c.MemberName)
	return strings.Join(parts, ".")
}

// Callable reports whether the symbol is a docstring-bearing member.
func (c ClassifiedSymbol) Callable() bool {
	return c.Kind == KindFunction || c.Kind == KindMethod || c.Kind == KindProperty
}

// Strategy is one mangling grammar.
type Strategy interface {
	// Name identifies the grammar for config overrides and diagnostics.
	Name() string
	// Match reports whether a raw name carries this grammar's signature.
	Match(name string) bool
	// Decode classifies one symbol. ok=false means the name does not
	// belong to this grammar or is malformed; the caller degrades it.
	Decode(raw symtab.RawSymbol) (ClassifiedSymbol, bool)
}

// Strategies returns the registered grammars in detection order.
func Strategies() []Strategy {
	return []Strategy{cythonStrategy{}, genericStrategy{}}
}

// ByName looks up a grammar for an explicit config override.
func ByName(name string) (Strategy, bool) {
	for _, s := range Strategies() {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// Detect picks the grammar whose signature matches the most symbol names.
// With no match at all the generic grammar is returned; it degrades
// everything it cannot read.
func Detect(syms []symtab.RawSymbol) Strategy {
	best := Strategies()[len(Strategies())-1]
	bestHits := 0
	for _, s := range Strategies() {
		hits := 0
		for _, rs := range syms {
			if s.Match(rs.Name) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = s, hits
		}
	}
	return best
}

// Classify decodes every symbol with the given strategy. Malformed names
// degrade to KindUnknown with the raw name kept; nothing is dropped and
// nothing raises. Symbols without a decodable module path inherit the
// binary's primary module so the module path invariant holds.
func Classify(syms []symtab.RawSymbol, strat Strategy, diags *cyfmt.Diags) []ClassifiedSymbol {
	out := make([]ClassifiedSymbol, 0, len(syms))
	for _, rs := range syms {
		cs, ok := strat.Decode(rs)
		if !ok {
			if diags != nil {
				diags.Addf(rs.Addr, cyfmt.DiagUnknownName, "undecodable symbol %q", rs.Name)
			}
			cs = ClassifiedSymbol{Raw: rs, Kind: KindUnknown, MemberName: rs.Name}
		}
		if cs.MemberName == "" {
			cs.MemberName = rs.Name
		}
		out = append(out, cs)
	}

	primary := primaryModule(out)
	for i := range out {
		if len(out[i].ModulePath) == 0 {
			out[i].ModulePath = []string{primary}
		}
	}
	return out
}

// primaryModule picks the module name unlocated symbols fall back to:
// the first module-init symbol, else the first decoded module segment,
// else a placeholder.
func primaryModule(syms []ClassifiedSymbol) string {
	for _, cs := range syms {
		if cs.Kind == KindModule && len(cs.ModulePath) > 0 {
			return cs.ModulePath[0]
		}
	}
	for _, cs := range syms {
		if len(cs.ModulePath) > 0 {
			return cs.ModulePath[0]
		}
	}
	return "_unknown"
}

// LooksMangled reports whether text carries any known grammar's signature.
// The correlator uses it to keep other symbols' names from being mistaken
// for docstrings.
func LooksMangled(text string) bool {
	for _, s := range Strategies() {
		if s.Match(text) {
			return true
		}
	}
	return false
}

// isIdent reports whether s is a plausible source identifier.
func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_':
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// isClassSeg treats an uppercase-initial segment as a class name. The
// upstream convention does not distinguish nested classes from nested
// modules; this is the configurable heuristic boundary.
func isClassSeg(s string) bool {
	return s != "" && s[0] >= 'A' && s[0] <= 'Z'
}

// isDunder reports double-underscore special members (__init__, __new__).
func isDunder(s string) bool {
	return len(s) > 4 && strings.HasPrefix(s, "__") && strings.HasSuffix(s, "__")
}
