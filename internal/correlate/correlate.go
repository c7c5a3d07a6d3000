// Package correlate associates harvested strings with classified symbols,
// attributing docstrings and auxiliary parameter text under an explicit
// confidence tag.
package correlate

import (
	"sort"

	"uncython/internal/cyfmt"
	"uncython/internal/demangle"
	"uncython/internal/harvest"
)

// Confidence tags how a docstring association was derived. It is carried
// through rendering and never collapsed to a boolean.
type Confidence int

const (
	ConfidenceUnknown Confidence = iota
	ConfidenceHeuristic
	ConfidenceCertain
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceCertain:
		return "certain"
	case ConfidenceHeuristic:
		return "heuristic"
	default:
		return "unknown"
	}
}

func (c Confidence) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// AnnotatedSymbol is a ClassifiedSymbol with its attributed strings.
// Immutable value object derived once per run.
type AnnotatedSymbol struct {
	demangle.ClassifiedSymbol

	Docstring  *harvest.String  `json:"docstring,omitempty"`
	Aux        []harvest.String `json:"aux,omitempty"` // parameter docs, qualname confirmations
	Confidence Confidence       `json:"confidence"`
}

// Result carries the annotated symbols plus every string no symbol claimed,
// so harvested strings are conserved between harvester and correlator.
type Result struct {
	Symbols   []AnnotatedSymbol `json:"symbols"`
	Unclaimed []harvest.String  `json:"unclaimed,omitempty"`
}

// Correlate attributes harvested strings to symbols. Docstring precedence:
//
//  1. certain — a docstring-constant symbol whose decoded path equals the
//     function's path anchors the string at its own address;
//  2. heuristic — the nearest following unclaimed string within the
//     configured window whose content does not look like another symbol's
//     mangled name;
//  3. unknown — no candidate satisfies the window.
//
// Symbols are scanned in ascending address order and a string is claimed at
// most once; the first claim wins. No condition here is fatal and no symbol
// is dropped.
func Correlate(syms []demangle.ClassifiedSymbol, strs []harvest.String, cfg cyfmt.Config, diags *cyfmt.Diags) Result {
	// Strings ordered by address for window scans, remembering their
	// position in the harvester's output for claim bookkeeping.
	order := make([]int, len(strs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return strs[order[a]].Addr < strs[order[b]].Addr
	})

	// Docstring anchors: decoded path of each docstring-constant symbol.
	anchors := make(map[string]uint64)
	for _, cs := range syms {
		if cs.Kind == demangle.KindDocstring {
			if _, dup := anchors[cs.QualifiedPath()]; !dup {
				anchors[cs.QualifiedPath()] = cs.Raw.Addr
			}
		}
	}

	// Symbols scanned in ascending address order.
	symOrder := make([]int, len(syms))
	for i := range symOrder {
		symOrder[i] = i
	}
	sort.SliceStable(symOrder, func(a, b int) bool {
		return syms[symOrder[a]].Raw.Addr < syms[symOrder[b]].Raw.Addr
	})

	claimed := make([]bool, len(strs))
	out := make([]AnnotatedSymbol, len(syms))

	for _, si := range symOrder {
		cs := syms[si]
		as := AnnotatedSymbol{ClassifiedSymbol: cs, Confidence: ConfidenceUnknown}
		if !cs.Callable() {
			out[si] = as
			continue
		}

		if addr, ok := anchors[cs.QualifiedPath()]; ok {
			if pos, ok := stringCovering(strs, order, addr); ok && !claimed[pos] {
				claimed[pos] = true
				s := strs[pos]
				as.Docstring = &s
				as.Confidence = ConfidenceCertain
			}
		}

		if as.Docstring == nil {
			if pos, ok := nearestFollowing(strs, order, claimed, cs.Raw.Addr, cfg.Window); ok {
				claimed[pos] = true
				s := strs[pos]
				as.Docstring = &s
				as.Confidence = ConfidenceHeuristic
			}
		}

		as.Aux = claimAux(strs, order, claimed, cs, cfg.Window)
		out[si] = as
	}

	var unclaimed []harvest.String
	for i, c := range claimed {
		if !c {
			unclaimed = append(unclaimed, strs[i])
		}
	}
	if diags != nil {
		for _, s := range unclaimed {
			if harvest.Interesting(s.Text) && !demangle.LooksMangled(s.Text) {
				diags.Addf(s.Addr, cyfmt.DiagUnclaimed, "unattributed string %q", clip(s.Text))
			}
		}
	}

	return Result{Symbols: out, Unclaimed: unclaimed}
}

// stringCovering finds the string whose byte range covers addr.
func stringCovering(strs []harvest.String, order []int, addr uint64) (int, bool) {
	i := sort.Search(len(order), func(i int) bool {
		s := strs[order[i]]
		return s.Addr+uint64(len(s.Text)) > addr
	})
	if i < len(order) {
		s := strs[order[i]]
		if s.Addr <= addr {
			return order[i], true
		}
	}
	return 0, false
}

// nearestFollowing finds the first unclaimed string with
// symAddr < addr <= symAddr+window whose content is not a mangled name.
// Comment-like fragments are left for aux attribution.
func nearestFollowing(strs []harvest.String, order []int, claimed []bool, symAddr, window uint64) (int, bool) {
	i := sort.Search(len(order), func(i int) bool {
		return strs[order[i]].Addr > symAddr
	})
	for ; i < len(order); i++ {
		pos := order[i]
		s := strs[pos]
		if s.Addr > symAddr+window {
			break
		}
		if claimed[pos] || demangle.LooksMangled(s.Text) || !harvest.Interesting(s.Text) || harvest.CommentLike(s.Text) {
			continue
		}
		return pos, true
	}
	return 0, false
}

// claimAux attaches strings in the window that describe the symbol rather
// than document it: parameter/return comment fragments and a dotted
// qualname equal to the symbol's own path.
func claimAux(strs []harvest.String, order []int, claimed []bool, cs demangle.ClassifiedSymbol, window uint64) []harvest.String {
	var aux []harvest.String
	path := cs.QualifiedPath()
	i := sort.Search(len(order), func(i int) bool {
		return strs[order[i]].Addr > cs.Raw.Addr
	})
	for ; i < len(order); i++ {
		pos := order[i]
		s := strs[pos]
		if s.Addr > cs.Raw.Addr+window {
			break
		}
		if claimed[pos] {
			continue
		}
		if harvest.CommentLike(s.Text) || s.Text == path {
			claimed[pos] = true
			aux = append(aux, s)
		}
	}
	return aux
}

func clip(s string) string {
	const max = 80
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
