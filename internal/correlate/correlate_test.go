package correlate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uncython/internal/cyfmt"
	"uncython/internal/demangle"
	"uncython/internal/harvest"
	"uncython/internal/symtab"
)

func fn(name string, addr uint64, module ...string) demangle.ClassifiedSymbol {
	return demangle.ClassifiedSymbol{
		Raw:        symtab.RawSymbol{Name: name, Addr: addr},
		ModulePath: module,
		MemberName: name,
		Kind:       demangle.KindFunction,
	}
}

func str(text string, addr uint64) harvest.String {
	return harvest.String{Addr: addr, Text: text, Length: len(text)}
}

func TestHeuristicDocstring(t *testing.T) {
	syms := []demangle.ClassifiedSymbol{fn("foo", 0x1000, "pkg", "mod")}
	strs := []harvest.String{str("computes foo", 0x1100)}

	res := Correlate(syms, strs, cyfmt.DefaultConfig(), nil)
	require.Len(t, res.Symbols, 1)

	as := res.Symbols[0]
	require.NotNil(t, as.Docstring)
	assert.Equal(t, "computes foo", as.Docstring.Text)
	assert.Equal(t, ConfidenceHeuristic, as.Confidence)
	assert.Empty(t, res.Unclaimed)
}

func TestCertainViaDocSymbol(t *testing.T) {
	foo := fn("foo", 0x1000, "pkg", "mod")
	anchor := demangle.ClassifiedSymbol{
		Raw:        symtab.RawSymbol{Name: "__pyx_doc_3pkg_3mod_3foo", Addr: 0x1800},
		ModulePath: []string{"pkg", "mod"},
		MemberName: "foo",
		Kind:       demangle.KindDocstring,
	}
	strs := []harvest.String{
		str("decoy nearby", 0x1100),
		str("the real docstring", 0x1800),
	}

	res := Correlate([]demangle.ClassifiedSymbol{foo, anchor}, strs, cyfmt.DefaultConfig(), nil)

	as := res.Symbols[0]
	require.NotNil(t, as.Docstring)
	assert.Equal(t, "the real docstring", as.Docstring.Text)
	assert.Equal(t, ConfidenceCertain, as.Confidence)

	// The anchored match must win over the nearer heuristic candidate.
	require.Len(t, res.Unclaimed, 1)
	assert.Equal(t, "decoy nearby", res.Unclaimed[0].Text)
}

func TestFirstClaimWins(t *testing.T) {
	syms := []demangle.ClassifiedSymbol{
		fn("first", 0x1000, "pkg"),
		fn("second", 0x1010, "pkg"),
	}
	strs := []harvest.String{str("only doc around", 0x1100)}

	res := Correlate(syms, strs, cyfmt.DefaultConfig(), nil)

	require.NotNil(t, res.Symbols[0].Docstring)
	assert.Nil(t, res.Symbols[1].Docstring)
	assert.Equal(t, ConfidenceUnknown, res.Symbols[1].Confidence)
}

func TestWindowBounds(t *testing.T) {
	cfg := cyfmt.DefaultConfig()
	cfg.Window = 0x100

	syms := []demangle.ClassifiedSymbol{fn("foo", 0x1000, "pkg")}
	strs := []harvest.String{
		str("inside the window", 0x1100), // exactly at the limit
		str("beyond the window", 0x1101),
	}

	res := Correlate(syms, strs, cfg, nil)
	require.NotNil(t, res.Symbols[0].Docstring)
	assert.Equal(t, "inside the window", res.Symbols[0].Docstring.Text)

	// Nothing in range at all.
	res = Correlate(syms, []harvest.String{str("beyond the window", 0x1101)}, cfg, nil)
	assert.Nil(t, res.Symbols[0].Docstring)
	assert.Equal(t, ConfidenceUnknown, res.Symbols[0].Confidence)
	assert.Len(t, res.Unclaimed, 1)
}

func TestMangledNamesNotClaimed(t *testing.T) {
	syms := []demangle.ClassifiedSymbol{fn("foo", 0x1000, "pkg")}
	strs := []harvest.String{
		str("__pyx_pf_3pkg_3bar", 0x1080), // another symbol's name
		str("actual words", 0x1100),
	}

	res := Correlate(syms, strs, cyfmt.DefaultConfig(), nil)
	require.NotNil(t, res.Symbols[0].Docstring)
	assert.Equal(t, "actual words", res.Symbols[0].Docstring.Text)
}

func TestAuxAttribution(t *testing.T) {
	foo := demangle.ClassifiedSymbol{
		Raw:        symtab.RawSymbol{Name: "__pyx_pf_3pkg_3mod_3foo", Addr: 0x1000},
		ModulePath: []string{"pkg", "mod"},
		MemberName: "foo",
		Kind:       demangle.KindFunction,
	}
	strs := []harvest.String{
		str("computes foo", 0x1080),
		str(":param x: the x", 0x1090),
		str("pkg.mod.foo", 0x10a0), // dotted qualname equals the symbol's path
		str("pkg.mod.bar", 0x10b0), // someone else's qualname
	}

	res := Correlate([]demangle.ClassifiedSymbol{foo}, strs, cyfmt.DefaultConfig(), nil)

	as := res.Symbols[0]
	require.NotNil(t, as.Docstring)
	assert.Equal(t, "computes foo", as.Docstring.Text)
	require.Len(t, as.Aux, 2)
	assert.Equal(t, ":param x: the x", as.Aux[0].Text)
	assert.Equal(t, "pkg.mod.foo", as.Aux[1].Text)

	require.Len(t, res.Unclaimed, 1)
	assert.Equal(t, "pkg.mod.bar", res.Unclaimed[0].Text)
}

func TestNonCallableNeverClaims(t *testing.T) {
	cls := demangle.ClassifiedSymbol{
		Raw:        symtab.RawSymbol{Name: "__pyx_ptype_3pkg_5Klass", Addr: 0x1000},
		ModulePath: []string{"pkg"},
		MemberName: "Klass",
		Kind:       demangle.KindClass,
	}
	strs := []harvest.String{str("tempting docstring", 0x1010)}

	res := Correlate([]demangle.ClassifiedSymbol{cls}, strs, cyfmt.DefaultConfig(), nil)
	assert.Nil(t, res.Symbols[0].Docstring)
	assert.Len(t, res.Unclaimed, 1)
}

func TestStringConservation(t *testing.T) {
	syms := []demangle.ClassifiedSymbol{
		fn("a", 0x1000, "pkg"),
		fn("b", 0x1040, "pkg"),
		fn("c", 0x9000, "pkg"), // nothing in its window
	}
	strs := []harvest.String{
		str("doc for a", 0x1010),
		str(":param q: aux text", 0x1020),
		str("doc for b", 0x1050),
		str("orphan string", 0x5000),
	}

	res := Correlate(syms, strs, cyfmt.DefaultConfig(), nil)

	claimed := 0
	for _, as := range res.Symbols {
		if as.Docstring != nil {
			claimed++
		}
		claimed += len(as.Aux)
	}
	assert.Equal(t, len(strs), claimed+len(res.Unclaimed),
		"every string is claimed exactly once or reported unclaimed")
}

func TestUnclaimedDiagnostics(t *testing.T) {
	syms := []demangle.ClassifiedSymbol{fn("foo", 0x1000, "pkg")}
	strs := []harvest.String{
		str("doc for foo", 0x1010),
		str("interesting leftover", 0x9000),
		str("__pyx_pf_3pkg_3bar", 0x9100), // mangled: no diagnostic
	}

	var diags cyfmt.Diags
	res := Correlate(syms, strs, cyfmt.DefaultConfig(), &diags)
	require.Len(t, res.Unclaimed, 2)

	require.Equal(t, 1, diags.Len())
	d := diags.Items()[0]
	assert.Equal(t, cyfmt.DiagUnclaimed, d.Kind)
	assert.Contains(t, d.Msg, "interesting leftover")
}
