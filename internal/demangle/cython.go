package demangle

import (
	"errors"
	"strconv"
	"strings"

	"uncython/internal/symtab"
)

var errMalformed = errors.New("demangle: malformed length-prefixed path")

// cythonStrategy decodes the length-prefixed naming convention used by the
// Cython compiler. Qualifier segments are encoded as <len><chars> joined by
// underscores (the declared length covers underscores inside a segment);
// the final member token is either length-prefixed, a plain identifier, or
// a wrapper ordinal followed by a plain identifier:
//
//	__pyx_pf_3pkg_3mod_3foo      → pkg.mod, member foo
//	__pyx_pw_4test_1spam         → test, member spam (ordinal 1 stripped)
//	__pyx_doc_4test_5Klass_3run  → docstring for test.Klass.run
type cythonStrategy struct{}

func (cythonStrategy) Name() string { return "cython" }

// cythonPrefixes maps reserved prefixes to how their tail decodes.
// Order matters: longest match wins, checked in slice order.
var cythonPrefixes = []struct {
	prefix string
	kind   Kind
	slot   string // forced member name for type slots
	plain  bool   // tail is literal data, not an encoded path
}{
	{prefix: "__pyx_tp_new_", kind: KindMethod, slot: "__new__"},
	{prefix: "__pyx_tp_dealloc_", kind: KindMethod, slot: "__dealloc__"},
	{prefix: "__pyx_tp_traverse_", kind: KindMethod, slot: "__traverse__"},
	{prefix: "__pyx_getprop_", kind: KindProperty},
	{prefix: "__pyx_setprop_", kind: KindProperty},
	{prefix: "__pyx_doc_", kind: KindDocstring},
	{prefix: "__pyx_ptype_", kind: KindClass},
	{prefix: "__pyx_pymod_exec_", kind: KindModule, plain: true},
	{prefix: "__pyx_pf_", kind: KindFunction},
	{prefix: "__pyx_pw_", kind: KindFunction},
	{prefix: "__pyx_f_", kind: KindFunction},
	{prefix: "__pyx_v_", kind: KindModuleVar},
	{prefix: "__pyx_n_s_", kind: KindStringConst, plain: true},
	{prefix: "__pyx_n_u_", kind: KindStringConst, plain: true},
	{prefix: "__pyx_k_", kind: KindStringConst, plain: true},
	{prefix: "__pyx_tuple_", kind: KindStringConst, plain: true},
	{prefix: "__pyx_codeobj_", kind: KindStringConst, plain: true},
	{prefix: "__pyx_int_", kind: KindStringConst, plain: true},
	{prefix: "__pyx_float_", kind: KindStringConst, plain: true},
	{prefix: "PyInit_", kind: KindModule, plain: true},
}

func (cythonStrategy) Match(name string) bool {
	return strings.HasPrefix(name, "__pyx_") || strings.HasPrefix(name, "PyInit_")
}

func (cythonStrategy) Decode(raw symtab.RawSymbol) (ClassifiedSymbol, bool) {
	for _, p := range cythonPrefixes {
		tail, ok := strings.CutPrefix(raw.Name, p.prefix)
		if !ok || tail == "" {
			continue
		}

		if p.plain {
			return decodePlain(raw, p.kind, tail)
		}

		segs, err := parsePath(tail)
		if err != nil || len(segs) == 0 {
			return ClassifiedSymbol{}, false
		}
		return shape(raw, p.kind, p.slot, segs), true
	}
	return ClassifiedSymbol{}, false
}

// decodePlain handles prefixes whose tail is a literal token: module init
// names and constant data. Constant tails are munged literals and are kept
// as-is for the correlator.
func decodePlain(raw symtab.RawSymbol, kind Kind, tail string) (ClassifiedSymbol, bool) {
	if kind == KindModule {
		if !isIdent(tail) {
			return ClassifiedSymbol{}, false
		}
		return ClassifiedSymbol{
			Raw:        raw,
			ModulePath: []string{tail},
			MemberName: tail,
			Kind:       kind,
		}, true
	}
	return ClassifiedSymbol{
		Raw:        raw,
		MemberName: tail,
		Kind:       kind,
	}, true
}

// shape distributes decoded segments into module path, owner class, and
// member name, and settles the function/method split.
func shape(raw symtab.RawSymbol, kind Kind, slot string, segs []string) ClassifiedSymbol {
	cs := ClassifiedSymbol{Raw: raw, Kind: kind}

	if slot != "" {
		// Type slots: the encoded path names the class itself.
		cs.MemberName = slot
		cs.OwnerClass = segs[len(segs)-1]
		cs.ModulePath = segs[:len(segs)-1]
		return cs
	}

	cs.MemberName = segs[len(segs)-1]
	owners := segs[:len(segs)-1]

	if kind == KindClass {
		cs.ModulePath = owners
		return cs
	}

	// The grammar does not mark the class/module boundary; the last
	// uppercase-initial qualifier is taken as the owning class. Dunder
	// members force the nearest qualifier into class position, matching
	// how __init__ implies a class upstream.
	classIdx := -1
	for i := len(owners) - 1; i >= 0; i-- {
		if isClassSeg(owners[i]) {
			classIdx = i
			break
		}
	}
	if classIdx == -1 && isDunder(cs.MemberName) && len(owners) > 0 {
		classIdx = len(owners) - 1
	}

	if classIdx >= 0 {
		cs.OwnerClass = owners[classIdx]
		cs.ModulePath = owners[:classIdx]
		if kind == KindFunction {
			cs.Kind = KindMethod
		}
	} else {
		cs.ModulePath = owners
	}

	if kind == KindProperty && cs.OwnerClass == "" && len(owners) > 0 {
		// Property accessors always hang off a class.
		cs.OwnerClass = owners[len(owners)-1]
		cs.ModulePath = owners[:len(owners)-1]
	}
	return cs
}

// parsePath decodes an encoded qualified path left to right.
//
// At each token: a digit run is read as a declared segment length. If the
// declared length consumes exactly the rest of the string, that is the
// final segment. If it is followed by an underscore, it is a qualifier and
// parsing continues. A digit run that is not a valid length but precedes a
// plain identifier is a wrapper ordinal and is stripped. A declared length
// past the end of the name is malformed; the caller degrades the symbol to
// unknown rather than guessing.
func parsePath(enc string) ([]string, error) {
	var segs []string
	i := 0
	for i < len(enc) {
		j := i
		for j < len(enc) && enc[j] >= '0' && enc[j] <= '9' {
			j++
		}

		if j == i {
			// No length digits: the rest is a plain member token.
			rest := enc[i:]
			if !isIdent(rest) {
				return nil, errMalformed
			}
			return append(segs, rest), nil
		}
		if j-i > 4 {
			return nil, errMalformed // implausible segment length
		}

		n, err := strconv.Atoi(enc[i:j])
		if err != nil || n <= 0 {
			return nil, errMalformed
		}
		rest := enc[j:]

		switch {
		case len(rest) == n:
			// Length-prefixed final segment.
			return append(segs, rest), nil
		case len(rest) > n && rest[n] == '_':
			segs = append(segs, rest[:n])
			i = j + n + 1
		case len(rest) > n:
			// Digit run was a wrapper ordinal, not a length.
			if !isIdent(rest) {
				return nil, errMalformed
			}
			return append(segs, rest), nil
		default:
			// Declared length exceeds the remaining bytes.
			return nil, errMalformed
		}
	}
	return nil, errMalformed
}
