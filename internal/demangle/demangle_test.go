package demangle

import (
	"strings"
	"testing"

	"uncython/internal/cyfmt"
	"uncython/internal/symtab"
)

func decode(t *testing.T, strat Strategy, name string) ClassifiedSymbol {
	t.Helper()
	cs, ok := strat.Decode(symtab.RawSymbol{Name: name, Addr: 0x1000})
	if !ok {
		t.Fatalf("Decode(%q) failed", name)
	}
	return cs
}

func TestCythonDecode(t *testing.T) {
	tests := []struct {
		name   string
		module string // dot-joined
		owner  string
		member string
		kind   Kind
	}{
		{"__pyx_pf_3pkg_3mod_3foo", "pkg.mod", "", "foo", KindFunction},
		{"__pyx_pw_4test_1spam", "test", "", "spam", KindFunction},
		{"__pyx_f_3pkg_6helper", "pkg", "", "helper", KindFunction},
		{"__pyx_pf_3pkg_5Klass_3run", "pkg", "Klass", "run", KindMethod},
		{"__pyx_pf_4test_5Klass_8__init__", "test", "Klass", "__init__", KindMethod},
		// No uppercase qualifier: a dunder member still implies a class.
		{"__pyx_pf_3pkg_3mod_8__init__", "pkg", "mod", "__init__", KindMethod},
		{"__pyx_getprop_4test_5Klass_5value", "test", "Klass", "value", KindProperty},
		{"__pyx_setprop_4test_5Klass_5value", "test", "Klass", "value", KindProperty},
		{"__pyx_doc_3pkg_3mod_3foo", "pkg.mod", "", "foo", KindDocstring},
		{"__pyx_tp_new_3pkg_5Klass", "pkg", "Klass", "__new__", KindMethod},
		{"__pyx_tp_dealloc_3pkg_5Klass", "pkg", "Klass", "__dealloc__", KindMethod},
		{"__pyx_ptype_3pkg_5Klass", "pkg", "", "Klass", KindClass},
		{"__pyx_v_3pkg_7counter", "pkg", "", "counter", KindModuleVar},
		{"PyInit_mod", "mod", "", "mod", KindModule},
		{"__pyx_pymod_exec_mod", "mod", "", "mod", KindModule},
		{"__pyx_n_s_main", "", "", "main", KindStringConst},
		{"__pyx_k_Hello_World", "", "", "Hello_World", KindStringConst},
	}

	strat := cythonStrategy{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := decode(t, strat, tt.name)
			if got := strings.Join(cs.ModulePath, "."); got != tt.module {
				t.Errorf("module path = %q, want %q", got, tt.module)
			}
			if cs.OwnerClass != tt.owner {
				t.Errorf("owner class = %q, want %q", cs.OwnerClass, tt.owner)
			}
			if cs.MemberName != tt.member {
				t.Errorf("member = %q, want %q", cs.MemberName, tt.member)
			}
			if cs.Kind != tt.kind {
				t.Errorf("kind = %v, want %v", cs.Kind, tt.kind)
			}
		})
	}
}

func TestCythonDecodeMalformed(t *testing.T) {
	malformed := []string{
		"__pyx_pf_9pkg_3foo",   // declared length past the end
		"__pyx_pf_3pk",         // segment shorter than declared
		"__pyx_pf_3pkg_",       // trailing qualifier, no member
		"__pyx_pf_12345foo",    // implausible length digits
		"__pyx_pf_",            // empty tail
		"__pyx_pf_3pkg_3mo-d",  // non-identifier bytes
		"not_cython_at_all",    // wrong prefix entirely
		"PyInit_",              // empty module name
		"__pyx_pymod_exec_a.b", // module names are single identifiers
	}
	strat := cythonStrategy{}
	for _, name := range malformed {
		if cs, ok := strat.Decode(symtab.RawSymbol{Name: name}); ok {
			t.Errorf("Decode(%q) = %+v, want failure", name, cs)
		}
	}
}

func TestGenericDecode(t *testing.T) {
	strat := genericStrategy{}
	cs := decode(t, strat, "pkg.mod.Klass.run")
	if got := strings.Join(cs.ModulePath, "."); got != "pkg.mod" {
		t.Errorf("module path = %q, want %q", got, "pkg.mod")
	}
	if cs.OwnerClass != "Klass" || cs.MemberName != "run" || cs.Kind != KindMethod {
		t.Errorf("got owner=%q member=%q kind=%v", cs.OwnerClass, cs.MemberName, cs.Kind)
	}

	for _, bad := range []string{"nodots", ".leading", "trailing.", "sp ace.x"} {
		if _, ok := strat.Decode(symtab.RawSymbol{Name: bad}); ok {
			t.Errorf("Decode(%q) succeeded, want failure", bad)
		}
	}
}

func TestDetect(t *testing.T) {
	cython := []symtab.RawSymbol{
		{Name: "__pyx_pf_3pkg_3foo"},
		{Name: "__pyx_pf_3pkg_3bar"},
		{Name: "pkg.stray"},
	}
	if got := Detect(cython).Name(); got != "cython" {
		t.Errorf("Detect = %q, want cython", got)
	}

	dotted := []symtab.RawSymbol{
		{Name: "pkg.mod.foo"},
		{Name: "pkg.mod.bar"},
	}
	if got := Detect(dotted).Name(); got != "generic" {
		t.Errorf("Detect = %q, want generic", got)
	}

	if got := Detect(nil).Name(); got != "generic" {
		t.Errorf("Detect(nil) = %q, want generic fallback", got)
	}
}

func TestByName(t *testing.T) {
	if s, ok := ByName("cython"); !ok || s.Name() != "cython" {
		t.Errorf("ByName(cython) = %v, %v", s, ok)
	}
	if _, ok := ByName("itanium"); ok {
		t.Error("ByName(itanium) succeeded, want miss")
	}
}

func TestClassifyDegradesMalformed(t *testing.T) {
	syms := []symtab.RawSymbol{
		{Name: "PyInit_pkg", Addr: 0x1000},
		{Name: "__pyx_pf_9pkg_3foo", Addr: 0x1010},
	}
	var diags cyfmt.Diags
	out := Classify(syms, cythonStrategy{}, &diags)
	if len(out) != 2 {
		t.Fatalf("Classify dropped symbols: got %d, want 2", len(out))
	}

	bad := out[1]
	if bad.Kind != KindUnknown {
		t.Errorf("kind = %v, want unknown", bad.Kind)
	}
	if bad.MemberName != "__pyx_pf_9pkg_3foo" {
		t.Errorf("member = %q, want the raw name preserved", bad.MemberName)
	}
	// Undecodable symbols inherit the binary's primary module.
	if len(bad.ModulePath) != 1 || bad.ModulePath[0] != "pkg" {
		t.Errorf("module path = %v, want [pkg]", bad.ModulePath)
	}
	if diags.Len() != 1 {
		t.Fatalf("diags = %d, want 1", diags.Len())
	}
	if diags.Items()[0].Kind != cyfmt.DiagUnknownName {
		t.Errorf("diag kind = %q, want %q", diags.Items()[0].Kind, cyfmt.DiagUnknownName)
	}
}

func TestClassifyPrimaryModuleFallback(t *testing.T) {
	// No module-init symbol: the first decoded segment stands in.
	syms := []symtab.RawSymbol{
		{Name: "__pyx_pf_3pkg_3foo", Addr: 0x1000},
		{Name: "garbage", Addr: 0x1010},
	}
	out := Classify(syms, cythonStrategy{}, nil)
	if got := out[1].ModulePath; len(got) != 1 || got[0] != "pkg" {
		t.Errorf("module path = %v, want [pkg]", got)
	}

	// Nothing decodes at all: the placeholder keeps the invariant.
	out = Classify([]symtab.RawSymbol{{Name: "garbage", Addr: 1}}, cythonStrategy{}, nil)
	if got := out[0].ModulePath; len(got) != 1 || got[0] != "_unknown" {
		t.Errorf("module path = %v, want [_unknown]", got)
	}
}

func TestQualifiedPath(t *testing.T) {
	cs := ClassifiedSymbol{ModulePath: []string{"pkg", "mod"}, OwnerClass: "Klass", MemberName: "run"}
	if got := cs.QualifiedPath(); got != "pkg.mod.Klass.run" {
		t.Errorf("QualifiedPath = %q", got)
	}
	cs.OwnerClass = ""
	if got := cs.QualifiedPath(); got != "pkg.mod.run" {
		t.Errorf("QualifiedPath = %q", got)
	}
}

func TestLooksMangled(t *testing.T) {
	for _, s := range []string{"__pyx_pf_3pkg_3foo", "PyInit_mod", "pkg.mod.foo"} {
		if !LooksMangled(s) {
			t.Errorf("LooksMangled(%q) = false", s)
		}
	}
	for _, s := range []string{"computes foo", ":param x: the x", ""} {
		if LooksMangled(s) {
			t.Errorf("LooksMangled(%q) = true", s)
		}
	}
}

func FuzzCythonDecode(f *testing.F) {
	f.Add("__pyx_pf_3pkg_3mod_3foo")
	f.Add("__pyx_pf_9pkg_3foo")
	f.Add("__pyx_doc_4test_5Klass_3run")
	f.Add("PyInit_mod")
	f.Add("__pyx_")
	f.Add("")

	strat := cythonStrategy{}
	f.Fuzz(func(t *testing.T, name string) {
		cs, ok := strat.Decode(symtab.RawSymbol{Name: name})
		if !ok {
			return // degraded by the caller
		}
		if cs.MemberName == "" && cs.Kind != KindModule {
			t.Errorf("Decode(%q) produced an empty member name", name)
		}
		cs.QualifiedPath() // must not panic
	})
}
