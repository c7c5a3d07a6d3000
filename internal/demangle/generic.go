package demangle

import (
	"strings"

	"uncython/internal/symtab"
)

// genericStrategy decodes dot-delimited qualified paths kept verbatim in
// symbol names (pkg.mod.Class.foo). It is the fallback grammar when no
// length-prefixed signature is present, and mirrors the dotted-path
// candidates the string harvester surfaces from stripped binaries.
type genericStrategy struct{}

func (genericStrategy) Name() string { return "generic" }

func (genericStrategy) Match(name string) bool {
	return isDottedPath(name)
}

func (genericStrategy) Decode(raw symtab.RawSymbol) (ClassifiedSymbol, bool) {
	if !isDottedPath(raw.Name) {
		return ClassifiedSymbol{}, false
	}
	segs := strings.Split(raw.Name, ".")
	return shape(raw, KindFunction, "", segs), true
}

// isDottedPath matches strings made of identifier segments joined by dots,
// with at least one dot and no leading or trailing dot.
func isDottedPath(s string) bool {
	if !strings.Contains(s, ".") {
		return false
	}
	for _, seg := range strings.Split(s, ".") {
		if !isIdent(seg) {
			return false
		}
	}
	return true
}
