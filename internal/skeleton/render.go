package skeleton

import (
	"fmt"
	"strings"

	"uncython/internal/correlate"
	"uncython/internal/demangle"
	"uncython/internal/harvest"
)

const indent = "    "

// Render produces the skeleton as text lines. Output depends only on the
// tree and the source label, so identical input bytes and configuration
// render byte-identical skeletons.
func (t *Tree) Render(source string) []string {
	var lines []string
	add := func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}

	add("# skeleton recovered from %s", source)
	add("# grammar: %s | symbols: %d | members: %d | docstrings: %d (%d certain, %d heuristic)",
		t.Grammar, t.Stats.Symbols, t.Stats.Members,
		t.Stats.Docstrings, t.Stats.Certain, t.Stats.Heuristic)

	for _, m := range t.Modules {
		add("")
		add("# ---- module %s ----", m.Name)
		for _, c := range m.Children {
			lines = append(lines, renderNode(c, 0)...)
		}
	}

	if len(t.Unclassified) > 0 {
		add("")
		add("# ---- unclassified symbols (%d) ----", len(t.Unclassified))
		for _, as := range t.Unclassified {
			add("#   0x%08x %-6s %s", as.Raw.Addr, as.Raw.Binding, as.Raw.Name)
		}
	}

	add("")
	return lines
}

// RenderString joins the rendered lines into one blob for file output.
func (t *Tree) RenderString(source string) string {
	return strings.Join(t.Render(source), "\n")
}

func renderNode(n *Node, depth int) []string {
	pad := strings.Repeat(indent, depth)
	var lines []string

	switch n.Kind {
	case demangle.KindClass:
		lines = append(lines, "", pad+fmt.Sprintf("class %s:", n.Name))
		if len(n.Children) == 0 {
			lines = append(lines, pad+indent+"...")
		}
		for _, c := range n.Children {
			lines = append(lines, renderNode(c, depth+1)...)
		}
	case demangle.KindFunction, demangle.KindMethod:
		lines = append(lines, "", pad+fmt.Sprintf("def %s(%s):%s", n.Name, argList(n), confComment(n.Sym)))
		lines = append(lines, renderDoc(n.Sym, depth+1)...)
		lines = append(lines, pad+indent+"...")
	case demangle.KindProperty:
		lines = append(lines, "", pad+fmt.Sprintf("%s = property(...)%s", n.Name, confComment(n.Sym)))
		lines = append(lines, renderAux(n.Sym, depth)...)
	case demangle.KindModuleVar:
		lines = append(lines, pad+fmt.Sprintf("%s = ...", n.Name))
	}
	return lines
}

func argList(n *Node) string {
	if n.Kind == demangle.KindMethod {
		return "self, ..."
	}
	return "..."
}

func confComment(as *correlate.AnnotatedSymbol) string {
	if as == nil {
		return ""
	}
	return fmt.Sprintf("  # confidence: %s, addr: 0x%x", as.Confidence, as.Raw.Addr)
}

// renderDoc emits the recovered docstring as a triple-quoted block plus any
// auxiliary parameter text as comments.
func renderDoc(as *correlate.AnnotatedSymbol, depth int) []string {
	if as == nil {
		return nil
	}
	pad := strings.Repeat(indent, depth)
	var lines []string
	if as.Docstring != nil {
		doc := as.Docstring.Text
		if strings.Contains(doc, "\n") {
			lines = append(lines, pad+`"""`)
			for _, l := range strings.Split(doc, "\n") {
				lines = append(lines, pad+l)
			}
			lines = append(lines, pad+`"""`)
		} else {
			lines = append(lines, pad+`"""`+doc+`"""`)
		}
	}
	lines = append(lines, renderAux(as, depth)...)
	return lines
}

func renderAux(as *correlate.AnnotatedSymbol, depth int) []string {
	if as == nil {
		return nil
	}
	pad := strings.Repeat(indent, depth)
	var lines []string
	for _, aux := range as.Aux {
		if harvest.CommentLike(aux.Text) {
			lines = append(lines, pad+"# "+aux.Text)
		} else {
			lines = append(lines, pad+"# qualname: "+aux.Text)
		}
	}
	return lines
}
