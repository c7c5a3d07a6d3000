// Package skeleton assembles annotated symbols into a module→class→member
// tree and renders it as a commented source skeleton.
package skeleton

import (
	"sort"
	"strings"

	"uncython/internal/correlate"
	"uncython/internal/demangle"
)

// Node is one entry in the recovered source layout. Modules own classes
// and module-level members; classes own methods and properties.
type Node struct {
	Name     string                     `json:"name"`
	Kind     demangle.Kind              `json:"kind"`
	Addr     uint64                     `json:"addr"` // ordering key: own or first member address
	Sym      *correlate.AnnotatedSymbol `json:"sym,omitempty"`
	Children []*Node                    `json:"children,omitempty"`
}

// Stats summarizes one recovered skeleton.
type Stats struct {
	Symbols      int `json:"symbols"`
	Members      int `json:"members"`
	Docstrings   int `json:"docstrings"`
	Certain      int `json:"certain"`
	Heuristic    int `json:"heuristic"`
	Unclassified int `json:"unclassified"`
}

// Tree is the assembled skeleton: one node per recovered module plus the
// full inventory of symbols that resisted classification. Unclassified
// symbols are never dropped; they render in their own section.
type Tree struct {
	Modules      []*Node                     `json:"modules"`
	Unclassified []correlate.AnnotatedSymbol `json:"unclassified,omitempty"`
	Grammar      string                      `json:"grammar"`
	Stats        Stats                       `json:"stats"`
}

// Build groups annotated symbols by module path, then by owner class, and
// orders members by ascending address with a lexicographic tie-break.
// Wrapper/implementation pairs decoding to the same path merge, preferring
// the record that carries a docstring.
func Build(res correlate.Result, grammar string) *Tree {
	t := &Tree{Grammar: grammar}
	t.Stats.Symbols = len(res.Symbols)

	modules := map[string]*Node{}
	module := func(path []string) *Node {
		key := strings.Join(path, ".")
		if m, ok := modules[key]; ok {
			return m
		}
		m := &Node{Name: key, Kind: demangle.KindModule}
		modules[key] = m
		t.Modules = append(t.Modules, m)
		return m
	}

	members := map[string]*Node{} // qualified path + kind → merged member

	for i := range res.Symbols {
		as := &res.Symbols[i]
		switch as.Kind {
		case demangle.KindUnknown:
			t.Unclassified = append(t.Unclassified, *as)
			continue
		case demangle.KindDocstring, demangle.KindStringConst:
			// Constant data: its content was already attributed by the
			// correlator; it is not a member of the source layout.
			continue
		case demangle.KindModule:
			module(as.ModulePath)
			continue
		}

		key := as.Kind.String() + " " + as.QualifiedPath()
		if prev, ok := members[key]; ok {
			merge(prev, as)
			continue
		}

		n := &Node{Name: as.MemberName, Kind: as.Kind, Addr: as.Raw.Addr, Sym: as}
		members[key] = n

		m := module(as.ModulePath)
		if as.OwnerClass != "" {
			cls := childClass(m, as.OwnerClass)
			cls.Children = append(cls.Children, n)
		} else {
			m.Children = append(m.Children, n)
		}
	}

	for _, m := range t.Modules {
		sortTree(m)
	}
	sort.Slice(t.Modules, func(i, j int) bool { return t.Modules[i].Name < t.Modules[j].Name })
	sort.SliceStable(t.Unclassified, func(i, j int) bool {
		a, b := t.Unclassified[i], t.Unclassified[j]
		if a.Raw.Addr != b.Raw.Addr {
			return a.Raw.Addr < b.Raw.Addr
		}
		return a.Raw.Name < b.Raw.Name
	})

	tally(t)
	return t
}

// merge keeps the better of two records for one source member: a docstring
// beats none, then the lower address wins.
func merge(n *Node, as *correlate.AnnotatedSymbol) {
	cur := n.Sym
	better := false
	switch {
	case as.Docstring != nil && cur.Docstring == nil:
		better = true
	case (as.Docstring != nil) == (cur.Docstring != nil) && as.Raw.Addr < cur.Raw.Addr:
		better = true
	}
	if better {
		// Carry over aux strings from the displaced record.
		merged := *as
		merged.Aux = append(merged.Aux, cur.Aux...)
		*n = Node{Name: merged.MemberName, Kind: merged.Kind, Addr: merged.Raw.Addr, Sym: &merged}
	} else if len(as.Aux) > 0 {
		keep := *cur
		keep.Aux = append(keep.Aux, as.Aux...)
		n.Sym = &keep
	}
}

func childClass(m *Node, name string) *Node {
	for _, c := range m.Children {
		if c.Kind == demangle.KindClass && c.Name == name {
			return c
		}
	}
	c := &Node{Name: name, Kind: demangle.KindClass}
	m.Children = append(m.Children, c)
	return c
}

// sortTree orders children by ascending address, lexicographic on ties.
// Class nodes inherit their first member's address as the ordering key.
func sortTree(n *Node) {
	for _, c := range n.Children {
		sortTree(c)
	}
	for _, c := range n.Children {
		if c.Kind == demangle.KindClass && len(c.Children) > 0 {
			c.Addr = c.Children[0].Addr
		}
	}
	sort.SliceStable(n.Children, func(i, j int) bool {
		a, b := n.Children[i], n.Children[j]
		if a.Addr != b.Addr {
			return a.Addr < b.Addr
		}
		return a.Name < b.Name
	})
}

func tally(t *Tree) {
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.Sym != nil {
			t.Stats.Members++
			if n.Sym.Docstring != nil {
				t.Stats.Docstrings++
			}
			switch n.Sym.Confidence {
			case correlate.ConfidenceCertain:
				t.Stats.Certain++
			case correlate.ConfidenceHeuristic:
				t.Stats.Heuristic++
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, m := range t.Modules {
		walk(m)
	}
	t.Stats.Unclassified = len(t.Unclassified)
}
