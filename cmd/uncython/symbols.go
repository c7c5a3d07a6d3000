package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"uncython/internal/cyfmt"
	"uncython/internal/demangle"
	"uncython/internal/elfx"
	"uncython/internal/symtab"
)

func cmdSymbols(args []string) error {
	fs := flag.NewFlagSet("symbols", flag.ExitOnError)
	lib := fs.String("lib", "", "path to the compiled .so/.elf")
	grammar := fs.String("grammar", "", "force a demangling grammar")
	jsonOut := fs.Bool("json", false, "output as JSON")
	unknownOnly := fs.Bool("unknown", false, "show only undecodable symbols")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *lib == "" {
		return fmt.Errorf("--lib is required")
	}

	f, err := elfx.Open(*lib)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	syms := symtab.Read(f)
	strat := demangle.Detect(syms)
	if *grammar != "" {
		s, ok := demangle.ByName(*grammar)
		if !ok {
			return fmt.Errorf("unknown grammar %q", *grammar)
		}
		strat = s
	}

	var diags cyfmt.Diags
	classified := demangle.Classify(syms, strat, &diags)

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(classified)
	}

	counts := map[demangle.Kind]int{}
	for _, cs := range classified {
		counts[cs.Kind]++
		if *unknownOnly && cs.Kind != demangle.KindUnknown {
			continue
		}
		fmt.Printf("  0x%08x %-12s %s\n", cs.Raw.Addr, cs.Kind, cs.QualifiedPath())
	}

	fmt.Fprintf(os.Stderr, "grammar: %s, %d symbols", strat.Name(), len(classified))
	for _, k := range []demangle.Kind{
		demangle.KindFunction, demangle.KindMethod, demangle.KindProperty,
		demangle.KindClass, demangle.KindModuleVar, demangle.KindUnknown,
	} {
		if counts[k] > 0 {
			fmt.Fprintf(os.Stderr, ", %d %s", counts[k], k)
		}
	}
	fmt.Fprintln(os.Stderr)
	return nil
}
