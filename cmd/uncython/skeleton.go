package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"uncython/internal/cyfmt"
	"uncython/internal/pipeline"
)

func cmdSkeleton(args []string) error {
	fs := flag.NewFlagSet("skeleton", flag.ExitOnError)
	lib := fs.String("lib", "", "path to the compiled .so/.elf")
	out := fs.String("out", "", "output file (default: stdout)")
	minChars := fs.Int("min-chars", 4, "minimum harvested string length")
	all := fs.Bool("all", false, "keep uninteresting strings too")
	grammar := fs.String("grammar", "", "force a demangling grammar")
	window := fs.Uint64("window", 4096, "docstring correlation window in bytes")
	printUnknown := fs.Bool("print-unknown", false, "emit unclassified symbols and unclaimed strings")
	strict := fs.Bool("strict", false, "fail on first structural error")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *lib == "" {
		return fmt.Errorf("--lib is required")
	}

	cfg := cyfmt.DefaultConfig()
	cfg.MinChars = *minChars
	cfg.OnlyInteresting = !*all
	cfg.Grammar = *grammar
	cfg.Window = *window
	cfg.PrintUnknown = *printUnknown
	if *strict {
		cfg.Mode = cyfmt.ModeStrict
	}

	res, err := pipeline.AnalyzeFile(*lib, cfg)
	if err != nil {
		return err
	}

	text := ""
	for _, line := range res.Skeleton {
		text += line + "\n"
	}

	if *out != "" {
		if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(*out, []byte(text), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", *out)
	} else {
		fmt.Print(text)
	}

	if cfg.PrintUnknown {
		for _, d := range res.Diags {
			fmt.Fprintf(os.Stderr, "diag: %s\n", d)
		}
		for _, s := range res.Unclaimed {
			fmt.Fprintf(os.Stderr, "unclaimed: 0x%08x %q\n", s.Addr, s.Text)
		}
	}

	st := res.Tree.Stats
	fmt.Fprintf(os.Stderr, "%d symbols, %d members, %d docstrings (%d certain, %d heuristic), %d unclassified\n",
		st.Symbols, st.Members, st.Docstrings, st.Certain, st.Heuristic, st.Unclassified)
	return nil
}
