package main

import (
	"flag"
	"fmt"
	"strings"

	"uncython/internal/cyfmt"
	"uncython/internal/elfx"
	"uncython/internal/harvest"
)

func cmdStrings(args []string) error {
	fs := flag.NewFlagSet("strings", flag.ExitOnError)
	lib := fs.String("lib", "", "path to the compiled .so/.elf")
	minChars := fs.Int("min-chars", 4, "minimum string length")
	all := fs.Bool("all", false, "keep uninteresting strings too")
	utf8Mode := fs.Bool("utf8", false, "accept extended UTF-8 runs")
	maxLen := fs.Int("max-len", 200, "max display length per string (0 = unlimited)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *lib == "" {
		return fmt.Errorf("--lib is required")
	}

	cfg := cyfmt.DefaultConfig()
	cfg.MinChars = *minChars
	cfg.OnlyInteresting = !*all
	if *utf8Mode {
		cfg.Charset = cyfmt.CharsetUTF8
	}

	f, err := elfx.Open(*lib)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	var diags cyfmt.Diags
	strs, err := harvest.ScanAll(f, cfg, &diags)
	if err != nil {
		return fmt.Errorf("harvest: %w", err)
	}

	sections := f.Sections()
	for _, s := range strs {
		display := s.Text
		display = strings.ReplaceAll(display, "\n", "\\n")
		display = strings.ReplaceAll(display, "\t", "\\t")
		truncated := ""
		if *maxLen > 0 && len(display) > *maxLen {
			display = display[:*maxLen]
			truncated = "..."
		}
		fmt.Printf("  0x%08x %-16s %q%s\n", s.Addr, sections[s.SectionIndex].Name, display, truncated)
	}
	fmt.Printf("%d strings\n", len(strs))

	for _, d := range diags.Items() {
		fmt.Printf("  diag: %s\n", d)
	}
	return nil
}
