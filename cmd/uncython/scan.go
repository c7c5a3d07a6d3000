package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"uncython/internal/demangle"
	"uncython/internal/elfx"
	"uncython/internal/symtab"
)

func cmdScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	lib := fs.String("lib", "", "path to the compiled .so/.elf")
	jsonOut := fs.Bool("json", false, "output as JSON")
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

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Size     int64              `json:"size"`
			Sections []elfx.SectionInfo `json:"sections"`
			Symbols  int                `json:"symbols"`
			Grammar  string             `json:"grammar"`
		}{f.FileSize(), f.Sections(), len(syms), strat.Name()})
	}

	fmt.Fprintf(os.Stderr, "ELF: %s\n", humanize.Bytes(uint64(f.FileSize())))

	fmt.Println("Sections:")
	for _, s := range f.Sections() {
		perm := "r"
		if s.Writable {
			perm += "w"
		}
		if s.Exec {
			perm += "x"
		}
		marker := ""
		if s.ReadOnlyData() {
			marker = "  (string harvest)"
		}
		fmt.Printf("  [%2d] %-20s addr=0x%08x size=%-10s %s%s\n",
			s.Index, s.Name, s.Addr, humanize.Bytes(s.Size), perm, marker)
	}

	fmt.Printf("\nSymbols:  %d\n", len(syms))
	fmt.Printf("Grammar:  %s\n", strat.Name())
	return nil
}
