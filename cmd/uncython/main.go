package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "scan":
		err = cmdScan(os.Args[2:])
	case "strings":
		err = cmdStrings(os.Args[2:])
	case "symbols":
		err = cmdSymbols(os.Args[2:])
	case "skeleton":
		err = cmdSkeleton(os.Args[2:])
	case "batch":
		err = cmdBatch(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `uncython — Cython binary skeleton recovery

Usage:
  uncython scan     --lib <path> [--json]          Inspect container, sections, detected grammar
  uncython strings  --lib <path> [--all]           Harvest printable strings
  uncython symbols  --lib <path> [--json]          Dump classified symbols
  uncython skeleton --lib <path> [--out <file>]    Recover a source skeleton from one binary
  uncython batch    --dir <dir> --out <dir>        Recover skeletons for a directory tree

Flags:
  --lib <path>        Path to the compiled .so/.elf
  --out <path>        Output file or directory
  --min-chars <n>     Minimum harvested string length (default 4)
  --all               Keep uninteresting strings too
  --grammar <name>    Force a demangling grammar (cython, generic)
  --window <n>        Docstring correlation window in bytes (default 4096)
  --print-unknown     Emit unclassified symbols and unclaimed strings
  --strict            Fail on first structural error
`)
}
