package main

import (
	"flag"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/sync/errgroup"

	"uncython/internal/cyfmt"
	"uncython/internal/pipeline"
)

func cmdBatch(args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	dir := fs.String("dir", "", "directory tree of compiled binaries")
	out := fs.String("out", "", "output directory (mirrors the source layout)")
	ext := fs.String("ext", ".so,.elf", "comma-separated extensions to analyze")
	jobs := fs.Int("jobs", 4, "parallel analyses")
	minChars := fs.Int("min-chars", 4, "minimum harvested string length")
	grammar := fs.String("grammar", "", "force a demangling grammar")
	printUnknown := fs.Bool("print-unknown", false, "emit per-file diagnostics")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir == "" || *out == "" {
		return fmt.Errorf("--dir and --out are required")
	}

	cfg := cyfmt.DefaultConfig()
	cfg.MinChars = *minChars
	cfg.Grammar = *grammar
	cfg.PrintUnknown = *printUnknown

	exts := map[string]bool{}
	for _, e := range strings.Split(*ext, ",") {
		e = strings.TrimSpace(e)
		if e != "" {
			exts[e] = true
		}
	}

	var paths []string
	var totalBytes uint64
	err := filepath.WalkDir(*dir, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && exts[filepath.Ext(path)] {
			paths = append(paths, path)
			if info, err := d.Info(); err == nil {
				totalBytes += uint64(info.Size())
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", *dir, err)
	}
	sort.Strings(paths)

	// Each file is an independent unit of work; one file's failure never
	// stops the rest. A skeleton is written only after its own analysis
	// fully succeeded, so cancellation cannot corrupt completed output.
	var tally pipeline.Tally

	var g errgroup.Group
	g.SetLimit(*jobs)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			o := pipeline.Outcome{Path: path}

			res, err := pipeline.AnalyzeFile(path, cfg)
			if err != nil {
				o.Err = err.Error()
				tally.Record(o)
				return nil
			}

			rel, err := filepath.Rel(*dir, path)
			if err != nil {
				rel = filepath.Base(path)
			}
			target := filepath.Join(*out, rel+".skel")
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				o.Err = err.Error()
				tally.Record(o)
				return nil
			}
			text := strings.Join(res.Skeleton, "\n") + "\n"
			if err := os.WriteFile(target, []byte(text), 0o644); err != nil {
				o.Err = err.Error()
				tally.Record(o)
				return nil
			}

			o.Out = target
			o.Stats = res.Tree.Stats
			tally.Record(o)

			if cfg.PrintUnknown {
				for _, d := range res.Diags {
					fmt.Fprintf(os.Stderr, "%s: diag: %s\n", path, d)
				}
			}
			return nil
		})
	}
	_ = g.Wait() // workers record their own failures

	outcomes := tally.Outcomes()
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Path < outcomes[j].Path })

	table := tablewriter.NewWriter(os.Stderr)
	table.SetHeader([]string{"File", "Members", "Docstrings", "Unclassified", "Error"})
	var errs *multierror.Error
	for _, o := range outcomes {
		errMsg := ""
		if o.Err != "" {
			errMsg = o.Err
			errs = multierror.Append(errs, fmt.Errorf("%s: %s", o.Path, o.Err))
		}
		table.Append([]string{
			o.Path,
			strconv.Itoa(o.Stats.Members),
			strconv.Itoa(o.Stats.Docstrings),
			strconv.Itoa(o.Stats.Unclassified),
			errMsg,
		})
	}
	table.Render()

	ok := len(outcomes) - tally.Failed()
	color.New(color.FgGreen).Fprintf(os.Stderr, "%d recovered", ok)
	if tally.Failed() > 0 {
		fmt.Fprint(os.Stderr, ", ")
		color.New(color.FgRed).Fprintf(os.Stderr, "%d failed", tally.Failed())
	}
	fmt.Fprintf(os.Stderr, " of %d files (%s)\n", len(outcomes), humanize.Bytes(totalBytes))

	return errs.ErrorOrNil()
}
