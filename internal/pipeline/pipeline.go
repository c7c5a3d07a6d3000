// Package pipeline runs the full single-binary analysis: load, read
// symbols, classify, harvest strings, correlate, assemble the skeleton.
//
// Analyze is a pure function over one binary's bytes and a configuration;
// it knows nothing about file-system traversal. Each stage is stateless
// given the previous stage's complete output.
package pipeline

import (
	"fmt"
	"sync"

	"uncython/internal/correlate"
	"uncython/internal/cyfmt"
	"uncython/internal/demangle"
	"uncython/internal/elfx"
	"uncython/internal/harvest"
	"uncython/internal/skeleton"
	"uncython/internal/symtab"
)

// Result is everything one analysis produced.
type Result struct {
	Skeleton  []string         `json:"-"` // rendered text lines
	Tree      *skeleton.Tree   `json:"tree"`
	Grammar   string           `json:"grammar"`
	Symbols   int              `json:"symbols"`
	Strings   int              `json:"strings"`
	Diags     []cyfmt.Diag     `json:"diagnostics,omitempty"`
	Unclaimed []harvest.String `json:"-"`

	// Harvested carries the full string inventory when the configuration
	// asks for it; nil otherwise.
	Harvested []harvest.String `json:"strings,omitempty"`
}

// Analyze runs the pipeline over an in-memory binary image. source is a
// label for the rendered header only. Fatal errors are limited to the
// loader's taxonomy; everything past loading degrades and is reported via
// diagnostics.
func Analyze(data []byte, source string, cfg cyfmt.Config) (*Result, error) {
	f, err := elfx.NewBytes(data)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return run(f, source, cfg)
}

// AnalyzeFile runs the pipeline over a binary on disk.
func AnalyzeFile(path string, cfg cyfmt.Config) (*Result, error) {
	f, err := elfx.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return run(f, path, cfg)
}

func run(f *elfx.File, source string, cfg cyfmt.Config) (*Result, error) {
	var diags cyfmt.Diags

	syms := symtab.Read(f)

	strat := demangle.Detect(syms)
	if cfg.Grammar != "" {
		s, ok := demangle.ByName(cfg.Grammar)
		if !ok {
			return nil, fmt.Errorf("pipeline: unknown grammar %q", cfg.Grammar)
		}
		strat = s
	}

	classified := demangle.Classify(syms, strat, &diags)

	strs, err := harvest.ScanAll(f, cfg, &diags)
	if err != nil {
		return nil, fmt.Errorf("pipeline: harvest: %w", err)
	}

	res := correlate.Correlate(classified, strs, cfg, &diags)
	tree := skeleton.Build(res, strat.Name())

	out := &Result{
		Skeleton:  tree.Render(source),
		Tree:      tree,
		Grammar:   strat.Name(),
		Symbols:   len(syms),
		Strings:   len(strs),
		Diags:     diags.Items(),
		Unclaimed: res.Unclaimed,
	}
	if cfg.StoreAllStrings {
		out.Harvested = strs
	}
	return out, nil
}

// Outcome is the per-file result of a batch run.
type Outcome struct {
	Path  string         `json:"path"`
	Out   string         `json:"out,omitempty"`
	Stats skeleton.Stats `json:"stats"`
	Err   string         `json:"error,omitempty"`
}

// Tally accumulates batch progress. It is an explicit value threaded
// through per-file calls rather than process-wide counters, safe to share
// across workers.
type Tally struct {
	mu       sync.Mutex
	outcomes []Outcome
	failed   int
}

// Record adds one file's outcome.
func (t *Tally) Record(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.outcomes = append(t.outcomes, o)
	if o.Err != "" {
		t.failed++
	}
}

// Outcomes returns the recorded outcomes; order follows recording.
func (t *Tally) Outcomes() []Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Outcome, len(t.outcomes))
	copy(out, t.outcomes)
	return out
}

// Failed returns how many files ended in a fatal per-file error.
func (t *Tally) Failed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failed
}
