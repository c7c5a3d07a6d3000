// Package cyfmt provides shared configuration and diagnostics for Cython
// binary analysis.
package cyfmt

import "fmt"

// DiagKind classifies a diagnostic message.
type DiagKind string

const (
	DiagTruncated   DiagKind = "truncated"
	DiagInvalid     DiagKind = "invalid"
	DiagUnknownName DiagKind = "unknown_name"
	DiagUnclaimed   DiagKind = "unclaimed"
	DiagClamped     DiagKind = "clamped"
)

// Diag records a non-fatal issue encountered during analysis.
type Diag struct {
	Offset uint64   `json:"offset"`
	Kind   DiagKind `json:"kind"`
	Msg    string   `json:"msg"`
}

func (d Diag) String() string {
	return fmt.Sprintf("[%s] 0x%x: %s", d.Kind, d.Offset, d.Msg)
}

// Diags accumulates diagnostics.
type Diags struct {
	items []Diag
}

func (d *Diags) Add(offset uint64, kind DiagKind, msg string) {
	d.items = append(d.items, Diag{Offset: offset, Kind: kind, Msg: msg})
}

func (d *Diags) Addf(offset uint64, kind DiagKind, format string, args ...any) {
	d.items = append(d.items, Diag{Offset: offset, Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

func (d *Diags) Items() []Diag { return d.items }
func (d *Diags) Len() int      { return len(d.items) }

// Mode controls error handling behavior.
type Mode int

const (
	ModeBestEffort Mode = iota // degrade with placeholders, accumulate diags
	ModeStrict                 // first structural error returns error
)

// Charset selects the printable predicate used by the string harvester.
type Charset int

const (
	CharsetASCII Charset = iota // 0x20-0x7E only
	CharsetUTF8                 // ASCII plus well-formed multi-byte UTF-8 runs
)

// Config controls a single binary analysis. The zero value is not usable;
// start from DefaultConfig.
type Config struct {
	Mode Mode

	// String harvesting.
	MinChars        int     // minimum printable run length
	OnlyInteresting bool    // suppress padding/numeric noise
	StoreAllStrings bool    // keep every qualifying run in the result
	Charset         Charset // printable predicate

	// Correlation.
	Window uint64 // docstring search window in bytes past a symbol address

	// Classification. Empty selects by detected signature.
	Grammar string

	// Diagnostics.
	PrintUnknown bool // emit unclassified symbols and unclaimed strings

	// MaxStrings caps harvested runs per section. 0 = use default.
	MaxStrings int
}

// DefaultMaxStrings bounds runaway harvests on pathological inputs.
const DefaultMaxStrings = 1_000_000

// DefaultConfig returns the standard analysis configuration.
func DefaultConfig() Config {
	return Config{
		Mode:            ModeBestEffort,
		MinChars:        4,
		OnlyInteresting: true,
		Window:          4096,
	}
}

func (c Config) EffectiveMaxStrings() int {
	if c.MaxStrings > 0 {
		return c.MaxStrings
	}
	return DefaultMaxStrings
}
