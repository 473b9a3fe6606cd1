package locator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/smazurov/chromenode/internal/logging"
)

// ErrNoInstallationFound is returned when no usable browser executable is
// known, either at discovery time or when the ranked list runs out.
var ErrNoInstallationFound = errors.New("no browser installation found")

// executableSuffixes are tested inside every registered bundle, canary first.
var executableSuffixes = []string{
	"Contents/MacOS/Google Chrome Canary",
	"Contents/MacOS/Google Chrome",
}

// Candidate is a discovered executable and its priority.
type Candidate struct {
	Path   string `json:"path"`
	Weight int    `json:"weight"`
}

// Options configures a Locator.
type Options struct {
	// Registry lists installed bundles. Defaults to LSRegister.
	Registry Registry

	// Rules scores candidate paths. Defaults to DefaultRules($HOME).
	Rules []Rule

	// ExecutablePath bypasses discovery when set.
	ExecutablePath string

	// Exists reports whether a path is present. Defaults to os.Stat.
	Exists func(path string) bool

	// Logger for discovery. If nil, uses slog.Default().
	Logger logging.Logger
}

// Locator discovers and ranks browser installations.
type Locator struct {
	registry Registry
	rules    []Rule
	override string
	exists   func(string) bool
	logger   logging.Logger
}

// New creates a Locator.
func New(opts Options) *Locator {
	l := &Locator{
		registry: opts.Registry,
		rules:    opts.Rules,
		override: opts.ExecutablePath,
		exists:   opts.Exists,
		logger:   opts.Logger,
	}
	if l.registry == nil {
		l.registry = &LSRegister{}
	}
	if l.rules == nil {
		home, _ := os.UserHomeDir()
		l.rules = DefaultRules(home)
	}
	if l.exists == nil {
		l.exists = fileExists
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Locate returns installed executables ranked by weight, highest first.
// Candidates with equal weight keep their discovery order.
func (l *Locator) Locate(ctx context.Context) (*Ranked, error) {
	if l.override != "" {
		if !l.exists(l.override) {
			return nil, fmt.Errorf("executable %q: %w", l.override, ErrNoInstallationFound)
		}
		return NewRanked([]Candidate{{Path: l.override, Weight: 0}}), nil
	}

	bundles, err := l.registry.Bundles(ctx)
	if err != nil {
		return nil, fmt.Errorf("query application registry: %w", err)
	}

	var candidates []Candidate
	for _, bundle := range bundles {
		for _, suffix := range executableSuffixes {
			path := filepath.Join(bundle, suffix)
			if !l.exists(path) {
				continue
			}
			candidates = append(candidates, Candidate{Path: path, Weight: Score(l.rules, path)})
		}
	}

	if len(candidates) == 0 {
		return nil, ErrNoInstallationFound
	}

	ranked := Rank(candidates)
	for i, c := range ranked.All() {
		l.logger.Debug("Installation candidate", "rank", i, "path", c.Path, "weight", c.Weight)
	}
	return ranked, nil
}

// Rank sorts candidates by weight descending. The input slice is not modified.
func Rank(candidates []Candidate) *Ranked {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Weight > sorted[j].Weight
	})
	return NewRanked(sorted)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
