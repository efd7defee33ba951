package reconcile

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Strategy selects how differing fields between an existing entity and an
// incoming record are resolved.
type Strategy string

const (
	// UseTheirs overwrites existing values with incoming ones. It is the default.
	UseTheirs Strategy = "use_theirs"
	// UseMine keeps existing values and skips the record.
	UseMine Strategy = "use_mine"
	// Merge takes the incoming value unless it is empty, otherwise keeps the existing one.
	Merge Strategy = "merge"
	// ManualReview changes nothing and flags every differing field.
	ManualReview Strategy = "manual_review"
)

// DefaultStrategy is used when no strategy is given.
const DefaultStrategy = UseTheirs

// Strategies returns every valid strategy in display order.
func Strategies() []Strategy {
	return []Strategy{UseTheirs, UseMine, Merge, ManualReview}
}

// Valid reports whether s is one of the known strategies.
func (s Strategy) Valid() bool {
	switch s {
	case UseTheirs, UseMine, Merge, ManualReview:
		return true
	}
	return false
}

// ParseStrategy converts user input into a Strategy. An empty value yields
// DefaultStrategy; anything unknown is a *StrategyError.
func ParseStrategy(value string) (Strategy, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return DefaultStrategy, nil
	}
	s := Strategy(v)
	if !s.Valid() {
		return "", strategyError(value)
	}
	return s, nil
}

func strategyError(value string) error {
	names := make([]string, 0, 4)
	for _, s := range Strategies() {
		names = append(names, string(s))
	}
	return errors.WithHintf(&StrategyError{Value: value}, "valid strategies: %s", strings.Join(names, ", "))
}

// Resolution records what happened to one differing field.
type Resolution int

const (
	// UsedIncoming means the incoming value replaced the existing one.
	UsedIncoming Resolution = iota
	// KeptExisting means the existing value was retained.
	KeptExisting
	// Merged means the merge rule decided the value.
	Merged
	// FlaggedForReview means nothing was changed and a person must decide.
	FlaggedForReview
)

var resolutionNames = [...]string{
	UsedIncoming:     "used_incoming",
	KeptExisting:     "kept_existing",
	Merged:           "merged",
	FlaggedForReview: "flagged_for_review",
}

func (r Resolution) String() string {
	if r < 0 || int(r) >= len(resolutionNames) {
		return fmt.Sprintf("resolution(%d)", int(r))
	}
	return resolutionNames[r]
}

// MarshalText encodes the resolution by name for JSON reports.
func (r Resolution) MarshalText() ([]byte, error) {
	if r < 0 || int(r) >= len(resolutionNames) {
		return nil, fmt.Errorf("unknown resolution %d", int(r))
	}
	return []byte(resolutionNames[r]), nil
}

// UnmarshalText decodes a resolution name.
func (r *Resolution) UnmarshalText(text []byte) error {
	for i, name := range resolutionNames {
		if name == string(text) {
			*r = Resolution(i)
			return nil
		}
	}
	return fmt.Errorf("unknown resolution %q", string(text))
}

// resolutionFor maps a strategy to the resolution recorded on its conflicts.
func resolutionFor(s Strategy) Resolution {
	switch s {
	case UseMine:
		return KeptExisting
	case Merge:
		return Merged
	case ManualReview:
		return FlaggedForReview
	default:
		return UsedIncoming
	}
}
