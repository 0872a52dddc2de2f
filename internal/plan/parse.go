package plan

import (
	"fmt"
	"regexp"
	"strings"
)

// dependsRe matches a "(depends: a, b, c)" annotation embedded in a task
// description.
var dependsRe = regexp.MustCompile(`\(depends:\s*([^)]+)\)`)

// sequentialRe matches a sequential group annotation of the form
// "Tasks 3.1-3.4 are [SEQUENTIAL] - reason".
var sequentialRe = regexp.MustCompile(`(?i)^\s*Tasks\s+(.+?)\s+are\s+\[SEQUENTIAL\]\s*-\s*(.+?)\s*$`)

// InvalidSequentialRangeError reports a malformed or empty range expression
// in a sequential group annotation. It is fatal at parse time.
type InvalidSequentialRangeError struct {
	// Text is the offending annotation or range expression.
	Text string
	// Reason describes what made the expression invalid.
	Reason string
}

// Error returns the formatted error message.
func (e *InvalidSequentialRangeError) Error() string {
	return fmt.Sprintf("invalid sequential range %q: %s", e.Text, e.Reason)
}

// ParseDependencies extracts dependency IDs from a "(depends: ...)"
// annotation in the description. Returns nil if no annotation is present.
// IDs are trimmed and deduplicated, preserving first-seen order.
func ParseDependencies(description string) []string {
	m := dependsRe.FindStringSubmatch(description)
	if m == nil {
		return nil
	}

	seen := make(map[string]bool)
	var deps []string
	for _, part := range strings.Split(m[1], ",") {
		id := strings.TrimSpace(part)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		deps = append(deps, id)
	}
	return deps
}

// ParseSequentialAnnotation parses a "Tasks <range> are [SEQUENTIAL] -
// <reason>" annotation into a SequentialGroup with its range expanded
// into an explicit ordered ID list.
func ParseSequentialAnnotation(text string) (SequentialGroup, error) {
	m := sequentialRe.FindStringSubmatch(text)
	if m == nil {
		return SequentialGroup{}, &InvalidSequentialRangeError{
			Text:   text,
			Reason: "does not match \"Tasks <range> are [SEQUENTIAL] - <reason>\"",
		}
	}

	order, err := ExpandIDRange(m[1])
	if err != nil {
		return SequentialGroup{}, err
	}

	return SequentialGroup{
		Reason: m[2],
		Order:  order,
	}, nil
}

// ExpandIDRange expands a comma/hyphen range expression over task IDs into
// an explicit ordered list. "3.1-3.4" expands to [3.1 3.2 3.3 3.4];
// comma-separated terms are concatenated in order. Hyphen ranges must stay
// within a single phase and run in ascending index order.
func ExpandIDRange(expr string) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)

	add := func(id string) error {
		if seen[id] {
			return &InvalidSequentialRangeError{Text: expr, Reason: fmt.Sprintf("duplicate id %s", id)}
		}
		seen[id] = true
		ids = append(ids, id)
		return nil
	}

	for _, term := range strings.Split(expr, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			return nil, &InvalidSequentialRangeError{Text: expr, Reason: "empty term"}
		}

		lo, hi, isRange := splitRangeTerm(term)
		if !isRange {
			if _, _, ok := SplitID(term); !ok {
				return nil, &InvalidSequentialRangeError{Text: expr, Reason: fmt.Sprintf("%q is not a phase.index id", term)}
			}
			if err := add(term); err != nil {
				return nil, err
			}
			continue
		}

		lp, li, lok := SplitID(lo)
		hp, hi2, hok := SplitID(hi)
		if !lok || !hok {
			return nil, &InvalidSequentialRangeError{Text: expr, Reason: fmt.Sprintf("range %q endpoints must be phase.index ids", term)}
		}
		if lp != hp {
			return nil, &InvalidSequentialRangeError{Text: expr, Reason: fmt.Sprintf("range %q crosses phases", term)}
		}
		if li > hi2 {
			return nil, &InvalidSequentialRangeError{Text: expr, Reason: fmt.Sprintf("range %q runs backwards", term)}
		}
		for i := li; i <= hi2; i++ {
			if err := add(fmt.Sprintf("%d.%d", lp, i)); err != nil {
				return nil, err
			}
		}
	}

	if len(ids) == 0 {
		return nil, &InvalidSequentialRangeError{Text: expr, Reason: "expands to no ids"}
	}
	return ids, nil
}

// splitRangeTerm splits "3.1-3.4" into its endpoints. A term with no
// hyphen (or a hyphen that would leave an empty side) is not a range.
func splitRangeTerm(term string) (lo, hi string, ok bool) {
	dash := strings.IndexByte(term, '-')
	if dash <= 0 || dash == len(term)-1 {
		return "", "", false
	}
	return strings.TrimSpace(term[:dash]), strings.TrimSpace(term[dash+1:]), true
}
