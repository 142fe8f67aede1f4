package framing

import (
	"strings"

	"github.com/bft-labs/hubterm/internal/domain"
)

// Status markers printed by the hub firmware.
const (
	MarkerIdle    = ">>>> IDLE"
	MarkerError   = ">>>> ERROR"
	MarkerRunning = ">>>> RUNNING"
)

// Match is the result of a successful rule.
type Match struct {
	Prefix string
	Status domain.Status
	Suffix string
}

// Rule recognizes one status marker inside a text fragment.
type Rule interface {
	TryMatch(text string) (Match, bool)
}

// MarkerRule matches a literal marker and splits the text around its first
// occurrence.
type MarkerRule struct {
	Marker string
	Status domain.Status
}

// TryMatch implements Rule.
func (r MarkerRule) TryMatch(text string) (Match, bool) {
	before, after, found := strings.Cut(text, r.Marker)
	if !found {
		return Match{}, false
	}
	return Match{Prefix: before, Status: r.Status, Suffix: after}, true
}

// DefaultRules returns the hub markers in priority order: Idle, Error, Running.
func DefaultRules() []Rule {
	return []Rule{
		MarkerRule{Marker: MarkerIdle, Status: domain.StatusIdle},
		MarkerRule{Marker: MarkerError, Status: domain.StatusError},
		MarkerRule{Marker: MarkerRunning, Status: domain.StatusRunning},
	}
}

// SegmentKind tells payload segments from status segments.
type SegmentKind int

const (
	SegmentPayload SegmentKind = iota
	SegmentStatus
)

// Segment is one ordered output of classification.
type Segment struct {
	Kind   SegmentKind
	Text   string
	Status domain.Status
}

// Payload creates a payload segment.
func Payload(text string) Segment {
	return Segment{Kind: SegmentPayload, Text: text}
}

// StatusUpdate creates a status segment.
func StatusUpdate(status domain.Status) Segment {
	return Segment{Kind: SegmentStatus, Status: status}
}

// Classifier applies rules first-match-wins.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier. Without rules it uses DefaultRules.
func NewClassifier(rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Classify splits text into ordered segments: the prefix payload (if
// non-empty), the status, then the suffix payload (if non-empty). The
// boolean reports whether a marker consumed the fragment; when it is false
// the whole fragment is returned as a single payload segment.
func (c *Classifier) Classify(text string) ([]Segment, bool) {
	for _, rule := range c.rules {
		m, ok := rule.TryMatch(text)
		if !ok {
			continue
		}

		segments := make([]Segment, 0, 3)
		if m.Prefix != "" {
			segments = append(segments, Payload(m.Prefix))
		}
		segments = append(segments, StatusUpdate(m.Status))
		if m.Suffix != "" {
			segments = append(segments, Payload(m.Suffix))
		}
		return segments, true
	}

	if text == "" {
		return nil, false
	}
	return []Segment{Payload(text)}, false
}
