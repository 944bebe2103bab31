// Package text implements the first/last character replacement.
//
// Lengths and positions are counted in UTF-16 code units so results line up
// with what browser and JVM clients report as string length.
package text

import (
	"context"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/i474232898/forecast-text-service/internal/failure"
)

const (
	firstMarker = '*'
	lastMarker  = '$'
	minLength   = 2
)

// Replacement is the result of a transformation.
type Replacement struct {
	OriginalText string `json:"originalText"`
	ReplacedText string `json:"replacedText"`
}

// Record is a persisted Replacement. ID and CreatedAt are assigned by the store.
type Record struct {
	ID           string    `json:"id"`
	OriginalText string    `json:"originalText"`
	ReplacedText string    `json:"replacedText"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Store persists replacements. Records are append-only.
type Store interface {
	SaveReplacement(ctx context.Context, rec Record) (string, error)
	// ListReplacements returns up to limit records, newest first. An empty
	// originalText matches every record.
	ListReplacements(ctx context.Context, originalText string, limit int) ([]Record, error)
}

// Length reports the length of s in UTF-16 code units.
func Length(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// Transform overwrites the first code unit with '*' and the last with '$'.
// ok is false for two-unit input, which has no transformation. Invalid UTF-8
// sequences are replaced with U+FFFD first, in both returned fields.
func Transform(s string) (r Replacement, ok bool, err error) {
	s = strings.ToValidUTF8(s, "\uFFFD")
	units := utf16.Encode([]rune(s))
	switch n := len(units); {
	case n < minLength:
		return Replacement{}, false, failure.InvalidArgument("Text length must be at least 2 characters")
	case n == minLength:
		return Replacement{}, false, nil
	}

	units[0] = firstMarker
	units[len(units)-1] = lastMarker

	return Replacement{
		OriginalText: s,
		ReplacedText: string(utf16.Decode(units)),
	}, true, nil
}
