// Package complexity sorts free-text generation requests into coarse complexity levels.
package complexity

import (
	"strings"
	"unicode/utf8"
)

// Level is the derived complexity of a request.
type Level int

const (
	Simple Level = iota
	Medium
	Complex
)

func (l Level) String() string {
	switch l {
	case Simple:
		return "simple"
	case Medium:
		return "medium"
	case Complex:
		return "complex"
	default:
		return "unknown"
	}
}

const (
	complexKeywordThreshold = 2
	complexLengthThreshold  = 200
	simpleLengthThreshold   = 50
)

var defaultClassifier = NewClassifier(DefaultKeywords())

// Classifier matches request text against fixed keyword lists.
type Classifier struct {
	keywords Keywords
}

// NewClassifier creates a classifier over the given keyword lists.
func NewClassifier(kw Keywords) *Classifier {
	return &Classifier{keywords: kw}
}

// Classify uses the built-in keyword lists.
func Classify(text string) Level {
	return defaultClassifier.Classify(text)
}

// Classify returns Complex when two or more complex keywords match or the text is longer
// than 200 characters, otherwise Simple when a simple keyword matches or the text is
// shorter than 50 characters, otherwise Medium. The complex check runs first.
func (c *Classifier) Classify(text string) Level {
	lower := strings.ToLower(text)
	length := utf8.RuneCountInString(text)

	if countMatches(lower, c.keywords.Complex) >= complexKeywordThreshold || length > complexLengthThreshold {
		return Complex
	}
	if countMatches(lower, c.keywords.Simple) >= 1 || length < simpleLengthThreshold {
		return Simple
	}
	return Medium
}

func countMatches(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}
