package sources

import (
	"context"
	"fmt"
	"strings"
)

// Kind distinguishes moving footage from stills.
type Kind int

const (
	KindVideo Kind = iota
	KindImage
)

func (k Kind) String() string {
	if k == KindImage {
		return "image"
	}
	return "video"
}

// Candidate is one downloadable asset locator tagged with the source that produced it.
type Candidate struct {
	Locator string
	Source  string
}

// Outcome classifies a search result.
type Outcome int

const (
	OutcomeEmpty Outcome = iota
	OutcomeFound
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeFailed:
		return "failed"
	default:
		return "empty"
	}
}

// Result is the explicit outcome of one search call.
type Result struct {
	Candidates []Candidate
	Err        error
}

// Outcome reports whether the search found candidates, found none, or failed.
func (r Result) Outcome() Outcome {
	switch {
	case r.Err != nil:
		return OutcomeFailed
	case len(r.Candidates) > 0:
		return OutcomeFound
	default:
		return OutcomeEmpty
	}
}

// Found wraps locators from the named source.
func Found(source string, locators []string) Result {
	out := make([]Candidate, 0, len(locators))
	for _, loc := range locators {
		if loc = strings.TrimSpace(loc); loc != "" {
			out = append(out, Candidate{Locator: loc, Source: source})
		}
	}
	return Result{Candidates: out}
}

// Failed records a search error for the named source.
func Failed(source string, err error) Result {
	return Result{Err: fmt.Errorf("%s: %w", source, err)}
}

// Source searches one provider for assets of a single Kind.
type Source interface {
	Name() string
	Kind() Kind
	Search(ctx context.Context, query string, count int) Result
}
