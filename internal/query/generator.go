package query

import (
	"log/slog"
	"math/rand/v2"
	"strings"

	"storyreel/internal/logging"
	"storyreel/internal/segment"
	"storyreel/internal/textutil"
)

const (
	fullTextRunes    = 100
	titleKeywords    = 2
	segmentKeywords  = 4
	keywordsPerQuery = 2
	simplifyKeywords = 2
)

// Options configures a Generator.
type Options struct {
	// FullText uses the segment text itself as the query when non-empty.
	FullText bool
	Title    string
}

// Generator produces search queries for caption segments.
type Generator struct {
	tables   Tables
	rng      *rand.Rand
	opts     Options
	titleKws []string
	logger   *slog.Logger
}

// NewGenerator builds a generator. The random source drives phrase-table picks.
func NewGenerator(tables Tables, rng *rand.Rand, opts Options, logger *slog.Logger) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(0, 0))
	}
	g := &Generator{
		tables: tables,
		rng:    rng,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "query"),
	}
	if title := strings.TrimSpace(opts.Title); title != "" {
		g.titleKws = ExtractKeywords(title, titleKeywords, tables.Stopwords)
	}
	return g
}

// Generate returns the first query tried for seg.
func (g *Generator) Generate(seg segment.Segment, style Style) string {
	text := strings.TrimSpace(seg.Text)

	if g.opts.FullText && text != "" {
		q := g.withTitle(textutil.TruncateRunes(text, fullTextRunes))
		g.logger.Debug("full text query", logging.Int("segment_index", seg.Index), logging.String("query", q))
		return q
	}

	kws := ExtractKeywords(text, segmentKeywords, g.tables.Stopwords)
	if len(kws) == 0 {
		q := g.withTitle(g.phrase(style))
		g.logger.Debug("no keywords, using theme phrase", logging.Int("segment_index", seg.Index), logging.String("query", q))
		return q
	}
	if len(g.titleKws) > 0 {
		kws = append(append([]string(nil), g.titleKws...), kws[:min(keywordsPerQuery, len(kws))]...)
	}
	q := g.withStyle(strings.Join(kws, " "), style)
	g.logger.Debug("keyword query", logging.Int("segment_index", seg.Index), logging.String("query", q))
	return q
}

// Simplify returns a shorter retry query for one that found nothing.
func (g *Generator) Simplify(failed string, style Style) string {
	kws := ExtractKeywords(failed, simplifyKeywords, g.tables.Stopwords)
	if len(kws) == 0 {
		return g.withTitle(g.phrase(style))
	}
	if len(g.titleKws) > 0 {
		kws = append(append([]string(nil), g.titleKws...), kws[0])
	}
	return g.withStyle(strings.Join(kws, " "), style)
}

func (g *Generator) withTitle(q string) string {
	if len(g.titleKws) == 0 {
		return q
	}
	return strings.Join(g.titleKws, " ") + " " + q
}

func (g *Generator) withStyle(q string, style Style) string {
	if style == StyleGeneral || style == "" {
		return q
	}
	if _, known := g.tables.Phrases[style]; !known {
		return q
	}
	return q + " " + string(style)
}

func (g *Generator) phrase(style Style) string {
	phrases, ok := g.tables.Phrases[style]
	if !ok || len(phrases) == 0 {
		phrases = g.tables.Phrases[StyleGeneral]
	}
	if len(phrases) == 0 {
		return string(StyleGeneral)
	}
	return phrases[g.rng.IntN(len(phrases))]
}
