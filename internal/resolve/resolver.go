package resolve

import (
	"context"
	"log/slog"
	"math/rand/v2"

	"github.com/samber/lo"

	"storyreel/internal/logging"
	"storyreel/internal/sources"
)

// Chain is the ordered set of sources consulted for a query. Nil members are skipped.
type Chain struct {
	Primary  sources.Source
	Fallback sources.Source
	Images   sources.Source
}

// ChainFromSet adapts a configured source set.
func ChainFromSet(set sources.Set) Chain {
	return Chain{Primary: set.Primary, Fallback: set.Fallback, Images: set.Images}
}

// Resolver turns queries into assets.
type Resolver struct {
	chain    Chain
	perQuery int
	rng      *rand.Rand
	logger   *slog.Logger
}

// NewResolver builds a resolver asking each source for up to perQuery candidates.
func NewResolver(chain Chain, perQuery int, rng *rand.Rand, logger *slog.Logger) *Resolver {
	if rng == nil {
		rng = rand.New(rand.NewPCG(0, 0))
	}
	return &Resolver{
		chain:    chain,
		perQuery: max(1, perQuery),
		rng:      rng,
		logger:   logging.NewComponentLogger(logger, "resolver"),
	}
}

// Resolve picks an asset for query and records it in used. Source failures are
// logged and treated as empty results.
func (r *Resolver) Resolve(ctx context.Context, query string, used *UsedSet) Asset {
	logger := logging.WithContext(ctx, r.logger)

	var videos []sources.Candidate
	for _, src := range []sources.Source{r.chain.Primary, r.chain.Fallback} {
		videos = append(videos, r.search(ctx, logger, src, query)...)
	}
	if len(videos) > 0 {
		pick, reused := r.pick(videos, used)
		logger.Info("video asset selected",
			logging.String("query", query),
			logging.String("source", pick.Source),
			logging.String("locator", pick.Locator),
			logging.Int("candidates", len(videos)),
			logging.Bool("reused", reused),
		)
		return VideoAsset{Locator: pick.Locator, Source: pick.Source, Reused: reused}
	}

	if images := r.search(ctx, logger, r.chain.Images, query); len(images) > 0 {
		pick, reused := r.pick(images, used)
		logger.Info("image asset selected",
			logging.String("query", query),
			logging.String("source", pick.Source),
			logging.String("locator", pick.Locator),
			logging.Int("candidates", len(images)),
			logging.Bool("reused", reused),
		)
		return ImageAsset{Locator: pick.Locator, Source: pick.Source, Reused: reused}
	}

	logger.Info("no asset found", logging.String("query", query))
	return NoAsset{Query: query}
}

func (r *Resolver) search(ctx context.Context, logger *slog.Logger, src sources.Source, query string) []sources.Candidate {
	if src == nil {
		return nil
	}
	res := src.Search(ctx, query, r.perQuery)
	switch res.Outcome() {
	case sources.OutcomeFailed:
		logging.WarnWithContext(logger, "source search failed", "source_error",
			logging.String("source", src.Name()),
			logging.String("query", query),
			logging.Error(res.Err),
			logging.String(logging.FieldErrorHint, "check network access and provider API keys"),
			logging.String(logging.FieldImpact, "source treated as returning no candidates"),
		)
		return nil
	case sources.OutcomeEmpty:
		logger.Debug("source returned no candidates", logging.String("source", src.Name()), logging.String("query", query))
		return nil
	}
	return lo.UniqBy(res.Candidates, func(c sources.Candidate) string { return c.Locator })
}

// pick chooses uniformly among unused candidates, or among all of them once
// every candidate has been used, and records the choice.
func (r *Resolver) pick(candidates []sources.Candidate, used *UsedSet) (sources.Candidate, bool) {
	candidates = lo.UniqBy(candidates, func(c sources.Candidate) string { return c.Locator })
	pool := lo.Filter(candidates, func(c sources.Candidate, _ int) bool { return !used.Contains(c.Locator) })
	reused := len(pool) == 0
	if reused {
		pool = candidates
		r.logger.Debug("all candidates already used, allowing reuse", logging.Int("candidates", len(candidates)))
	}
	choice := pool[r.rng.IntN(len(pool))]
	used.Add(choice.Locator)
	return choice, reused
}
