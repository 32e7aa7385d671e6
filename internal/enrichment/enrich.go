package enrichment

import (
	"context"
	"log/slog"
	"time"

	"github.com/drewfead/moviebuddy/internal"
)

// Enrich runs every provider in turn. A failing provider is recorded as an audit and
// the movie is passed on unchanged.
func Enrich(ctx context.Context, movie internal.Movie, providers ...internal.EnrichmentProvider) internal.EnrichedMovie {
	enriched := internal.EnrichedMovie{
		Source: movie,
		Audits: make([]internal.EnrichmentAudit, 0, len(providers)),
	}
	for _, provider := range providers {
		next, err := provider.Enrich(ctx, enriched)
		if err != nil {
			enriched.Audits = append(enriched.Audits, internal.EnrichmentAudit{
				Result:  internal.EnrichmentResultFailure,
				Details: err.Error(),
				At:      time.Now(),
			})
			continue
		}
		enriched = next
	}
	for i, audit := range enriched.Audits {
		slog.Debug("enrichment audit",
			"movie_id", movie.ID,
			"provider_index", i,
			"result", audit.Result,
			"details", audit.Details,
			"annotations", audit.Annotations,
		)
	}
	return enriched
}
