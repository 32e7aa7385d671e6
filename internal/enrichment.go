package internal

import "context"

type EnrichmentProvider interface {
	// Enrich makes a best-effort attempt to enrich the movie with data from the provider
	Enrich(ctx context.Context, movie EnrichedMovie) (EnrichedMovie, error)
}
