package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Domain counters. Exhaustions get their own series so operators can alert on
// alphabet-space pressure separately from ordinary store failures.
var (
	LinksCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkmint_links_created_total",
		Help: "Short links successfully committed.",
	})

	CodeCollisions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkmint_code_collisions_total",
		Help: "Conditional inserts that lost to an existing code and were retried.",
	})

	CreateExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkmint_create_exhausted_total",
		Help: "Create calls that ran out of allocation attempts.",
	})

	Resolves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkmint_resolves_total",
		Help: "Resolution attempts by outcome.",
	}, []string{"outcome"})
)

// Resolve outcome label values.
const (
	ResolveOutcomeOK       = "ok"
	ResolveOutcomeNotFound = "not_found"
	ResolveOutcomeExpired  = "expired"
	ResolveOutcomeError    = "error"
)
