package obs

import "github.com/prometheus/client_golang/prometheus"

var (
	// RecordWritesTotal counts create/update/delete outcomes per record kind.
	RecordWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "univ",
		Name:      "record_writes_total",
		Help:      "Count of record write outcomes by kind and operation.",
	}, []string{"kind", "op", "result"})

	// TotalsComputedTotal counts fee aggregation runs per record kind.
	TotalsComputedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "univ",
		Name:      "totals_computed_total",
		Help:      "Count of fee aggregation runs by record kind.",
	}, []string{"kind"})

	// AwardsResolvedTotal counts award resolutions by branch taken.
	AwardsResolvedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "univ",
		Name:      "awards_resolved_total",
		Help:      "Count of award resolutions by branch.",
	}, []string{"branch"})

	// MediaUploadsTotal counts image host upload outcomes.
	MediaUploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "univ",
		Name:      "media_uploads_total",
		Help:      "Count of image host upload outcomes.",
	}, []string{"result"})

	// MediaPurgeTotal counts deferred media purge outcomes.
	MediaPurgeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "univ",
		Name:      "media_purge_total",
		Help:      "Count of deferred media purge outcomes.",
	}, []string{"result"})

	// CacheLookupsTotal counts cache lookups by outcome.
	CacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "univ",
		Name:      "cache_lookups_total",
		Help:      "Count of cache lookups by outcome.",
	}, []string{"cache", "result"})
)

func init() {
	prometheus.MustRegister(
		RecordWritesTotal,
		TotalsComputedTotal,
		AwardsResolvedTotal,
		MediaUploadsTotal,
		MediaPurgeTotal,
		CacheLookupsTotal,
	)
}
