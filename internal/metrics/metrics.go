package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FeedFetchStatus Feed status (up/down)
	FeedFetchStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tracker_feed_fetch_status",
			Help: "Status of the last fetch of an upstream feed (0 = failed, 1 = fetched)",
		},
		[]string{"feed"},
	)

	FeedLastSuccess = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tracker_feed_last_success_timestamp_seconds",
		Help: "Unix time of the last successful fetch of an upstream feed",
	}, []string{"feed"})

	OutgoingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tracker_outgoing_request_latency_seconds",
		Help:    "Latency of outgoing HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"url", "method", "status"})
)

var (
	RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tracker_refresh_duration_seconds",
		Help:    "Duration of one refresh cycle, fetches included",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	VehiclesTracked = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tracker_vehicles_tracked",
		Help: "Number of vehicles in the latest snapshot",
	}, []string{"route"})

	VehiclesCorrelated = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tracker_vehicles_correlated",
		Help: "Number of vehicles with a known next stop",
	}, []string{"route"})

	ActiveAlerts = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tracker_active_alerts",
		Help: "Number of service alerts active at refresh time",
	}, []string{"route"})

	ArrivalsInWindow = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tracker_arrivals_in_window",
		Help: "Number of arrivals inside each board window",
	}, []string{"route", "window"})
)

var (
	SkippedRecords = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tracker_skipped_records",
		Help: "Records dropped from the latest payload of a feed",
	}, []string{"feed"})

	UnresolvedReferences = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_unresolved_references",
		Help: "Relationship references not found in the included section of the latest payloads",
	})

	RouteTraces = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tracker_route_traces",
		Help: "Number of drawable traces per map line",
	}, []string{"line"})
)

var (
	VehicleSpeedGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tracker_vehicle_computed_speed_meters_per_second",
		Help: "Speed computed from two successive positions of a vehicle",
	}, []string{"vehicle_id", "route"})

	VehicleImplausibleJumps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_vehicle_implausible_jumps_total",
		Help: "Position updates implying a speed above the plausible maximum",
	}, []string{"route"})
)
