package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AdmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_admissions_total",
			Help: "Admission decisions by outcome and rejection reason",
		},
		[]string{"outcome", "reason"},
	)

	AdmissionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "booking_admission_duration_seconds",
			Help:    "Duration of the admission transaction",
			Buckets: prometheus.DefBuckets,
		},
	)

	PromotionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_promotions_total",
			Help: "Promotion passes after a release",
		},
		[]string{"result"}, // promoted|empty|capacity_race
	)

	QueueRankWrites = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_queue_rank_writes_total",
			Help: "Queue entries whose position was rewritten by recompute",
		},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_notifications_total",
			Help: "Notification deliveries per sink",
		},
		[]string{"sink", "result"}, // delivered|failed|dropped
	)
)

func init() {
	prometheus.MustRegister(AdmissionsTotal)
	prometheus.MustRegister(AdmissionDuration)
	prometheus.MustRegister(PromotionsTotal)
	prometheus.MustRegister(QueueRankWrites)
	prometheus.MustRegister(NotificationsTotal)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
