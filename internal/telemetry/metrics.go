package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/victornm/phishlms/internal/domain"
)

const namespace = "phishlms"

var (
	examResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "exam",
		Name:      "results_total",
		Help:      "Exam results recorded, by classification.",
	}, []string{"classification"})

	examScores = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "exam",
		Name:      "score",
		Help:      "Distribution of exam scores.",
		Buckets:   prometheus.LinearBuckets(10, 10, 10),
	})

	examRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "exam",
		Name:      "submissions_rejected_total",
		Help:      "Exam submissions refused by the scoring boundary, by reason.",
	}, []string{"reason"})

	eventsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "event",
		Name:      "handled_total",
		Help:      "Event handler runs, by event and outcome.",
	}, []string{"event", "outcome"})

	questionCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "question",
		Name:      "cache_lookups_total",
		Help:      "Question set cache lookups, by result.",
	}, []string{"result"})
)

func ObserveExamResult(r domain.ExamResult) {
	examResults.WithLabelValues(string(r.Classification)).Inc()
	examScores.Observe(float64(r.Score))
}

func ObserveSubmissionRejected(reason string) {
	if reason == "" {
		reason = "other"
	}
	examRejected.WithLabelValues(reason).Inc()
}

func ObserveEventHandled(name string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	eventsHandled.WithLabelValues(name, outcome).Inc()
}

// ObserveQuestionCache records a cache lookup; result is one of hit, miss or error.
func ObserveQuestionCache(result string) {
	questionCache.WithLabelValues(result).Inc()
}
