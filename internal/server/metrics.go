package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// serverMetrics holds its own registry so multiple servers (as in tests) do
// not trip duplicate registration.
type serverMetrics struct {
	registry        *prometheus.Registry
	gamesStarted    *prometheus.CounterVec
	gamesFinished   prometheus.Counter
	guessesRecorded prometheus.Counter
}

func newServerMetrics() *serverMetrics {
	m := &serverMetrics{
		registry: prometheus.NewRegistry(),
		gamesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medgen_games_started_total",
			Help: "Games initialized, by mode.",
		}, []string{"mode"}),
		gamesFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medgen_games_finished_total",
			Help: "Games scored and finished.",
		}),
		guessesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medgen_guesses_recorded_total",
			Help: "Guess rows written at game finish.",
		}),
	}
	m.registry.MustRegister(m.gamesStarted, m.gamesFinished, m.guessesRecorded)
	return m
}

func (m *serverMetrics) handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
