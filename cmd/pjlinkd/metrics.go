package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mateusmeyer/pjlink-server/internal/pjlink/command"
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/handler"
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/payload"
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/response"
)

// metrics is the optional external collaborator named in the domain stack:
// a Prometheus registry counting commands by opcode and responses by kind.
// Wholly additive — the core protocol packages never import this.
type metrics struct {
	commandsTotal  *prometheus.CounterVec
	responsesTotal *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		commandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pjlink_commands_total",
			Help: "Requests classified, by opcode.",
		}, []string{"opcode"}),
		responsesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pjlink_responses_total",
			Help: "Responses rendered, by kind.",
		}, []string{"kind"}),
	}
}

// serveMetrics starts an HTTP server exposing /metrics in its own goroutine
// and returns at once; the server's exit error is reported on the returned
// channel.
func serveMetrics(addr string, reg *prometheus.Registry) <-chan error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	errCh := make(chan error, 1)
	go func() {
		errCh <- http.ListenAndServe(addr, mux)
	}()
	return errCh
}

// instrumentedHandler wraps a handler.Handler, recording command/response
// counts without altering behavior. The server already serializes all calls
// through handler.Guard, so no locking is needed here.
type instrumentedHandler struct {
	inner handler.Handler
	m     *metrics
}

func instrument(h handler.Handler, m *metrics) handler.Handler {
	return &instrumentedHandler{inner: h, m: m}
}

func (i *instrumentedHandler) Password(connID uint64) (string, bool) {
	return i.inner.Password(connID)
}

func (i *instrumentedHandler) HandleCommand(cmd command.Command, raw payload.RawPayload, connID uint64) response.Response {
	i.m.commandsTotal.WithLabelValues(cmd.Opcode.String()).Inc()
	resp := i.inner.HandleCommand(cmd, raw, connID)
	i.m.responsesTotal.WithLabelValues(kindLabel(resp.Kind)).Inc()
	return resp
}

func kindLabel(k response.Kind) string {
	switch k {
	case response.Ok:
		return "ok"
	case response.Undefined:
		return "undefined"
	case response.OutOfParameter:
		return "out_of_parameter"
	case response.UnavailableTime:
		return "unavailable_time"
	case response.ProjectorOrDisplayFailure:
		return "projector_or_display_failure"
	case response.Single:
		return "single"
	case response.Multiple:
		return "multiple"
	case response.Empty:
		return "empty"
	default:
		return "unknown"
	}
}
