package session

import (
	"io"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

// Counter names in the metrics registry.
const (
	metricSent     = "frames.sent"
	metricReceived = "frames.received"
	metricErrors   = "errors"
	metricConnects = "connects"
)

// Counters is a point-in-time copy of the traffic counters.
type Counters struct {
	Sent     int64
	Received int64
	Errors   int64
	Connects int64
}

type metrics struct {
	reg gometrics.Registry
}

func newMetrics(reg gometrics.Registry) metrics {
	if reg == nil {
		reg = gometrics.NewRegistry()
	}
	return metrics{reg: reg}
}

func (m metrics) incr(name string, i int64) {
	gometrics.GetOrRegisterCounter(name, m.reg).Inc(i)
}

func (m metrics) count(name string) int64 {
	return gometrics.GetOrRegisterCounter(name, m.reg).Count()
}

func (m metrics) snapshot() Counters {
	return Counters{
		Sent:     m.count(metricSent),
		Received: m.count(metricReceived),
		Errors:   m.count(metricErrors),
		Connects: m.count(metricConnects),
	}
}

// writeJSON writes the registry as JSON to w every tick until stop is closed.
func (m metrics) writeJSON(tick time.Duration, w io.Writer, stop <-chan struct{}) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-stop:
			gometrics.WriteJSONOnce(m.reg, w)
			return
		case <-t.C:
			gometrics.WriteJSONOnce(m.reg, w)
		}
	}
}
