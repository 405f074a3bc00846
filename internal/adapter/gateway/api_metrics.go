package gateway

import (
	"fmt"
	"io"
	"net/http"
	"runtime"
)

// metricsHandler returns an HTTP handler for GET /metrics in Prometheus text format.
// This uses the lightweight text format to avoid pulling in the full prometheus client.
func metricsHandler(s *Server, deps HandlerDeps, m *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		st := buildStatus(r.Context(), s, deps, m)
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		writeMetric(w, "jarvis_clients_connected", "gauge", "Connected HUD clients.", st.Clients.Connected)
		writeMetric(w, "jarvis_clients_total", "counter", "HUD connections accepted.", st.Clients.Total)

		fmt.Fprintf(w, "# HELP jarvis_events_total Conversation events relayed.\n")
		fmt.Fprintf(w, "# TYPE jarvis_events_total counter\n")
		fmt.Fprintf(w, "jarvis_events_total{role=\"user\"} %d\n", st.Events.User)
		fmt.Fprintf(w, "jarvis_events_total{role=\"assistant\"} %d\n", st.Events.Assistant)

		writeMetric(w, "jarvis_events_rejected_total", "counter", "Events refused for an unknown role.", st.Events.Rejected)
		writeMetric(w, "jarvis_frames_dropped_total", "counter", "Frames dropped for slow clients.", st.Events.DroppedFrames)
		writeMetric(w, "jarvis_history_records", "gauge", "Stored conversation events.", st.History.Stored)
		writeMetric(w, "jarvis_history_prunes_total", "counter", "Retention runs that removed events.", st.History.Pruned)
		writeMetric(w, "jarvis_uptime_seconds", "gauge", "Seconds since the relay started.", st.Relay.UptimeSeconds)

		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)
		writeMetric(w, "go_goroutines", "gauge", "Number of goroutines.", int64(runtime.NumGoroutine()))
		writeMetric(w, "go_memstats_alloc_bytes", "gauge", "Bytes of allocated heap objects.", int64(mem.Alloc))
	}
}

func writeMetric(w io.Writer, name, typ, help string, v int64) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %d\n", name, help, name, typ, name, v)
}
