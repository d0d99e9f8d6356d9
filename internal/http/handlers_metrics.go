package http

import (
	"fmt"
	"io"
	"net/http"
)

// handleMetrics reports limiter, detector and report cache counters in the
// Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	writeMetric(w, "uptime_seconds", "gauge", "Seconds since the server started", int64(s.now().Sub(s.started).Seconds()))

	sec := s.detector.GetMetrics()
	writeMetric(w, "security_suspicious_requests_total", "counter", "Requests matching a suspicious pattern", sec.SuspiciousRequests)
	writeMetric(w, "security_invalid_ip_total", "counter", "Requests with an unparseable client address", sec.InvalidIPAttempts)

	if s.limiter != nil {
		rl := s.limiter.GetMetrics()
		writeMetric(w, "rate_limit_rejections_total", "counter", "Requests rejected by the rate limiter", rl.TotalHits)
		writeMetric(w, "rate_limit_clients", "gauge", "Clients tracked by the rate limiter", rl.ClientCount)
	}

	if st, ok := s.reports.CacheStats(); ok {
		writeMetric(w, "report_cache_entries", "gauge", "Cached yearly summaries", int64(st.Size))
		writeMetric(w, "report_cache_hits_total", "counter", "Report cache hits", int64(st.Hits))
		writeMetric(w, "report_cache_misses_total", "counter", "Report cache misses", int64(st.Misses))
	}
}

func writeMetric(w io.Writer, name, kind, help string, v int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %d\n", name, v)
}
