package moderator

import "expvar"

var (
	metricMatchesTotal   = expvar.NewInt("match_requests_total")
	metricMatchesRefused = expvar.NewInt("match_requests_refused_total")

	metricSessionsTotal  = expvar.NewInt("sessions_total")
	metricSessionsFailed = expvar.NewInt("sessions_failed_total")
	metricSessionsLive   = expvar.NewInt("sessions_live")

	metricEventsRouted = expvar.NewInt("router_events_total")
)
