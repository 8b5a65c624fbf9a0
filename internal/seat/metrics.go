package seat

import "expvar"

var metricReplyTimeouts = expvar.NewInt("seat_reply_timeouts")
