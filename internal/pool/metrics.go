package pool

import "expvar"

var metricSlotsInUse = expvar.NewInt("pool_slots_in_use")
