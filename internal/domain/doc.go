// Package domain contains the coaching payloads the rest of the system
// produces and validates: training plans, nutrition plans, sleep advice,
// chat replies and the bundle that carries all three weekly plans. It also
// owns the request identity (profile hash, week index, locale) that the
// request coordinator uses as its cache key.
package domain
