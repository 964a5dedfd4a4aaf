package redisx

import "time"

const (
	// Stepped session per flow and user: session:{flow}:{user_id} -> JSON
	KeySession = "session:%s:%d"

	// Dedup inbound event processing: dedup:{consumer}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLSession = 24 * time.Hour
	TTLDedup   = 48 * time.Hour
)
