package redisx

import "time"

const (
	// Cart convenience snapshot: pos:cart:{tenant} -> Order JSON
	KeyCartSnapshot = "pos:cart:%s"

	// Restored session token: pos:token:{tenant}
	KeySessionToken = "pos:token:%s"

	// Dedup event processing: dedup:{board}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLCartSnapshot = 24 * time.Hour
	TTLSessionToken = 12 * time.Hour
	TTLDedup        = 48 * time.Hour
)
