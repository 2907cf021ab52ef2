package cache

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits         uint64  `json:"hits"`
	Misses       uint64  `json:"misses"`
	Evictions    uint64  `json:"evictions"`
	Entries      uint64  `json:"entries"`
	MemoryUsage  uint64  `json:"memory_usage"` // Bytes of payload held by the memory tier
	HitRate      float64 `json:"hit_rate"`
	RemoteHits   uint64  `json:"remote_hits"`
	RemoteErrors uint64  `json:"remote_errors"`
}

// hitRate is hits / (hits + misses), or 0 before the first request.
func hitRate(hits, misses uint64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
