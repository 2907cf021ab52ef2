package cache

import (
	"fmt"
	"time"
)

// Tier identifies the cache layer an entry was served from.
type Tier uint8

const (
	// TierMemory is the in-process LRU tier.
	TierMemory Tier = iota
	// TierRemote is the optional shared tier, e.g. Redis.
	TierRemote
)

func (t Tier) String() string {
	switch t {
	case TierMemory:
		return "memory"
	case TierRemote:
		return "remote"
	default:
		return fmt.Sprintf("tier(%d)", uint8(t))
	}
}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Entry is one cached payload with its expiry and access bookkeeping.
type Entry struct {
	Data         []byte
	CreatedAt    time.Time
	TTL          time.Duration
	LastAccessed time.Time
	AccessCount  uint64
	Size         int
	Tier         Tier
}

// ExpiresAt returns the first instant at which the entry is no longer served.
func (e *Entry) ExpiresAt() time.Time {
	return e.CreatedAt.Add(e.TTL)
}

// Expired reports whether the entry must not be served at now.
// An entry is a hit only while now < CreatedAt + TTL.
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt())
}
