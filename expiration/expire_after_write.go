package expiration

import (
	"time"

	"github.com/krisalay/resilient-client/types"
)

// ExpireAfterWrite gives every entry a fixed lifetime counted from the moment
// it was stored. Reads never extend it. A value stored at T is served until
// T+Lifetime inclusive and treated as absent afterwards.
type ExpireAfterWrite struct {
	Lifetime time.Duration
}

func (e *ExpireAfterWrite) IsExpired(ent *types.CacheEntry, now time.Time) bool {
	return expired(ent, now)
}

func (e *ExpireAfterWrite) OnAccess(ent types.CacheEntry, now time.Time) (types.CacheEntry, bool) {
	return ent, false
}

func (e *ExpireAfterWrite) OnWrite(ent *types.CacheEntry, now time.Time) {
	ent.StoredAt = now
	ent.LastAccessedAt = now
	if e.Lifetime > 0 {
		ent.ExpireAt = now.Add(e.Lifetime)
	}
}

func (e *ExpireAfterWrite) TTL() time.Duration { return e.Lifetime }

/*
ExpireAfterAccess is the "sliding TTL" variant.
Every read pushes the expiration forward, so a key that keeps being polled
stays cached and one nobody reads ages out.
*/
type ExpireAfterAccess struct {
	Lifetime time.Duration
}

func (e *ExpireAfterAccess) IsExpired(ent *types.CacheEntry, now time.Time) bool {
	return expired(ent, now)
}

// OnAccess returns a copy with LastAccessedAt and ExpireAt moved to now.
func (e *ExpireAfterAccess) OnAccess(ent types.CacheEntry, now time.Time) (types.CacheEntry, bool) {
	if e.Lifetime <= 0 {
		return ent, false
	}
	ent.LastAccessedAt = now
	ent.ExpireAt = now.Add(e.Lifetime)
	return ent, true
}

func (e *ExpireAfterAccess) OnWrite(ent *types.CacheEntry, now time.Time) {
	ent.StoredAt = now
	ent.LastAccessedAt = now
	if e.Lifetime > 0 {
		ent.ExpireAt = now.Add(e.Lifetime)
	}
}

func (e *ExpireAfterAccess) TTL() time.Duration { return e.Lifetime }
