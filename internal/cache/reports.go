package cache

import (
	"time"

	"divs/internal/report"
)

// Reports caches built reports by record version and request. A new record
// version never sees reports built from an older one.
type Reports struct {
	lru *LRUCache[*report.Report]
}

func NewReports(maxSize int, ttl time.Duration) *Reports {
	return &Reports{lru: NewLRUCache[*report.Report](maxSize, ttl)}
}

func reportKey(version string, req report.Request) string {
	return version + "|" + req.Key()
}

// GetOrBuild returns the cached report or builds and stores it. The bool
// reports a cache hit.
func (r *Reports) GetOrBuild(version string, req report.Request, build func() (*report.Report, error)) (*report.Report, bool, error) {
	key := reportKey(version, req)
	if rep, ok := r.lru.Get(key); ok {
		return rep, true, nil
	}
	rep, err := build()
	if err != nil {
		return nil, false, err
	}
	r.lru.Set(key, rep)
	return rep, false, nil
}

// CleanExpired implements Cleaner.
func (r *Reports) CleanExpired() int {
	return r.lru.CleanExpired()
}

func (r *Reports) Stats() Stats {
	return r.lru.Stats()
}
