// Package ratelimit provides per-client token buckets for the login endpoint.
//
// # Overview
//
// Limiter keeps one golang.org/x/time/rate limiter per key (the client IP)
// in a size-bounded expirable LRU from hashicorp/golang-lru. Buckets idle for
// longer than the TTL expire, and the least recently used bucket is evicted
// when the size limit is reached, so memory stays bounded under address
// spraying.
//
// # Usage
//
//	l := ratelimit.New(rate.Every(6*time.Second), 5, 10*time.Minute, 10000)
//	defer l.Close()
//
//	if !l.Allow(clientIP) {
//	    // reject with 429
//	}
//
// # Thread Safety
//
// All methods are safe for concurrent use.
package ratelimit
