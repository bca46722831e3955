// Package obs exports Prometheus metrics for HTTP traffic, store operations
// and login attempts.
//
// Metrics live in a private registry served by Handler. Request paths are
// labelled with the route pattern the mux matched, so the label set is
// bounded by the registered routes. A nil *Metrics records nothing, which
// lets callers skip nil checks when metrics are disabled.
package obs
