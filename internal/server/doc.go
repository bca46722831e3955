// Package server wires the deflink components into a running HTTP server.
//
// New takes an opened store.Store (see OpenStore), wraps it with metrics
// when enabled, seeds the directory and the OEM credential, and builds the
// API handler. Run listens on server.http_addr, runs the expired session
// sweeper every SweepInterval and shuts down gracefully when its context is
// canceled.
package server
