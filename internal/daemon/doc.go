// Package daemon coordinates the long-running photomatch process.
//
// It wires configuration, the mapping store, the batch engine, the download
// session store, and the HTTP API into a single lifecycle with flock-based
// locking to prevent multiple instances. Keep orchestration logic here:
// matching and session semantics live in their respective packages while the
// daemon focuses on startup, shutdown, and background sweeps.
package daemon
