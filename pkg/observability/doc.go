/*
Package observability exposes Prometheus metrics for deployment runs.

Metrics are registered on a caller-supplied prometheus.Registerer so the CLI,
the HTTP server and tests can each use their own registry. A nil *Metrics is
valid and records nothing.
*/
package observability
