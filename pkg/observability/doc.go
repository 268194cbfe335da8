// Package observability provides logging, metrics, health checks, and
// graceful shutdown for the Gatehouse portal.
//
// Logging uses structured JSON output via stdlib slog. Metrics are exposed
// in Prometheus format. Health checks probe the PostgreSQL and Redis
// dependencies for readiness probes.
package observability
