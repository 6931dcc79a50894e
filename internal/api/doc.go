// Package api hosts the HTTP server, middleware, and JSON handlers. Notable routes:
//   - GET /health for liveness probes and GET /metrics for Prometheus scraping.
//   - POST /scrape to fetch and extract a page without analysis.
//   - POST /analyze, GET /stats, GET|DELETE /cache behind API key authentication.
package api
