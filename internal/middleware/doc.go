// Package middleware provides HTTP middleware for the avplay API server.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics labelled by route template
//   - Gzip compression of JSON responses and playlist exports
//
// Health checks and player status polling can be left out of the request log.
package middleware
