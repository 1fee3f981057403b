// Package api assembles the HTTP server: the router, the middleware chain
// (request id, logging, panic recovery, CORS, request size cap, metrics),
// the health and metrics endpoints, and every handler group mounted under
// /api.
package api
