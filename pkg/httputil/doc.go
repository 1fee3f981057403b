// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON encoding/decoding, the API's
// error shape {"message": ...}, parameter parsing, and common middleware.
//
// # Response Helpers
//
//	httputil.WriteSuccess(w, data)
//	httputil.WriteCreated(w, resource)
//	httputil.WriteServiceError(w, err)     // maps domain errors to status+message
//	httputil.WriteValidationError(w, "title is required")
//
// Internal error detail is suppressed unless SetDevelopmentMode(true) was
// called at startup.
//
// # Request Parsing
//
//	var req loginRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // error response already written
//	}
//	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.CORSMiddleware(origins),
//	)
//
// # Related Packages
//
//   - pkg/middleware: authentication and role-policy middleware
package httputil
