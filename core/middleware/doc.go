// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - RayID: tags every incoming request with a unique request id (RayID),
//     stored in the request locals and echoed in the X-Ray-ID response header
//     so log lines can be correlated with a single import request.
//
// Middleware is registered globally by the start command, before features load.
package middleware
