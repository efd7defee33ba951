// Package server holds the HTTP server configuration.
//
// The Config struct defines the listen port, the request body limit that
// caps uploaded documents, and the read timeout. The start command builds
// the Fiber application from it.
package server
