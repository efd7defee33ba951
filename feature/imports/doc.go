// Package imports exposes course and user imports as a service and over HTTP.
//
// The Service ties the pieces together: the adapter dispatcher parses and
// validates a document, the reconcile engine diffs and applies it, and the
// progress store tracks background runs. Successful live imports can be
// archived to object storage.
//
// # Routes
//
//	GET    /imports/adapters       list adapters and supported formats
//	POST   /imports/validate       parse, validate and preview conflicts (never writes)
//	POST   /imports                run an import (async=true returns 202 + progress id)
//	GET    /imports/progress/:id   poll a background import
//	DELETE /imports/progress/:id   forget a progress entry
//
// Errors are returned as {"error": "...", "hints": [...]}. Unknown adapters,
// unknown strategies and malformed fields map to 400, unreadable documents to
// 422, unknown progress ids to 404.
package imports
