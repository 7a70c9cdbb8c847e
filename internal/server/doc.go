// Package server exposes the student service as a JSON HTTP API.
//
// # Routes
//
//	GET    /health                   liveness probe
//	GET    /students                 list, filtered by ?course= and ?name=
//	POST   /students                 create from a JSON body
//	GET    /students/export          download the roster (?format=csv|json|markdown)
//	POST   /students/import          merge a CSV request body
//	GET    /students/{id}            fetch one record
//	PUT    /students/{id}            replace name, course, and grade
//	DELETE /students/{id}            remove one record
//	GET    /stats                    grade and enrollment summary
//	GET    /jobs                     import/export history (?limit=)
//
// # Errors
//
// Failures are written as {"error": message, "kind": kind}. The status follows the error kind:
// validation 400, not found 404, duplicate ID 409, anything else 500.
//
// # Middleware
//
// [Middleware] wraps handlers in the order they are added. The server installs chi's request ID and
// panic recovery, a structured request logger, and a per-client token bucket rate limiter
// ([RateLimit]) built on golang.org/x/time/rate.
package server
