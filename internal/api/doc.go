// Package api exposes the issue query service over HTTP.
//
// # Routes
//
//	GET  /                                  banner
//	GET  /v1/health/liveness                always OK
//	GET  /v1/health/readiness               OK while the database answers, 503 otherwise
//	GET  /v1/cluster                        {"name": <cluster>}
//	GET  /v1/namespaces                     {"namespaces": [...]}
//	GET  /v1/issues/{category}/{namespace}  {"issues": [{"metadata": ..., "issues": [...]}]}
//	POST /v1/issues                         {"status": "OK", "stored": N}
//	GET  <metrics path>                     Prometheus metrics
//
// # Errors
//
// A denied read answers 403 "forbidden" and says nothing about what the
// namespace contains. An expired request deadline answers 408. Storage and
// authorization backend failures answer 500 with a generic body; the cause
// is logged.
package api
