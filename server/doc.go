// Package server exposes propensity score matching over HTTP.
//
// Routes:
//
//	GET  /          health check, {"status":"ok"}
//	GET  /metrics   Prometheus metrics
//	POST /api/psm   multipart upload of two CSV files
//
// /api/psm takes the form files "experiment" and "control", an optional
// "columns" field holding a JSON array of feature column names and an
// optional "n_results" integer. It answers with the matched control rows as
// {"columns": [...], "data": [...], "total": n}, where data holds at most
// MaxRows records.
//
// Errors are returned as {"error": message, "code": CODE}: 400 for bad
// input, 413 for an oversized upload, 429 when the request rate is
// exceeded, 503 when no matching slot frees up before the request is
// cancelled, 500 otherwise.
package server
