// Package api provides a thin REST surface over pkg/rom: save, get,
// get-by-unique-field, query, delete, and reindex, one route group per
// registered namespace. It is ambient HTTP plumbing the spec places
// outside the core indexing engine, grounded on the teacher's Gin-based
// internal/api package (CORS, API-key auth, rate limiting, standard
// response envelope) re-themed from memory endpoints to generic record
// endpoints.
package api
