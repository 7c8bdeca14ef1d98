// Package http exposes a tubelife engine over a JSON control API with chi.
//
// Run-state commands always answer 200 with the resulting state; editing
// commands map engine errors to status codes (409 locked, 422 invalid
// step, 400 invalid configuration value, 404 unknown step or sequence).
package http
