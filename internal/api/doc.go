// Package api implements the HTTP layer: request/response models,
// handlers for deploying surveys and polling task progress, and the
// router wiring them together with tracing and metrics middleware.
package api
