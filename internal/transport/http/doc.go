// Package http exposes the preprocessing pipeline over REST. Each route
// group under /sessions/{id} operates on one session's working table; the
// request bodies are validated before they reach the service layer and
// domain errors are rendered as structured API errors.
package http
