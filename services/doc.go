// Package services provides typed wrappers over the dashboard's backend
// API. Each service owns one resource family and rides the shared client
// pipeline, so auth, sanitization, refresh, and retry behave identically
// across all of them.
package services
