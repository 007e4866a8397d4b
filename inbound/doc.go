// Package inbound receives traffic platforms send back to the embedding
// application: OAuth redirect callbacks and engagement webhooks. The
// dispatcher verifies each request, claims an idempotency key so redelivered
// callbacks are processed once, and routes to the handler registered for the
// request's surface.
package inbound
