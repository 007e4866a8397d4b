// Package dispatch executes a campaign against its target platforms under
// the campaign's coordination strategy: all at once, spaced out, or
// dependency ordered. Failures are isolated per target; orchestration-level
// failures (bad status, unknown strategy, dependency deadlock) abort the run
// and fail the campaign.
package dispatch
