// Package core contains the canonical broadcast domain: campaign and token
// entities, platform capability contracts, and the credential lifecycle
// service. Lower-level adapters must depend on this package; core must not
// depend on platform-specific or transport-specific adapters.
package core
