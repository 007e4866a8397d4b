// Package providers implements the platform authorization surface on top of
// the standard OAuth2 authorization-code flow. A single configurable provider
// covers every builtin platform; per-platform differences (endpoints, scopes,
// proof-key requirements, profile payload shapes) live in configuration.
package providers
