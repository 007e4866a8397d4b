// Package adapt shapes one piece of base content into a per-platform variant
// respecting each platform's constraints: length ceiling, hashtag and mention
// bounds, tone, and named text optimizations. The output carries a scoring
// heuristic and a performance estimate so callers can compare variants.
package adapt
