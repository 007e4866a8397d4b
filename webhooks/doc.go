// Package webhooks processes engagement deliveries platforms push after a
// post goes live. Deliveries are verified, claimed in a ledger so redelivered
// payloads are handled once, optionally coalesced during notification bursts,
// and folded into the campaign's coordination event history.
package webhooks
