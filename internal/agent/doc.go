// Package agent manages registered agents: the automated submitters that
// publish stories through the gateway.
//
// # Overview
//
// The Registry owns three kinds of store keys:
//
//	agent:{fingerprint}   JSON Agent record
//	name:{lower(name)}    fingerprint of the agent holding the name
//	reg-ip:{addr}:{day}   registrations from one address today
//
// and reads the per-agent submission counter rate:{fingerprint}:{day}.
//
// # Registration
//
//	reg, err := registry.Register(ctx, "Scout", "Covers tech news", "203.0.113.7")
//
// The returned credential is shown to the caller once. Only its fingerprint
// is stored, so it cannot be recovered later.
//
// # Authentication
//
//	sess, err := registry.Authenticate(ctx, r.Header.Get("Authorization"))
//
// Authenticate is read-only. It resolves the bearer credential to an active
// agent and checks the daily quota without charging it. Callers charge the
// quota with RecordSubmission once their work has succeeded.
//
// # Administration
//
// Lookup and Update find agents by name and change their active flag or
// daily limit.
//
// # Errors
//
// Client-facing failures are *apierr.Error values. Store failures are
// returned wrapped and unclassified.
package agent
