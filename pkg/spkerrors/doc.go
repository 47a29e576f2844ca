// Package spkerrors provides cross-cutting error presentation: folding
// a wrapped error chain into the printable form cmd/spk shows a user,
// and classifying an error against the kinds names so a
// caller can decide whether it's worth a retry.
//
// Every concrete error still lives next to the code that raises it
// (graph.ErrUnknownObject, repository.ErrObjectMissingPayload, and so
// on) — this package never redeclares them, it only recognizes them.
package spkerrors
