// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discovery

import "fmt"

// IdentityError reports that the destination's ambient identity could not
// be resolved. Fatal to the run, analogous to a failed source credential
// exchange: no per-document recovery is possible without an identity.
type IdentityError struct {
	Err error
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("discovery identity: %v", e.Err)
}

func (e *IdentityError) Unwrap() error { return e.Err }

// UpsertError reports a failure writing one document. Isolated to that
// document; the run records it and continues.
type UpsertError struct {
	DocumentID string
	Err        error
}

func (e *UpsertError) Error() string {
	return fmt.Sprintf("upserting document %s: %v", e.DocumentID, e.Err)
}

func (e *UpsertError) Unwrap() error { return e.Err }
