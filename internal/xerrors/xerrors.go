// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xerrors defines the stable error taxonomy used across the
// off-target prediction engine. Callers should use errors.Is against the
// sentinel values here rather than matching on message text.
package xerrors

import "errors"

// Code is a stable, user-facing error classification string.
type Code string

// Taxonomy codes, see the error handling design notes.
const (
	CodeInvalidAlphabet  Code = "InvalidAlphabet"
	CodeInvalidLength    Code = "InvalidLength"
	CodeIndexNotReady    Code = "IndexNotReady"
	CodeIndexCorrupt     Code = "IndexCorrupt"
	CodeTranscriptMissing Code = "TranscriptMissing"
	CodeLengthMismatch   Code = "LengthMismatch"
	CodeCancelled        Code = "Cancelled"
	CodeResourceExhausted Code = "ResourceExhausted"
)

// Sentinel errors. Wrap with fmt.Errorf("...: %w", Err...) at call sites
// that need to attach context; callers match with errors.Is.
var (
	ErrInvalidAlphabet   = &taxonomyError{code: CodeInvalidAlphabet, msg: "sequence contains characters outside {A,C,G,U}"}
	ErrInvalidLength     = &taxonomyError{code: CodeInvalidLength, msg: "guide length outside the supported 19-23 nt range"}
	ErrIndexNotReady     = &taxonomyError{code: CodeIndexNotReady, msg: "index generation has not committed a ready build"}
	ErrIndexCorrupt      = &taxonomyError{code: CodeIndexCorrupt, msg: "seed key failed validation on decode"}
	ErrTranscriptMissing = &taxonomyError{code: CodeTranscriptMissing, msg: "seed entry references an unknown transcript id"}
	ErrLengthMismatch    = &taxonomyError{code: CodeLengthMismatch, msg: "guide and target window lengths differ"}
	ErrCancelled         = &taxonomyError{code: CodeCancelled, msg: "analysis cancelled"}
	ErrResourceExhausted = &taxonomyError{code: CodeResourceExhausted, msg: "candidate set exceeded the configured cap"}
)

type taxonomyError struct {
	code Code
	msg  string
}

func (e *taxonomyError) Error() string { return string(e.code) + ": " + e.msg }

// CodeOf returns the taxonomy code carried by err, walking wrapped errors,
// and ok=false if err does not carry one of the known codes.
func CodeOf(err error) (code Code, ok bool) {
	var te *taxonomyError
	if errors.As(err, &te) {
		return te.code, true
	}
	return "", false
}

// Is implements the interface errors.Is uses for sentinel comparison so
// that wrapped taxonomyErrors still compare equal to the package vars.
func (e *taxonomyError) Is(target error) bool {
	t, ok := target.(*taxonomyError)
	if !ok {
		return false
	}
	return e.code == t.code
}
