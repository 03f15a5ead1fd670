// SPDX-License-Identifier: MPL-2.0

package modpack

import (
	"fmt"
	"regexp"
)

// MaxNameLength is the maximum length of a package name.
const MaxNameLength = 64

var namePattern = regexp.MustCompile(`^[a-z0-9._-]+$`)

type (
	// Name is a package name as written in a manifest.
	Name string

	// InvalidNameError is returned when a Name does not match the naming rule.
	// It wraps ErrInvalidName for errors.Is() compatibility.
	InvalidNameError struct {
		Value  Name
		Reason string
	}
)

// Validate returns nil if the name is 1 to MaxNameLength characters of
// lower-case letters, digits, '.', '_' or '-'.
func (n Name) Validate() error {
	switch {
	case n == "":
		return &InvalidNameError{Value: n, Reason: "must not be empty"}
	case len(n) > MaxNameLength:
		return &InvalidNameError{Value: n, Reason: fmt.Sprintf("longer than %d characters", MaxNameLength)}
	case !namePattern.MatchString(string(n)):
		return &InvalidNameError{Value: n, Reason: "only lower-case letters, digits, '.', '_' and '-' are allowed"}
	}
	return nil
}

func (n Name) String() string { return string(n) }

// Error implements the error interface.
func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid package name %q: %s", string(e.Value), e.Reason)
}

// Unwrap returns ErrInvalidName.
func (e *InvalidNameError) Unwrap() error { return ErrInvalidName }
