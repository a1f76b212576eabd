// Package validation checks catalog paths received from users and from the API.
package validation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyPath = errors.New("path cannot be empty")
	ErrNullByte  = errors.New("path contains null byte")
	ErrTraversal = errors.New("path cannot contain '..' segments")
	ErrBackslash = errors.New("path must use '/' separators")
)

// ValidateFolderPath validates a folder path given on the command line or by
// an embedding UI. Catalog paths are slash-delimited and never climb above
// the catalog root.
//
// Returns an error if the path:
//   - Is empty or only whitespace
//   - Contains null bytes
//   - Contains backslashes
//   - Has a ".." segment
func ValidateFolderPath(p string) error {
	if strings.TrimSpace(p) == "" {
		return ErrEmptyPath
	}
	return validateSegments(p)
}

// ValidateItemPath validates an item path from an API response before it is
// used as an identity and as part of a thumbnail key. An item path must name
// something below the root, so "/" alone is rejected too.
func ValidateItemPath(p string) error {
	if strings.Trim(p, "/ ") == "" {
		return ErrEmptyPath
	}
	return validateSegments(p)
}

func validateSegments(p string) error {
	if strings.ContainsRune(p, 0) {
		return fmt.Errorf("%w: %q", ErrNullByte, p)
	}
	if strings.ContainsRune(p, '\\') {
		return fmt.Errorf("%w: %s", ErrBackslash, p)
	}
	// "foo..bar.jpg" is a legitimate name; only whole ".." segments are rejected
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return fmt.Errorf("%w: %s", ErrTraversal, p)
		}
	}
	return nil
}
