package validation

import (
	"errors"
	"testing"
)

func TestValidateFolderPath(t *testing.T) {
	testCases := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"root", "/", nil},
		{"nested", "/photos/2024", nil},
		{"trailing slash", "/photos/2024/", nil},
		{"relative", "photos", nil},
		{"dots in name", "/photos/v1..2", nil},
		{"hidden", "/photos/.trash", nil},
		{"empty", "", ErrEmptyPath},
		{"whitespace", "   ", ErrEmptyPath},
		{"traversal", "/photos/../secret", ErrTraversal},
		{"leading traversal", "../photos", ErrTraversal},
		{"backslash", `\photos\2024`, ErrBackslash},
		{"null byte", "/photos\x00/x", ErrNullByte},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateFolderPath(tc.path)
			if tc.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateFolderPath(%q) = %v, want nil", tc.path, err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("ValidateFolderPath(%q) = %v, want %v", tc.path, err, tc.wantErr)
			}
		})
	}
}

func TestValidateItemPath(t *testing.T) {
	if err := ValidateItemPath("/photos/a.jpg"); err != nil {
		t.Errorf("valid item path rejected: %v", err)
	}
	for _, p := range []string{"", "/", "//", "/photos/../a.jpg"} {
		if err := ValidateItemPath(p); err == nil {
			t.Errorf("ValidateItemPath(%q) should fail", p)
		}
	}
}
