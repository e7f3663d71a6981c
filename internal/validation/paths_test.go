package validation

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFilename(t *testing.T) {
	testCases := []struct {
		name        string
		filename    string
		expectValid bool
	}{
		{"table id", "in.c-main.orders", true},
		{"with_dash", "my-table", true},
		{"hidden_file", ".hidden", true},
		{"spaces", "my table", true},
		{"contains_dots", "orders..v2", true},

		{"empty", "", false},
		{"parent_dir", "..", false},
		{"current_dir", ".", false},
		{"unix_separator", "dir/orders", false},
		{"windows_separator", `dir\orders`, false},
		{"traversal", "../orders", false},
		{"null_byte", "orders\x00.csv", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateFilename(tc.filename)
			if tc.expectValid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidatePathInDirectory(t *testing.T) {
	base := filepath.Join(t.TempDir(), "out", "files")

	testCases := []struct {
		name        string
		path        string
		expectValid bool
	}{
		{"simple", "report.csv", true},
		{"nested", "reports/q1.csv", true},
		{"inner_dotdot", "reports/../q1.csv", true},
		{"dotted_name", "..report.csv", true},

		{"empty", "", false},
		{"parent", "..", false},
		{"escape", "../secret.csv", false},
		{"deep_escape", "reports/../../secret.csv", false},
		{"absolute", "/etc/passwd", false},
		{"base_itself", ".", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePathInDirectory(tc.path, base)
			if tc.expectValid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}

	assert.Error(t, ValidatePathInDirectory("a.csv", ""))
}
