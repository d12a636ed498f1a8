package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dataDir := filepath.Join(tmpDir, "data")
	outside := filepath.Join(tmpDir, "outside")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.MkdirAll(outside, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "other.txt"), []byte("+A12"), 0o644))

	link := filepath.Join(dataDir, "linked")
	require.NoError(t, os.Symlink(outside, link))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"batch file", filepath.Join(dataDir, "match42.txt"), false},
		{"nested batch file", filepath.Join(dataDir, "day1", "match42.txt"), false},
		{"dot dot escape", filepath.Join(dataDir, "..", "outside", "other.txt"), true},
		{"relative escape", "../../../etc/passwd", true},
		{"absolute outside", "/etc/passwd", true},
		{"through symlink", filepath.Join(link, "other.txt"), true},
		{"symlink itself", link, true},
		{"new file under symlink", filepath.Join(link, "new.txt"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.path, dataDir)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePathWithinAllowedDirs(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	assert.NoError(t, ValidatePathWithinAllowedDirs(filepath.Join(b, "report.html"), []string{a, b}))
	assert.Error(t, ValidatePathWithinAllowedDirs("/etc/passwd", []string{a, b}))
	assert.Error(t, ValidatePathWithinAllowedDirs(filepath.Join(a, "report.html"), nil))
}

func TestResolveWithin(t *testing.T) {
	dir := t.TempDir()

	got, err := ResolveWithin(dir, "batch.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "batch.txt"), got)

	got, err = ResolveWithin(dir, filepath.Join(dir, "sub", "batch.txt"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sub", "batch.txt"), got)

	_, err = ResolveWithin(dir, "../batch.txt")
	assert.Error(t, err)
}

func TestValidateExportPath(t *testing.T) {
	extra := t.TempDir()
	assert.NoError(t, ValidateExportPath(filepath.Join(os.TempDir(), "audit.html")))
	assert.NoError(t, ValidateExportPath(filepath.Join(extra, "audit.html"), extra))
	assert.Error(t, ValidateExportPath("/etc/audit.html"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"":                   "unknown",
		"match 42":           "match_42",
		"/dev/ttyACM0":       "dev_ttyACM0",
		"..":                 "unknown",
		"casa-grande.v2":     "casa-grande.v2",
		"weird***name???now": "weird_name_now",
		"Équipe Zoë":         "Equipe_Zoe",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
}
