package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFullVersion(t *testing.T) {
	defer func(v, sha, bt string) { Version, GitSHA, BuildTime = v, sha, bt }(Version, GitSHA, BuildTime)

	Version, GitSHA, BuildTime = "dev", "unknown", "unknown"
	assert.Equal(t, "dev", FullVersion())

	Version, GitSHA = "v1.2.0", "0123456789abcdef"
	assert.Equal(t, "v1.2.0 (commit 0123456)", FullVersion())

	BuildTime = "2025-03-14T09:00:00Z"
	assert.Equal(t, "v1.2.0 (commit 0123456) built 2025-03-14T09:00:00Z", FullVersion())
}
