package report

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frc-scouting/scoutqr/internal/fsutil"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestRenderPNG(t *testing.T) {
	d, err := Load(context.Background(), sample)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderPNG(&buf, "Week 1 audit", d))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestRenderPNGEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPNG(&buf, "empty", Data{}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestWritePNG(t *testing.T) {
	dir := t.TempDir()
	fsys := fsutil.NewMemoryFileSystem()
	path := filepath.Join(dir, "audit.png")

	require.NoError(t, WritePNG(fsys, path, "audit", Data{}, dir))
	data, err := fsys.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))

	assert.Error(t, WritePNG(fsys, "/etc/audit.png", "audit", Data{}))
}
