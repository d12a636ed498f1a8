package db

import (
	"bytes"
	"os"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"

	"github.com/frc-scouting/scoutqr/internal/monitoring"
)

func TestMigrateLogger(t *testing.T) {
	var buf bytes.Buffer
	monitoring.SetOutput(&buf)
	monitoring.SetLevel(log.InfoLevel)
	t.Cleanup(func() {
		monitoring.SetOutput(os.Stderr)
		monitoring.SetLevel(log.WarnLevel)
	})

	logger := &migrateLogger{}
	logger.Printf("Finished %v (read %v)\n", 2, "1ms")

	assert.Contains(t, buf.String(), "migrate")
	assert.Contains(t, buf.String(), `msg="Finished 2 (read 1ms)"`)
	assert.False(t, logger.Verbose())
}
