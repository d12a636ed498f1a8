package ingest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/frc-scouting/scoutqr/internal/fsutil"
	"github.com/frc-scouting/scoutqr/internal/monitoring"
	"github.com/frc-scouting/scoutqr/internal/security"
)

// maxPayloadBytes bounds one line of input. Dense QR codes stay well below it.
const maxPayloadBytes = 64 * 1024

// ReadPayloads splits newline delimited input into payloads.
func ReadPayloads(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxPayloadBytes)
	var out []string
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read payloads: %w", err)
	}
	return out, nil
}

// BatchFiles lists the batch files in dataDir matching glob, sorted by name.
func BatchFiles(fsys fsutil.FileSystem, dataDir, glob string) ([]string, error) {
	matches, err := fsys.Glob(filepath.Join(dataDir, glob))
	if err != nil {
		return nil, fmt.Errorf("invalid batch glob %q: %w", glob, err)
	}
	out := matches[:0]
	for _, m := range matches {
		if err := security.ValidatePathWithinDirectory(m, dataDir); err != nil {
			monitoring.Warn("skipped batch file outside data directory", "path", m, "err", err)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// ReadBatchFile reads the payloads of one batch file. A relative name is
// taken relative to dataDir; either way the file must be inside dataDir.
func ReadBatchFile(fsys fsutil.FileSystem, dataDir, name string) ([]string, error) {
	path, err := security.ResolveWithin(dataDir, name)
	if err != nil {
		return nil, err
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return ReadPayloads(bytes.NewReader(data))
}

// Watch buffers payloads from lines and runs the pipeline on the buffer
// every flushEvery, and once more before returning. It returns when lines is
// closed or ctx is done.
func (p *Pipeline) Watch(ctx context.Context, source string, lines <-chan string, flushEvery time.Duration) error {
	ticker := p.clock.NewTicker(flushEvery)
	defer ticker.Stop()

	var pending []string
	flush := func(ctx context.Context) error {
		if len(pending) == 0 {
			return nil
		}
		_, _, err := p.Run(ctx, source, pending)
		pending = nil
		return err
	}

	for {
		select {
		case <-ctx.Done():
			// Scanned payloads are not repeatable, so store what is held.
			if err := flush(context.WithoutCancel(ctx)); err != nil {
				return err
			}
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return flush(ctx)
			}
			pending = append(pending, line)
		case <-ticker.C():
			if err := flush(ctx); err != nil {
				return err
			}
		}
	}
}
