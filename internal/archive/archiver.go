// Package archive moves expired telemetry events out of the live store
// into compressed cold-storage files on disk.
package archive

import (
	"bytes"
	"cgd/internal/archive/interfaces"
	"cgd/internal/providers"
	"cgd/internal/store"
	"cgd/internal/structures"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
)

type Archiver struct {
	events     store.EventRepositoryInterface
	compressor interfaces.CompressorInterface
	metrics    providers.MetricsProviderInterface
	logger     providers.Logger
	dir        string
	retention  time.Duration
}

func NewArchiver(
	events store.EventRepositoryInterface,
	compressor interfaces.CompressorInterface,
	metrics providers.MetricsProviderInterface,
	logger providers.Logger,
	conf *structures.Config,
) *Archiver {
	return &Archiver{
		events:     events,
		compressor: compressor,
		metrics:    metrics,
		logger:     logger,
		dir:        conf.Archive.Dir,
		retention:  conf.Archive.Retention,
	}
}

// Enabled reports whether archival is configured; with no directory the
// live table simply keeps everything.
func (a *Archiver) Enabled() bool {
	return a.dir != ""
}

// Run prunes events older than the retention window and spills them to a
// timestamped zstd-compressed JSONL file. The write is atomic
// (tmp + rename) so a crash never leaves a torn archive.
func (a *Archiver) Run(ctx context.Context) (int, error) {
	if !a.Enabled() {
		return 0, nil
	}

	pruned, err := a.events.PruneBefore(ctx, time.Now().Add(-a.retention))
	if err != nil {
		return 0, err
	}
	if len(pruned) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	for _, event := range pruned {
		line, err := json.Marshal(event)
		if err != nil {
			return 0, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	data, err := a.compressor.Compress(buf.Bytes())
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return 0, err
	}
	fileName := filepath.Join(a.dir, fmt.Sprintf("events-%s.jsonl.zst", time.Now().UTC().Format("20060102T150405")))
	if err := writeAtomic(fileName, data); err != nil {
		return 0, err
	}

	a.metrics.AddEventsArchived(len(pruned))
	a.logger.Infof(providers.TypeApp, "Archived %d events to %s", len(pruned), fileName)
	return len(pruned), nil
}

func (a *Archiver) Close() {
	a.compressor.Close()
}

func writeAtomic(fileName string, data []byte) error {
	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	if _, err = file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}
	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}
	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}
	return os.Rename(tmpFile, fileName)
}
