package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/discovery/internal/domain/event"
	"github.com/kailas-cloud/discovery/internal/transport/providers"
	"github.com/kailas-cloud/discovery/internal/usecase/projection"
)

// maxSnapshotLine bounds a single NDJSON line.
const maxSnapshotLine = 1 << 20

func newReindexCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from provider snapshots",
		Long: `Reads one provider snapshot JSON object per line and projects each as a
provider activation. Existing entries keep their ids; cached searches are
invalidated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(filepath.Clean(file))
			if err != nil {
				return fmt.Errorf("open snapshots: %w", err)
			}
			defer func() { _ = f.Close() }()

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			p := projection.New(a.index, projection.EventSnapshots{}, a.invalidator(), a.logger.Named("reindex"))
			stats, err := reindex(cmd.Context(), p, f, a.logger)
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d providers, %d failed\n", stats.indexed, stats.failed)
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "NDJSON file with one provider snapshot per line")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

type reindexStats struct {
	indexed int
	failed  int
}

// eventHandler is the consumer interface for the projector (ISP).
type eventHandler interface {
	Handle(ctx context.Context, ev *event.Event) error
}

// reindex projects every snapshot line as an activation. Bad lines are
// counted and skipped; the returned error reports how many failed.
func reindex(ctx context.Context, h eventHandler, r io.Reader, log *zap.Logger) (reindexStats, error) {
	var stats reindexStats

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxSnapshotLine)
	line := 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}

		if err := reindexLine(ctx, h, []byte(raw)); err != nil {
			stats.failed++
			log.Warn("reindex line failed", zap.Int("line", line), zap.Error(err))
			continue
		}
		stats.indexed++
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("read snapshots: %w", err)
	}
	if stats.failed > 0 {
		return stats, fmt.Errorf("%d of %d snapshots failed", stats.failed, stats.failed+stats.indexed)
	}
	return stats, nil
}

func reindexLine(ctx context.Context, h eventHandler, raw []byte) error {
	snap, err := providers.DecodeSnapshot(raw)
	if err != nil {
		return err
	}
	if snap.ProviderID == uuid.Nil {
		return errors.New("snapshot has no providerId")
	}
	ev, err := event.New(uuid.Nil, event.KindActivated, snap.ProviderID, time.Now().UTC(), snap)
	if err != nil {
		return err
	}
	return h.Handle(ctx, &ev)
}
