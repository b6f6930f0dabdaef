package ingest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrec/internal/domain/profile"
)

const maxLineBytes = 1 << 20

// ReadTitles streams JSON Lines title records into out and closes it when done.
// Blank lines are ignored; undecodable lines are logged and counted as skipped.
func (s *Service) ReadTitles(ctx context.Context, r io.Reader, out chan<- profile.TitleMeta) (int64, error) {
	defer close(out)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var skipped int64
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}

		var m profile.TitleMeta
		if err := json.Unmarshal(raw, &m); err != nil {
			skipped++
			s.logger.Warn("skip malformed title record", zap.Int("line", line), zap.Error(err))
			continue
		}

		select {
		case <-ctx.Done():
			return skipped, fmt.Errorf("read titles: %w", ctx.Err())
		case out <- m:
		}
	}
	if err := sc.Err(); err != nil {
		return skipped, fmt.Errorf("read titles at line %d: %w", line+1, err)
	}
	return skipped, nil
}
