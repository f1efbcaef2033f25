package sellorders

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const sequenceTTL = 48 * time.Hour

type sequencer interface {
	NextSequence(ctx context.Context, name string, ttl time.Duration) (int64, error)
}

// NumberGenerator allocates human readable order numbers such as
// SELL-20261016-000123 from a per-day counter.
type NumberGenerator struct {
	seq    sequencer
	prefix string
}

func NewNumberGenerator(seq sequencer, prefix string) (*NumberGenerator, error) {
	if seq == nil {
		return nil, fmt.Errorf("sequence source required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "SELL"
	}
	return &NumberGenerator{seq: seq, prefix: strings.ToUpper(prefix)}, nil
}

func (g *NumberGenerator) Next(ctx context.Context, now time.Time) (string, error) {
	day := now.UTC().Format("20060102")
	n, err := g.seq.NextSequence(ctx, "sell_order_number:"+day, sequenceTTL)
	if err != nil {
		return "", fmt.Errorf("next order sequence: %w", err)
	}
	return fmt.Sprintf("%s-%s-%06d", g.prefix, day, n), nil
}
