package ordering

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/atomic"
)

const DefaultNumberPrefix = "FE"

// Sequencer hands out strictly increasing values. Implementations must be safe for
// concurrent callers across every process that shares the sequence.
type Sequencer interface {
	Next(ctx context.Context) (int64, error)
}

// Numberer formats order numbers as <prefix><YYYYMMDD>-<counter>, e.g. FE20261015-000042.
// The date only aids reading; uniqueness comes from the sequencer.
type Numberer struct {
	seq    Sequencer
	prefix string
	now    func() time.Time
}

func NewNumberer(seq Sequencer, prefix string, now func() time.Time) *Numberer {
	if prefix == "" {
		prefix = DefaultNumberPrefix
	}
	if now == nil {
		now = time.Now
	}
	return &Numberer{seq: seq, prefix: prefix, now: now}
}

func (n *Numberer) NextOrderNumber(ctx context.Context) (string, error) {
	value, err := n.seq.Next(ctx)
	if err != nil {
		return "", fmt.Errorf("next order sequence: %w", err)
	}
	return fmt.Sprintf("%s%s-%06d", n.prefix, n.now().UTC().Format("20060102"), value), nil
}

// LocalSequence is an in-process counter, for single-instance deployments and tests.
type LocalSequence struct {
	n *atomic.Int64
}

func NewLocalSequence(start int64) *LocalSequence {
	return &LocalSequence{n: atomic.NewInt64(start)}
}

func (s *LocalSequence) Next(context.Context) (int64, error) {
	return s.n.Inc(), nil
}
