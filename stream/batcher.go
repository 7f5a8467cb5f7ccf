package stream

import (
	"time"

	"github.com/pkg/errors"

	"github.com/commercelab/shopetl/hbase"
	"github.com/commercelab/shopetl/ingest"
	"github.com/commercelab/shopetl/source"
)

type BatchConfig struct {
	// MaxSessions bounds the number of buffered sessions per flush.
	MaxSessions int
	// FlushInterval bounds how long the first buffered session waits.
	FlushInterval time.Duration
}

var DefaultBatchConfig = BatchConfig{
	MaxSessions:   500,
	FlushInterval: 30 * time.Second,
}

func (c BatchConfig) validate() error {
	if c.MaxSessions <= 0 {
		return errors.New("MaxSessions must be > 0")
	}
	if c.FlushInterval <= 0 {
		return errors.New("FlushInterval must be > 0")
	}
	return nil
}

// batcher buffers keyed session mutations together with the source messages
// that produced them, so acknowledgement can follow the flush.
type batcher struct {
	cfg BatchConfig

	puts []ingest.Put[[]*hbase.Mutation]
	acks source.AckGroup

	deadline time.Time
	active   bool
}

func newBatcher(cfg BatchConfig) (*batcher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &batcher{cfg: cfg}, nil
}

func (b *batcher) Add(now time.Time, put ingest.Put[[]*hbase.Mutation], msg source.Message) (flushNow bool) {
	if !b.active {
		b.active = true
		b.deadline = now.Add(b.cfg.FlushInterval)
	}

	b.puts = append(b.puts, put)
	b.acks.Add(msg)

	return len(b.puts) >= b.cfg.MaxSessions
}

func (b *batcher) Deadline() (time.Time, bool) {
	if !b.active {
		return time.Time{}, false
	}
	return b.deadline, true
}

func (b *batcher) Len() int { return len(b.puts) }

// Flush hands the buffered puts and their ack group over and resets the
// batcher for the next window.
func (b *batcher) Flush() ([]ingest.Put[[]*hbase.Mutation], source.AckGroup) {
	puts, acks := b.puts, b.acks
	b.puts = nil
	b.acks = source.AckGroup{}
	b.active = false
	b.deadline = time.Time{}
	return puts, acks
}
