// Package stream keeps the session table current by draining a message queue
// into the wide-column store. Each message carries one JSON-encoded session;
// messages are acknowledged only after their batch is written, so delivery is
// at least once and a crash never loses queued sessions.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/commercelab/shopetl/hbase"
	"github.com/commercelab/shopetl/ingest"
	"github.com/commercelab/shopetl/record"
	"github.com/commercelab/shopetl/source"
)

const drainTimeout = 10 * time.Second

type Config struct {
	Batch BatchConfig

	// WriteRetry wraps sink writes. Rejections are never retried.
	WriteRetry Retry
	// AckRetry wraps ack commits after a successful write.
	AckRetry Retry

	// LeaseTimeoutSeconds, when > 0 and the stream supports it, keeps
	// in-flight messages invisible while a flush runs longer than the queue
	// visibility timeout. LeaseRenewEvery controls the renewal cadence.
	LeaseTimeoutSeconds int32
	LeaseRenewEvery     time.Duration

	// OnFlush, if set, is called after each flushed batch.
	OnFlush func(sessions, total int)
}

func DefaultConfig() Config {
	return Config{
		Batch:      DefaultBatchConfig,
		WriteRetry: DefaultBackoff,
		AckRetry:   DefaultBackoff,
	}
}

// Stats counts one Run.
type Stats struct {
	Received int
	Written  int
	Failed   int
	Batches  int
}

// Streamer moves sessions from a stream into a batch sink. Malformed
// messages are failed back to the stream for redelivery or dead-lettering
// and do not stall the run.
type Streamer struct {
	cfg  Config
	src  source.Stream
	sink ingest.Sink[[]*hbase.Mutation]

	b     *batcher
	seq   int
	stats Stats
}

func New(cfg Config, src source.Stream, sink ingest.Sink[[]*hbase.Mutation]) (*Streamer, error) {
	if src == nil {
		return nil, errors.New("src is nil")
	}
	if sink == nil {
		return nil, errors.New("sink is nil")
	}
	b, err := newBatcher(cfg.Batch)
	if err != nil {
		return nil, err
	}
	if cfg.WriteRetry == nil {
		cfg.WriteRetry = nopRetry{}
	}
	if cfg.AckRetry == nil {
		cfg.AckRetry = nopRetry{}
	}
	return &Streamer{cfg: cfg, src: src, sink: sink, b: b}, nil
}

// Run consumes the stream until the context is canceled or the stream
// closes, then drains the buffered remainder. A sink failure aborts the run;
// unacknowledged messages reappear on the queue.
func (s *Streamer) Run(ctx context.Context) (Stats, error) {
	for {
		if ctx.Err() != nil {
			return s.stats, s.drain(ctx)
		}

		recvCtx := ctx
		var cancel context.CancelFunc
		if deadline, ok := s.b.Deadline(); ok {
			recvCtx, cancel = context.WithDeadline(ctx, deadline)
		}
		msg, err := s.src.Receive(recvCtx)
		if cancel != nil {
			cancel()
		}

		if err != nil {
			// Deadline hit: time-based flush.
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				if err := s.flush(ctx); err != nil {
					return s.stats, err
				}
				continue
			}
			if errors.Is(err, source.ErrStreamClosed) || ctx.Err() != nil {
				return s.stats, s.drain(ctx)
			}
			return s.stats, err
		}

		s.stats.Received++
		s.process(ctx, msg)

		if s.b.Len() >= s.cfg.Batch.MaxSessions {
			if err := s.flush(ctx); err != nil {
				return s.stats, err
			}
		}
	}
}

// process decodes and keys one message. Bad messages are failed back to the
// stream and counted, never buffered.
func (s *Streamer) process(ctx context.Context, msg source.Message) {
	var sess record.Session
	if err := json.Unmarshal(msg.Body(), &sess); err != nil {
		s.fail(ctx, msg, err)
		return
	}

	key, err := hbase.SessionKey(sess)
	if err != nil {
		s.fail(ctx, msg, err)
		return
	}
	muts, err := hbase.MapSession(sess)
	if err != nil {
		s.fail(ctx, msg, err)
		return
	}

	s.b.Add(time.Now(), ingest.Put[[]*hbase.Mutation]{Key: key, Value: muts}, msg)
}

func (s *Streamer) fail(ctx context.Context, msg source.Message, reason error) {
	s.stats.Failed++
	log.Printf("stream: dropping message: %v", reason)
	if err := msg.Fail(ctx, reason); err != nil {
		log.Printf("stream: failing message back to queue: %v", err)
	}
}

func (s *Streamer) flush(ctx context.Context) error {
	puts, acks := s.b.Flush()
	if len(puts) == 0 {
		return nil
	}
	s.seq++
	batch := ingest.Batch[[]*hbase.Mutation]{Seq: s.seq, Puts: puts}

	stopLease := s.startLease(ctx, acks.Metas())
	defer stopLease()

	// Retry only transport trouble. A rejection is permanent for this batch
	// and retrying would duplicate the failure.
	var rejected error
	err := s.cfg.WriteRetry.Do(ctx, func(ctx context.Context) error {
		err := s.sink.Write(ctx, batch)
		if errors.Is(err, ingest.ErrSinkRejected) {
			rejected = err
			return nil
		}
		return err
	})
	if err == nil {
		err = rejected
	}
	if err != nil {
		return fmt.Errorf("flush batch %d (%d sessions): %w", batch.Seq, len(puts), err)
	}

	if err := s.cfg.AckRetry.Do(ctx, func(ctx context.Context) error {
		return acks.Commit(ctx, s.src)
	}); err != nil {
		return fmt.Errorf("acking batch %d: %w", batch.Seq, err)
	}

	s.stats.Batches++
	s.stats.Written += len(puts)
	if s.cfg.OnFlush != nil {
		s.cfg.OnFlush(len(puts), s.stats.Written)
	}
	return nil
}

// startLease keeps the batch's messages invisible while the flush runs.
// Renewal failures are logged, not fatal: the worst case is redelivery,
// which at-least-once delivery already tolerates.
func (s *Streamer) startLease(parent context.Context, metas []source.AckMeta) (stop func()) {
	if s.cfg.LeaseTimeoutSeconds <= 0 || len(metas) == 0 {
		return func() {}
	}
	ext, ok := s.src.(source.VisibilityExtender)
	if !ok {
		return func() {}
	}

	renewEvery := s.cfg.LeaseRenewEvery
	if renewEvery <= 0 {
		renewEvery = 20 * time.Second
	}

	ctx, cancel := context.WithCancel(parent)
	go func() {
		t := time.NewTicker(renewEvery)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := ext.ExtendVisibility(ctx, metas, s.cfg.LeaseTimeoutSeconds); err != nil {
					log.Printf("stream: extending visibility: %v", err)
				}
			}
		}
	}()
	return cancel
}

// drain flushes the buffered remainder with a bounded context that survives
// the parent's cancellation.
func (s *Streamer) drain(ctx context.Context) error {
	base := context.WithoutCancel(ctx)
	stopCtx, cancel := context.WithTimeout(base, drainTimeout)
	defer cancel()
	return s.flush(stopCtx)
}
