package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Source yields records one at a time. Next returns io.EOF when the source is
// exhausted. Read failures should be returned as *SourceError so the run can
// report the position that failed.
type Source[T any] interface {
	Next(ctx context.Context) (T, error)
}

// KeyFunc computes the sink key for a record. Keys must be unique per run;
// ordering of keys controls locality in the sink.
type KeyFunc[T any] func(rec T) (string, error)

// MapFunc converts a record into the sink's write payload.
type MapFunc[T, P any] func(rec T) (P, error)

// Put is one keyed write awaiting flush.
type Put[P any] struct {
	Key   string
	Value P
}

// Batch is a bounded group of puts flushed together. Seq is 1-based.
type Batch[P any] struct {
	Seq  int
	Puts []Put[P]
}

// Sink receives flushed batches. Write must classify failures with
// ErrSinkUnavailable or ErrSinkRejected.
type Sink[P any] interface {
	Write(ctx context.Context, batch Batch[P]) error
}

// Mode selects how transform failures are handled.
type Mode int

const (
	// FailFast aborts the run on the first transform failure.
	FailFast Mode = iota
	// SkipAndCount records the failure and continues with the next record.
	SkipAndCount
)

// Progress reports one flushed batch: its sequence number, the number of puts
// it carried, and the running total of flushed records.
type Progress func(seq, puts, totalFlushed int)

type Config struct {
	// BatchCapacity bounds the in-memory batch. Peak memory is
	// O(BatchCapacity) records regardless of source size.
	BatchCapacity int

	// OnError selects fail-fast or skip-and-count handling of transform
	// failures. Sink and source failures are always fatal.
	OnError Mode

	// Progress, if set, is called after every successful flush.
	Progress Progress
}

var DefaultConfig = Config{
	BatchCapacity: 1000,
	OnError:       FailFast,
}

func (c Config) validate() error {
	if c.BatchCapacity <= 0 {
		return errors.New("BatchCapacity must be > 0")
	}
	if c.OnError != FailFast && c.OnError != SkipAndCount {
		return fmt.Errorf("unknown error mode %d", c.OnError)
	}
	return nil
}

// Skip records one source record that was dropped in skip-and-count mode.
type Skip struct {
	Pos    int
	Key    string
	Reason string
}

// Run summarizes one ingest over one source. On success Flushed equals
// Read minus len(Skipped).
type Run struct {
	Read    int
	Flushed int
	Batches int
	Skipped []Skip
	Err     error
}

func (r Run) OK() bool { return r.Err == nil }

// Ingestor reads records from a source, keys and maps each one, accumulates
// puts into capacity-bounded batches and flushes them to a sink in order.
// Delivery is at-least-once: batches flushed before a failure stay applied.
type Ingestor[T, P any] struct {
	cfg   Config
	keyFn KeyFunc[T]
	mapFn MapFunc[T, P]
	sink  Sink[P]
}

func New[T, P any](cfg Config, keyFn KeyFunc[T], mapFn MapFunc[T, P], sink Sink[P]) (*Ingestor[T, P], error) {
	if keyFn == nil {
		return nil, errors.New("keyFn is nil")
	}
	if mapFn == nil {
		return nil, errors.New("mapFn is nil")
	}
	if sink == nil {
		return nil, errors.New("sink is nil")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Ingestor[T, P]{cfg: cfg, keyFn: keyFn, mapFn: mapFn, sink: sink}, nil
}

// Ingest consumes the source in order until io.EOF, flushing a batch every
// time it reaches capacity and once more for the remainder. The returned Run
// always accounts for every consumed record, also when it reports a failure.
func (i *Ingestor[T, P]) Ingest(ctx context.Context, src Source[T]) Run {
	var (
		run  Run
		puts = make([]Put[P], 0, i.cfg.BatchCapacity)
		seen = make(map[string]struct{})
	)

	flush := func() error {
		if len(puts) == 0 {
			return nil
		}
		run.Batches++
		batch := Batch[P]{Seq: run.Batches, Puts: puts}
		if err := i.sink.Write(ctx, batch); err != nil {
			return fmt.Errorf("flush batch %d (%d puts): %w", batch.Seq, len(batch.Puts), err)
		}
		run.Flushed += len(puts)
		if i.cfg.Progress != nil {
			i.cfg.Progress(batch.Seq, len(batch.Puts), run.Flushed)
		}
		puts = make([]Put[P], 0, i.cfg.BatchCapacity)
		return nil
	}

	skipOrFail := func(terr *TransformError) bool {
		if i.cfg.OnError == SkipAndCount {
			run.Skipped = append(run.Skipped, Skip{Pos: terr.Pos, Key: terr.Key, Reason: terr.Reason.Error()})
			return true
		}
		run.Err = terr
		return false
	}

	for {
		if err := ctx.Err(); err != nil {
			run.Err = err
			return run
		}

		rec, err := src.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			var serr *SourceError
			if !errors.As(err, &serr) {
				err = &SourceError{Pos: run.Read + 1, Err: err}
			}
			run.Err = err
			return run
		}
		run.Read++

		key, err := i.keyFn(rec)
		if err != nil {
			if skipOrFail(&TransformError{Pos: run.Read, Reason: err}) {
				continue
			}
			return run
		}
		if _, dup := seen[key]; dup {
			if skipOrFail(&TransformError{Pos: run.Read, Key: key, Reason: fmt.Errorf("duplicate sink key")}) {
				continue
			}
			return run
		}

		val, err := i.mapFn(rec)
		if err != nil {
			if skipOrFail(&TransformError{Pos: run.Read, Key: key, Reason: err}) {
				continue
			}
			return run
		}

		seen[key] = struct{}{}
		puts = append(puts, Put[P]{Key: key, Value: val})

		if len(puts) >= i.cfg.BatchCapacity {
			if err := flush(); err != nil {
				run.Err = err
				return run
			}
		}
	}

	if err := flush(); err != nil {
		run.Err = err
	}
	return run
}
