package source

import "context"

// Message is one unit received from a Stream. Body holds the raw payload
// (for the session queue, one JSON-encoded session).
type Message interface {
	Body() []byte
	// Fail signals that the message could not be processed. Queue-backed
	// streams may shorten its visibility so it is redelivered sooner.
	Fail(ctx context.Context, reason error) error
}

// Stream is a continuous record source with batched acknowledgement.
// Receive blocks until a message is available or the context is canceled.
type Stream interface {
	Receive(ctx context.Context) (Message, error)
	AckBatch(ctx context.Context, msgs []Message) error
}

// AckMeta is a compact handle for fast acknowledgement and lease extension.
type AckMeta struct {
	ID     string
	Handle string
}

// VisibilityExtender extends the redelivery deadline for in-flight messages.
// Used while a flush takes longer than the queue visibility timeout.
type VisibilityExtender interface {
	ExtendVisibility(ctx context.Context, metas []AckMeta, timeoutSeconds int32) error
}

type ackMetable interface {
	AckMeta() (AckMeta, bool)
}

type metaAcker interface {
	AckMetas(ctx context.Context, metas []AckMeta) error
}

// AckGroup accumulates messages acknowledged together after a successful
// flush. When every message exposes an AckMeta and the stream supports
// meta-based acks, Commit takes that fast path.
type AckGroup struct {
	msgs  []Message
	metas []AckMeta
}

func (g *AckGroup) Add(m Message) {
	g.msgs = append(g.msgs, m)
	if am, ok := m.(ackMetable); ok {
		if meta, ok := am.AckMeta(); ok {
			g.metas = append(g.metas, meta)
		}
	}
}

func (g *AckGroup) Len() int { return len(g.msgs) }

func (g *AckGroup) Commit(ctx context.Context, src Stream) error {
	if len(g.msgs) == 0 {
		return nil
	}
	if fast, ok := src.(metaAcker); ok && len(g.metas) == len(g.msgs) {
		return fast.AckMetas(ctx, g.metas)
	}
	return src.AckBatch(ctx, g.msgs)
}

// Metas exposes the collected handles for lease renewal.
func (g *AckGroup) Metas() []AckMeta { return g.metas }

// Snapshot returns a copy whose slices are independent of the receiver,
// so a flush worker can hold it while the group is reused.
func (g AckGroup) Snapshot() AckGroup {
	if len(g.msgs) > 0 {
		cp := make([]Message, len(g.msgs))
		copy(cp, g.msgs)
		g.msgs = cp
	} else {
		g.msgs = nil
	}
	if len(g.metas) > 0 {
		cp := make([]AckMeta, len(g.metas))
		copy(cp, g.metas)
		g.metas = cp
	} else {
		g.metas = nil
	}
	return g
}
