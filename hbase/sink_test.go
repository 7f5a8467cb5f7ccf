package hbase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/commercelab/shopetl/ingest"
	"github.com/commercelab/shopetl/record"
)

// fakeGateway implements Gateway in memory. Scans iterate rows in insertion
// order, which is enough for query tests.
type fakeGateway struct {
	rows      map[string]map[string][]byte
	order     []string
	mutateErr error

	scanners map[int32]*fakeScanner
	nextID   int32

	mutateCalls int
}

type fakeScanner struct {
	keys    []string
	columns []string
	pos     int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		rows:     map[string]map[string][]byte{},
		scanners: map[int32]*fakeScanner{},
	}
}

func (g *fakeGateway) MutateRows(ctx context.Context, table string, batches []*BatchMutation) error {
	g.mutateCalls++
	if g.mutateErr != nil {
		return g.mutateErr
	}
	for _, b := range batches {
		cols, ok := g.rows[b.Row]
		if !ok {
			cols = map[string][]byte{}
			g.rows[b.Row] = cols
			g.order = append(g.order, b.Row)
		}
		for _, m := range b.Mutations {
			if m.IsDelete {
				delete(cols, m.Column)
				continue
			}
			cols[m.Column] = m.Value
		}
	}
	return nil
}

func (g *fakeGateway) GetRow(ctx context.Context, table, row string) (*TRowResult, error) {
	cols, ok := g.rows[row]
	if !ok {
		return nil, nil
	}
	return g.result(row, cols, nil), nil
}

func (g *fakeGateway) result(row string, cols map[string][]byte, restrict []string) *TRowResult {
	out := &TRowResult{Row: row, Columns: map[string]*TCell{}}
	for col, val := range cols {
		if len(restrict) > 0 && !contains(restrict, col) {
			continue
		}
		out.Columns[col] = &TCell{Value: val}
	}
	return out
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func (g *fakeGateway) open(keys, columns []string) (int32, error) {
	g.nextID++
	g.scanners[g.nextID] = &fakeScanner{keys: keys, columns: columns}
	return g.nextID, nil
}

func (g *fakeGateway) ScannerOpenWithPrefix(ctx context.Context, table, prefix string, columns []string) (int32, error) {
	var keys []string
	for _, k := range g.order {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	return g.open(keys, columns)
}

func (g *fakeGateway) ScannerOpen(ctx context.Context, table, startRow string, columns []string) (int32, error) {
	var keys []string
	for _, k := range g.order {
		if k >= startRow {
			keys = append(keys, k)
		}
	}
	return g.open(keys, columns)
}

func (g *fakeGateway) ScannerGetList(ctx context.Context, id int32, nbRows int32) ([]*TRowResult, error) {
	sc, ok := g.scanners[id]
	if !ok {
		return nil, &IllegalArgument{Message: fmt.Sprintf("unknown scanner %d", id)}
	}
	var out []*TRowResult
	for int32(len(out)) < nbRows && sc.pos < len(sc.keys) {
		key := sc.keys[sc.pos]
		sc.pos++
		out = append(out, g.result(key, g.rows[key], sc.columns))
	}
	return out, nil
}

func (g *fakeGateway) ScannerClose(ctx context.Context, id int32) error {
	delete(g.scanners, id)
	return nil
}

func sessionIngestor(t *testing.T, cfg ingest.Config, sink ingest.Sink[[]*Mutation]) *ingest.Ingestor[record.Session, []*Mutation] {
	t.Helper()
	ig, err := ingest.New[record.Session, []*Mutation](cfg, SessionKey, MapSession, sink)
	if err != nil {
		t.Fatalf("ingest.New: %v", err)
	}
	return ig
}

type sliceSessions struct {
	sessions []record.Session
	pos      int
}

func (s *sliceSessions) Next(ctx context.Context) (record.Session, error) {
	if s.pos >= len(s.sessions) {
		var zero record.Session
		return zero, io.EOF
	}
	out := s.sessions[s.pos]
	s.pos++
	return out, nil
}

func TestTableSink_WritesBatches(t *testing.T) {
	gw := newFakeGateway()
	sink, err := NewTableSink(gw, TableSessions)
	if err != nil {
		t.Fatalf("NewTableSink: %v", err)
	}

	var sessions []record.Session
	for i := 0; i < 25; i++ {
		s := sampleSession()
		s.SessionID = fmt.Sprintf("sess_%04d", i)
		s.StartTime = fmt.Sprintf("2025-03-12T14:00:%02d", i)
		sessions = append(sessions, s)
	}

	ig := sessionIngestor(t, ingest.Config{BatchCapacity: 10}, sink)
	run := ig.Ingest(context.Background(), &sliceSessions{sessions: sessions})
	if !run.OK() {
		t.Fatalf("run failed: %v", run.Err)
	}
	if run.Batches != 3 || run.Flushed != 25 {
		t.Fatalf("batches=%d flushed=%d", run.Batches, run.Flushed)
	}
	if gw.mutateCalls != 3 {
		t.Fatalf("mutateRows calls = %d, want 3", gw.mutateCalls)
	}
	if len(gw.rows) != 25 {
		t.Fatalf("rows stored = %d, want 25", len(gw.rows))
	}

	cols := gw.rows["user_000042_2025-03-12T14:00:07"]
	if cols == nil {
		t.Fatalf("expected row for session 7")
	}
	if string(cols[ColSessionID]) != "sess_0007" {
		t.Fatalf("session id column = %q", cols[ColSessionID])
	}
}

func TestTableSink_ClassifiesRejection(t *testing.T) {
	gw := newFakeGateway()
	gw.mutateErr = &IOError{Message: "table disabled"}
	sink, _ := NewTableSink(gw, TableSessions)

	err := sink.Write(context.Background(), ingest.Batch[[]*Mutation]{
		Seq:  1,
		Puts: []ingest.Put[[]*Mutation]{{Key: "k", Value: []*Mutation{{Column: ColSessionID, Value: []byte("s")}}}},
	})
	if !errors.Is(err, ingest.ErrSinkRejected) {
		t.Fatalf("want ErrSinkRejected, got %v", err)
	}
}

func TestTableSink_ClassifiesUnavailable(t *testing.T) {
	gw := newFakeGateway()
	gw.mutateErr = errors.New("connection reset by peer")
	sink, _ := NewTableSink(gw, TableSessions)

	err := sink.Write(context.Background(), ingest.Batch[[]*Mutation]{Seq: 1})
	if !errors.Is(err, ingest.ErrSinkUnavailable) {
		t.Fatalf("want ErrSinkUnavailable, got %v", err)
	}
}
