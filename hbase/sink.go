package hbase

import (
	"context"
	"errors"
	"fmt"

	"github.com/commercelab/shopetl/ingest"
)

// Gateway is the subset of the Thrift service the toolkit uses. *Client
// implements it; tests substitute fakes.
type Gateway interface {
	MutateRows(ctx context.Context, table string, batches []*BatchMutation) error
	GetRow(ctx context.Context, table, row string) (*TRowResult, error)
	ScannerOpenWithPrefix(ctx context.Context, table, prefix string, columns []string) (int32, error)
	ScannerOpen(ctx context.Context, table, startRow string, columns []string) (int32, error)
	ScannerGetList(ctx context.Context, id int32, nbRows int32) ([]*TRowResult, error)
	ScannerClose(ctx context.Context, id int32) error
}

var _ Gateway = (*Client)(nil)

// TableSink writes session batches to one table through the gateway. Each
// ingest batch becomes a single mutateRows call.
type TableSink struct {
	gw    Gateway
	table string
}

func NewTableSink(gw Gateway, table string) (*TableSink, error) {
	if gw == nil {
		return nil, errors.New("gateway is nil")
	}
	if table == "" {
		return nil, errors.New("table is empty")
	}
	return &TableSink{gw: gw, table: table}, nil
}

func (s *TableSink) Write(ctx context.Context, batch ingest.Batch[[]*Mutation]) error {
	rows := make([]*BatchMutation, 0, len(batch.Puts))
	for _, put := range batch.Puts {
		rows = append(rows, &BatchMutation{Row: put.Key, Mutations: put.Value})
	}
	if err := s.gw.MutateRows(ctx, s.table, rows); err != nil {
		return classifySinkErr(err)
	}
	return nil
}

// classifySinkErr maps gateway failures onto the ingest error taxonomy:
// store-side exceptions are rejections, anything else (socket, protocol,
// timeout) means the gateway is unreachable.
func classifySinkErr(err error) error {
	var ioe *IOError
	var iae *IllegalArgument
	if errors.As(err, &ioe) || errors.As(err, &iae) {
		return fmt.Errorf("%w: %s", ingest.ErrSinkRejected, err)
	}
	return fmt.Errorf("%w: %s", ingest.ErrSinkUnavailable, err)
}
