package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/commercelab/shopetl/ingest"
)

// inserter is the slice of the driver collection API the sink needs.
type inserter interface {
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
}

// DocSink writes each batch with a single ordered InsertMany.
type DocSink[P any] struct {
	coll inserter
}

func NewDocSink[P any](coll inserter) *DocSink[P] {
	return &DocSink[P]{coll: coll}
}

func (s *DocSink[P]) Write(ctx context.Context, batch ingest.Batch[P]) error {
	docs := make([]interface{}, len(batch.Puts))
	for i, put := range batch.Puts {
		docs[i] = put.Value
	}
	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		return classifyInsertErr(err)
	}
	return nil
}

// classifyInsertErr separates server-side rejections (malformed or duplicate
// documents, failed command) from transport trouble. Only the latter is worth
// retrying against the same batch.
func classifyInsertErr(err error) error {
	var (
		bulkErr  mongo.BulkWriteException
		writeErr mongo.WriteException
		cmdErr   mongo.CommandError
	)
	if errors.As(err, &bulkErr) || errors.As(err, &writeErr) || errors.As(err, &cmdErr) {
		return fmt.Errorf("%w: %s", ingest.ErrSinkRejected, err)
	}
	return fmt.Errorf("%w: %s", ingest.ErrSinkUnavailable, err)
}
