package mongo

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/commercelab/shopetl/ingest"
	"github.com/commercelab/shopetl/record"
)

type fakeColl struct {
	docs []interface{}
	err  error
}

func (f *fakeColl) InsertMany(_ context.Context, documents []interface{}, _ ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.docs = append(f.docs, documents...)
	return &mongo.InsertManyResult{}, nil
}

func TestDocSink_WritesBatchValues(t *testing.T) {
	coll := &fakeColl{}
	sink := NewDocSink[record.Category](coll)

	batch := ingest.Batch[record.Category]{Seq: 1, Puts: []ingest.Put[record.Category]{
		{Key: "cat_001", Value: record.Category{CategoryID: "cat_001", Name: "Books"}},
		{Key: "cat_002", Value: record.Category{CategoryID: "cat_002", Name: "Garden"}},
	}}
	if err := sink.Write(context.Background(), batch); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if len(coll.docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(coll.docs))
	}
	got, ok := coll.docs[1].(record.Category)
	if !ok {
		t.Fatalf("document has type %T", coll.docs[1])
	}
	if got.Name != "Garden" {
		t.Fatalf("expected Garden, got %q", got.Name)
	}
}

func TestDocSink_ClassifiesErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "bulk write exception is a rejection",
			err: mongo.BulkWriteException{WriteErrors: []mongo.BulkWriteError{
				{WriteError: mongo.WriteError{Code: 11000, Message: "duplicate key"}},
			}},
			want: ingest.ErrSinkRejected,
		},
		{
			name: "command error is a rejection",
			err:  mongo.CommandError{Code: 13, Message: "unauthorized"},
			want: ingest.ErrSinkRejected,
		},
		{
			name: "transport error is unavailable",
			err:  errors.New("server selection timeout"),
			want: ingest.ErrSinkUnavailable,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sink := NewDocSink[record.Category](&fakeColl{err: tc.err})
			batch := ingest.Batch[record.Category]{Seq: 1, Puts: []ingest.Put[record.Category]{
				{Key: "cat_001", Value: record.Category{CategoryID: "cat_001"}},
			}}
			err := sink.Write(context.Background(), batch)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
