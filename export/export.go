package export

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/commercelab/shopetl/source"
)

// Dataset names double as the top-level key segment in object storage.
const (
	DatasetTransactions = "transactions"
	DatasetUsers        = "users"
	DatasetProducts     = "products"
	DatasetSessions     = "sessions"
)

// Result describes one exported dataset object.
type Result struct {
	Dataset string
	Rows    int
	Dropped int
	Bytes   int
	Key     string
}

// Exporter turns raw dataset files into Parquet objects. Rows that fail
// validation are dropped and counted; duplicates by primary ID keep the
// first occurrence.
type Exporter struct {
	sink        *ObjectSink
	compression string

	// overridable in tests
	now   func() time.Time
	newID func() string
}

func NewExporter(sink *ObjectSink, compression string) (*Exporter, error) {
	if sink == nil {
		return nil, fmt.Errorf("sink is nil")
	}
	return &Exporter{
		sink:        sink,
		compression: compression,
		now:         time.Now,
		newID:       func() string { return uuid.NewString() },
	}, nil
}

func (e *Exporter) Transactions(ctx context.Context, path string) (Result, error) {
	return exportDataset(ctx, e, DatasetTransactions, path, CleanTransaction,
		func(r TxRow) string { return r.TransactionID })
}

func (e *Exporter) Users(ctx context.Context, path string) (Result, error) {
	return exportDataset(ctx, e, DatasetUsers, path, CleanUser,
		func(r UserRow) string { return r.UserID })
}

func (e *Exporter) Products(ctx context.Context, path string) (Result, error) {
	return exportDataset(ctx, e, DatasetProducts, path, CleanProduct,
		func(r ProductRow) string { return r.ProductID })
}

func (e *Exporter) Sessions(ctx context.Context, path string) (Result, error) {
	return exportDataset(ctx, e, DatasetSessions, path, CleanSession,
		func(r SessionRow) string { return r.SessionID })
}

// objectKey partitions by export date: <dataset>/<yyyy>/<mm>/<dd>/<uuid>.parquet.
func (e *Exporter) objectKey(dataset string) string {
	now := e.now().UTC()
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s.parquet",
		dataset, now.Year(), int(now.Month()), now.Day(), e.newID())
}

func exportDataset[T, R any](ctx context.Context, e *Exporter, dataset, path string, clean func(T) (R, error), key func(R) string) (Result, error) {
	src, err := source.OpenJSONArray[T](path)
	if err != nil {
		return Result{}, err
	}
	defer src.Close()

	var (
		rows    []R
		dropped int
	)
	for {
		rec, err := src.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, err
		}
		row, err := clean(rec)
		if err != nil {
			dropped++
			log.Printf("export %s: dropping row: %v", dataset, err)
			continue
		}
		rows = append(rows, row)
	}
	before := len(rows)
	rows = dedupe(rows, key)
	dropped += before - len(rows)

	enc := Encoder[R]{Compression: e.compression}
	data, err := enc.Encode(ctx, rows)
	if err != nil {
		return Result{}, fmt.Errorf("encoding %s: %w", dataset, err)
	}

	res := Result{
		Dataset: dataset,
		Rows:    len(rows),
		Dropped: dropped,
		Bytes:   len(data),
		Key:     e.objectKey(dataset),
	}
	if err := e.sink.Put(ctx, res.Key, data, parquetContentType); err != nil {
		return Result{}, err
	}
	log.Printf("export %s: %d rows (%d dropped), %d bytes, key %s",
		dataset, res.Rows, res.Dropped, res.Bytes, res.Key)
	return res, nil
}
