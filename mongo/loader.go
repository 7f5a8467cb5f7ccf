package mongo

import (
	"context"
	"log"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/commercelab/shopetl/ingest"
	"github.com/commercelab/shopetl/record"
	"github.com/commercelab/shopetl/source"
)

// Collection names used across the toolkit.
const (
	CollCategories   = "categories"
	CollProducts     = "products"
	CollUsers        = "users"
	CollTransactions = "transactions"
)

const (
	refBatchCapacity = 1000
	txBatchCapacity  = 10000
)

// Loader replaces the reference collections from the raw JSON files. Every
// load drops the target collection first, so a rerun converges on the file
// contents instead of accumulating duplicates.
type Loader struct {
	db *mongo.Database

	// OnError is applied to every load. FailFast by default.
	OnError ingest.Mode
}

func NewLoader(store *Store) *Loader {
	return &Loader{db: store.Database()}
}

// Index sets per collection. The primary ID of each collection is unique;
// the rest back the aggregation and lookup paths.
var (
	categoryIndexes = []mongo.IndexModel{
		uniqueIndex("category_id"),
	}
	productIndexes = []mongo.IndexModel{
		uniqueIndex("product_id"),
		index("category_id"),
		index("is_active"),
		index("base_price"),
	}
	userIndexes = []mongo.IndexModel{
		uniqueIndex("user_id"),
		index("geo_data.state"),
		index("registration_date"),
	}
	transactionIndexes = []mongo.IndexModel{
		uniqueIndex("transaction_id"),
		index("user_id"),
		index("session_id"),
		index("timestamp"),
		index("status"),
		index("items.product_id"),
	}
)

func (l *Loader) LoadCategories(ctx context.Context, path string) (ingest.Run, error) {
	return loadCollection(ctx, l, CollCategories, path, refBatchCapacity,
		func(c record.Category) (string, error) { return c.CategoryID, nil },
		categoryIndexes)
}

func (l *Loader) LoadProducts(ctx context.Context, path string) (ingest.Run, error) {
	return loadCollection(ctx, l, CollProducts, path, refBatchCapacity,
		func(p record.Product) (string, error) { return p.ProductID, nil },
		productIndexes)
}

func (l *Loader) LoadUsers(ctx context.Context, path string) (ingest.Run, error) {
	return loadCollection(ctx, l, CollUsers, path, refBatchCapacity,
		func(u record.User) (string, error) { return u.UserID, nil },
		userIndexes)
}

func (l *Loader) LoadTransactions(ctx context.Context, path string) (ingest.Run, error) {
	return loadCollection(ctx, l, CollTransactions, path, txBatchCapacity,
		func(t record.Transaction) (string, error) { return t.TransactionID, nil },
		transactionIndexes)
}

func index(field string) mongo.IndexModel {
	return mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}}}
}

func uniqueIndex(field string) mongo.IndexModel {
	return mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetUnique(true),
	}
}

// validated is satisfied by every record type carried through a load.
type validated interface {
	Validate() error
}

func loadCollection[T validated](ctx context.Context, l *Loader, name, path string, capacity int, keyFn ingest.KeyFunc[T], indexes []mongo.IndexModel) (ingest.Run, error) {
	src, err := source.OpenJSONArray[T](path)
	if err != nil {
		return ingest.Run{}, err
	}
	defer src.Close()

	coll := l.db.Collection(name)
	if err := coll.Drop(ctx); err != nil {
		return ingest.Run{}, errors.Wrapf(err, "dropping %s", name)
	}

	cfg := ingest.Config{
		BatchCapacity: capacity,
		OnError:       l.OnError,
		Progress: func(seq, puts, total int) {
			log.Printf("%s: batch %d flushed, %d puts, %d total", name, seq, puts, total)
		},
	}
	mapFn := func(rec T) (T, error) {
		if err := rec.Validate(); err != nil {
			return rec, err
		}
		return rec, nil
	}
	ing, err := ingest.New(cfg, keyFn, mapFn, NewDocSink[T](coll))
	if err != nil {
		return ingest.Run{}, err
	}

	run := ing.Ingest(ctx, src)
	if run.Err != nil {
		return run, errors.Wrapf(run.Err, "loading %s", name)
	}

	if len(indexes) > 0 {
		if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
			return run, errors.Wrapf(err, "indexing %s", name)
		}
	}
	log.Printf("%s: loaded %d documents in %d batches, %d skipped", name, run.Flushed, run.Batches, len(run.Skipped))
	return run, nil
}
