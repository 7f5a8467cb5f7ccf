// Package mongo loads the reference collections into the document store and
// runs the aggregation pipelines of the analytics suite.
package mongo

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Timeout  time.Duration
}

var DefaultConfig = Config{
	Host:     "localhost",
	Port:     27017,
	Database: "ecommerce",
	Timeout:  10 * time.Second,
}

func (c Config) validate() error {
	if c.Host == "" {
		return errors.New("Host is empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("invalid Port %d", c.Port)
	}
	if c.Database == "" {
		return errors.New("Database is empty")
	}
	return nil
}

// URI builds the connection string. Credentials are URL-escaped; without a
// user the URI carries no credential part at all.
func (c Config) URI() string {
	if c.User == "" {
		return fmt.Sprintf("mongodb://%s:%d/", c.Host, c.Port)
	}
	return fmt.Sprintf("mongodb://%s:%s@%s:%d/",
		url.QueryEscape(c.User), url.QueryEscape(c.Password), c.Host, c.Port)
}

// Store is one authenticated connection to the document store, scoped to a
// run: Connect, use, Close.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials and pings the server before returning.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI()))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to document store")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrapf(err, "pinging %s:%d", cfg.Host, cfg.Port)
	}

	return &Store{client: client, db: client.Database(cfg.Database)}, nil
}

func (s *Store) Database() *mongo.Database { return s.db }

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
