package cmd

import (
	"context"
	"time"

	"github.com/spf13/pflag"

	"github.com/commercelab/shopetl/hbase"
	"github.com/commercelab/shopetl/mongo"
)

// mongoFlags groups the document store connection flags shared by the
// loading and reporting commands.
type mongoFlags struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Timeout  time.Duration
}

func (f *mongoFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.Host, "mongo-host", mongo.DefaultConfig.Host, "document store host")
	flags.IntVar(&f.Port, "mongo-port", mongo.DefaultConfig.Port, "document store port")
	flags.StringVar(&f.User, "mongo-user", "", "document store user")
	flags.StringVar(&f.Password, "mongo-password", "", "document store password")
	flags.StringVar(&f.Database, "mongo-db", mongo.DefaultConfig.Database, "document store database")
	flags.DurationVar(&f.Timeout, "mongo-timeout", mongo.DefaultConfig.Timeout, "connect timeout")
}

func (f *mongoFlags) connect(ctx context.Context) (*mongo.Store, error) {
	return mongo.Connect(ctx, mongo.Config{
		Host:     f.Host,
		Port:     f.Port,
		User:     f.User,
		Password: f.Password,
		Database: f.Database,
		Timeout:  f.Timeout,
	})
}

// hbaseFlags groups the Thrift gateway connection flags.
type hbaseFlags struct {
	Host    string
	Port    int
	Timeout time.Duration
}

func (f *hbaseFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.Host, "hbase-host", hbase.DefaultConfig.Host, "thrift gateway host")
	flags.IntVar(&f.Port, "hbase-port", hbase.DefaultConfig.Port, "thrift gateway port")
	flags.DurationVar(&f.Timeout, "hbase-timeout", hbase.DefaultConfig.Timeout, "socket timeout")
}

func (f *hbaseFlags) dial(ctx context.Context) (*hbase.Client, error) {
	return hbase.Dial(ctx, hbase.Config{Host: f.Host, Port: f.Port, Timeout: f.Timeout})
}
