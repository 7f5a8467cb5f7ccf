package hbase

import (
	"context"
	"fmt"
	"time"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/pkg/errors"
)

type Config struct {
	Host    string
	Port    int
	Timeout time.Duration
}

var DefaultConfig = Config{
	Host:    "localhost",
	Port:    9090,
	Timeout: 30 * time.Second,
}

func (c Config) validate() error {
	if c.Host == "" {
		return errors.New("Host is empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("invalid Port %d", c.Port)
	}
	return nil
}

func (c Config) addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// Client is a connection to the Thrift gateway. Not safe for concurrent use:
// the gateway protocol is a single request/response stream per connection.
type Client struct {
	transport thrift.TTransport
	rpc       *thrift.TStandardClient
}

// Dial opens a buffered socket to the gateway with the binary protocol.
// The caller owns the connection and must Close it when the run ends.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	tcfg := &thrift.TConfiguration{
		ConnectTimeout: cfg.Timeout,
		SocketTimeout:  cfg.Timeout,
	}
	sock := thrift.NewTSocketConf(cfg.addr(), tcfg)
	transport := thrift.NewTBufferedTransport(sock, 8192)
	if err := transport.Open(); err != nil {
		return nil, errors.Wrapf(err, "dialing gateway %s", cfg.addr())
	}

	proto := thrift.NewTBinaryProtocolConf(transport, tcfg)
	return &Client{
		transport: transport,
		rpc:       thrift.NewTStandardClient(proto, proto),
	}, nil
}

func (c *Client) Close() error {
	return c.transport.Close()
}

// GetTableNames lists the tables the gateway serves.
func (c *Client) GetTableNames(ctx context.Context) ([]string, error) {
	var result getTableNamesResult
	if _, err := c.rpc.Call(ctx, "getTableNames", &getTableNamesArgs{}, &result); err != nil {
		return nil, errors.Wrap(err, "getTableNames")
	}
	if result.IO != nil {
		return nil, result.IO
	}
	return result.Success, nil
}

// CreateTable creates table with the given column families. Creating a table
// that already exists returns *AlreadyExists.
func (c *Client) CreateTable(ctx context.Context, table string, families []string) error {
	descriptors := make([]*ColumnDescriptor, len(families))
	for i, f := range families {
		descriptors[i] = &ColumnDescriptor{Name: f + ":"}
	}
	args := &createTableArgs{TableName: table, ColumnFamilies: descriptors}
	var result createTableResult
	if _, err := c.rpc.Call(ctx, "createTable", args, &result); err != nil {
		return errors.Wrap(err, "createTable")
	}
	if result.IO != nil {
		return result.IO
	}
	if result.IA != nil {
		return result.IA
	}
	if result.Exist != nil {
		return result.Exist
	}
	return nil
}

// MutateRows applies one batch of row mutations to table.
func (c *Client) MutateRows(ctx context.Context, table string, batches []*BatchMutation) error {
	args := &mutateRowsArgs{TableName: table, RowBatches: batches}
	var result mutateRowsResult
	if _, err := c.rpc.Call(ctx, "mutateRows", args, &result); err != nil {
		return errors.Wrap(err, "mutateRows")
	}
	if result.IO != nil {
		return result.IO
	}
	if result.IA != nil {
		return result.IA
	}
	return nil
}

// GetRow fetches a single row by key. Returns nil when the row does not exist.
func (c *Client) GetRow(ctx context.Context, table, row string) (*TRowResult, error) {
	args := &getRowArgs{TableName: table, Row: row}
	var result getRowResult
	if _, err := c.rpc.Call(ctx, "getRow", args, &result); err != nil {
		return nil, errors.Wrap(err, "getRow")
	}
	if result.IO != nil {
		return nil, result.IO
	}
	if len(result.Success) == 0 {
		return nil, nil
	}
	return result.Success[0], nil
}

// ScannerOpenWithPrefix opens a scanner over every row whose key starts with
// prefix. columns restricts the returned columns; nil returns all.
func (c *Client) ScannerOpenWithPrefix(ctx context.Context, table, prefix string, columns []string) (int32, error) {
	args := &scannerOpenArgs{Method: "scannerOpenWithPrefix", TableName: table, StartRow: prefix, Columns: columns}
	var result scannerOpenResult
	if _, err := c.rpc.Call(ctx, "scannerOpenWithPrefix", args, &result); err != nil {
		return 0, errors.Wrap(err, "scannerOpenWithPrefix")
	}
	if result.IO != nil {
		return 0, result.IO
	}
	if result.Success == nil {
		return 0, errors.New("scannerOpenWithPrefix: missing scanner id")
	}
	return *result.Success, nil
}

// ScannerOpen opens a scanner starting at startRow ("" scans from the first
// row). columns restricts the returned columns; nil returns all.
func (c *Client) ScannerOpen(ctx context.Context, table, startRow string, columns []string) (int32, error) {
	args := &scannerOpenArgs{Method: "scannerOpen", TableName: table, StartRow: startRow, Columns: columns}
	var result scannerOpenResult
	if _, err := c.rpc.Call(ctx, "scannerOpen", args, &result); err != nil {
		return 0, errors.Wrap(err, "scannerOpen")
	}
	if result.IO != nil {
		return 0, result.IO
	}
	if result.Success == nil {
		return 0, errors.New("scannerOpen: missing scanner id")
	}
	return *result.Success, nil
}

// ScannerGetList fetches up to nbRows rows from an open scanner. An empty
// result means the scan is exhausted.
func (c *Client) ScannerGetList(ctx context.Context, id int32, nbRows int32) ([]*TRowResult, error) {
	args := &scannerGetListArgs{ID: id, NbRows: nbRows}
	var result scannerGetListResult
	if _, err := c.rpc.Call(ctx, "scannerGetList", args, &result); err != nil {
		return nil, errors.Wrap(err, "scannerGetList")
	}
	if result.IO != nil {
		return nil, result.IO
	}
	if result.IA != nil {
		return nil, result.IA
	}
	return result.Success, nil
}

func (c *Client) ScannerClose(ctx context.Context, id int32) error {
	args := &scannerCloseArgs{ID: id}
	var result scannerCloseResult
	if _, err := c.rpc.Call(ctx, "scannerClose", args, &result); err != nil {
		return errors.Wrap(err, "scannerClose")
	}
	if result.IO != nil {
		return result.IO
	}
	if result.IA != nil {
		return result.IA
	}
	return nil
}
