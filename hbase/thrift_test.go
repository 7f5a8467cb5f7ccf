package hbase

import (
	"context"
	"testing"

	"github.com/apache/thrift/lib/go/thrift"
)

func roundTrip(t *testing.T, out, in thrift.TStruct) {
	t.Helper()
	buf := thrift.NewTMemoryBuffer()
	proto := thrift.NewTBinaryProtocolConf(buf, nil)

	ctx := context.Background()
	if err := out.Write(ctx, proto); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := proto.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := in.Read(ctx, proto); err != nil {
		t.Fatalf("read: %v", err)
	}
}

func TestBatchMutation_RoundTrip(t *testing.T) {
	out := &BatchMutation{
		Row: "user_000042_2025-03-12T14:37:22",
		Mutations: []*Mutation{
			{Column: ColSessionID, Value: []byte("sess_1")},
			{Column: ColDeviceType, Value: []byte("mobile")},
			{IsDelete: true, Column: ColGeoIP},
		},
	}

	in := &BatchMutation{}
	roundTrip(t, out, in)

	if in.Row != out.Row {
		t.Fatalf("row %q want %q", in.Row, out.Row)
	}
	if len(in.Mutations) != 3 {
		t.Fatalf("mutations=%d want 3", len(in.Mutations))
	}
	if in.Mutations[0].Column != ColSessionID || string(in.Mutations[0].Value) != "sess_1" {
		t.Fatalf("first mutation = %+v", in.Mutations[0])
	}
	if !in.Mutations[2].IsDelete {
		t.Fatalf("delete flag lost")
	}
}

func TestTRowResult_RoundTrip(t *testing.T) {
	out := &TRowResult{
		Row: "user_000001_2025-01-01T00:00:00",
		Columns: map[string]*TCell{
			ColConversionStatus: {Value: []byte("converted"), Timestamp: 1735689600},
			ColDuration:         {Value: []byte("1488")},
		},
	}

	in := &TRowResult{}
	roundTrip(t, out, in)

	if in.Row != out.Row {
		t.Fatalf("row %q", in.Row)
	}
	cell, ok := in.Columns[ColConversionStatus]
	if !ok || string(cell.Value) != "converted" || cell.Timestamp != 1735689600 {
		t.Fatalf("conversion cell = %+v", cell)
	}
}

func TestMutateRowsArgs_RoundTrip(t *testing.T) {
	out := &mutateRowsArgs{
		TableName: TableSessions,
		RowBatches: []*BatchMutation{
			{Row: "a", Mutations: []*Mutation{{Column: ColSessionID, Value: []byte("s1")}}},
			{Row: "b", Mutations: []*Mutation{{Column: ColSessionID, Value: []byte("s2")}}},
		},
	}

	in := &mutateRowsArgs{}
	roundTrip(t, out, in)

	if in.TableName != TableSessions || len(in.RowBatches) != 2 {
		t.Fatalf("args = %+v", in)
	}
	if in.RowBatches[1].Row != "b" {
		t.Fatalf("second batch row %q", in.RowBatches[1].Row)
	}
}

func TestScannerOpenArgs_RoundTrip(t *testing.T) {
	out := &scannerOpenArgs{
		Method:    "scannerOpenWithPrefix",
		TableName: TableSessions,
		StartRow:  "user_000042_",
		Columns:   []string{ColDeviceType, ColConversionStatus},
	}

	in := &scannerOpenArgs{}
	roundTrip(t, out, in)

	if in.StartRow != "user_000042_" || len(in.Columns) != 2 {
		t.Fatalf("args = %+v", in)
	}
}

func TestResultWithIOError(t *testing.T) {
	out := &scannerGetListResult{IO: &IOError{Message: "region unavailable"}}
	in := &scannerGetListResult{}
	roundTrip(t, out, in)

	if in.IO == nil || in.IO.Message != "region unavailable" {
		t.Fatalf("io = %+v", in.IO)
	}
	if in.IA != nil || in.Success != nil {
		t.Fatalf("unexpected fields set: %+v", in)
	}
}

func TestGetRowResultWithIOError(t *testing.T) {
	out := &getRowResult{IO: &IOError{Message: "table offline"}}
	in := &getRowResult{}
	roundTrip(t, out, in)

	if in.IO == nil || in.IO.Message != "table offline" {
		t.Fatalf("io = %+v", in.IO)
	}
	if in.Success != nil {
		t.Fatalf("unexpected success rows: %+v", in.Success)
	}
}

func TestResultWithSuccessRows(t *testing.T) {
	out := &scannerGetListResult{
		Success: []*TRowResult{
			{Row: "r1", Columns: map[string]*TCell{ColDeviceType: {Value: []byte("desktop")}}},
		},
	}
	in := &scannerGetListResult{}
	roundTrip(t, out, in)

	if len(in.Success) != 1 || in.Success[0].Row != "r1" {
		t.Fatalf("success = %+v", in.Success)
	}
}

func TestCreateTableArgs_RoundTrip(t *testing.T) {
	out := &createTableArgs{
		TableName: TableSessions,
		ColumnFamilies: []*ColumnDescriptor{
			{Name: "session_info:"}, {Name: "device:"}, {Name: "geo:"}, {Name: "activity:"},
		},
	}

	in := &createTableArgs{}
	roundTrip(t, out, in)

	if in.TableName != TableSessions || len(in.ColumnFamilies) != 4 {
		t.Fatalf("args = %+v", in)
	}
	if in.ColumnFamilies[3].Name != "activity:" {
		t.Fatalf("last family %q", in.ColumnFamilies[3].Name)
	}
}

func TestCreateTableResult_AlreadyExists(t *testing.T) {
	out := &createTableResult{Exist: &AlreadyExists{Message: "sessions"}}
	in := &createTableResult{}
	roundTrip(t, out, in)

	if in.Exist == nil || in.Exist.Message != "sessions" {
		t.Fatalf("exist = %+v", in.Exist)
	}
	if in.IO != nil || in.IA != nil {
		t.Fatalf("unexpected fields set: %+v", in)
	}
}

func TestGetTableNamesResult_RoundTrip(t *testing.T) {
	out := &getTableNamesResult{Success: []string{"sessions", "events"}}
	in := &getTableNamesResult{}
	roundTrip(t, out, in)

	if len(in.Success) != 2 || in.Success[0] != "sessions" {
		t.Fatalf("success = %v", in.Success)
	}

	ioOut := &getTableNamesResult{IO: &IOError{Message: "master down"}}
	ioIn := &getTableNamesResult{}
	roundTrip(t, ioOut, ioIn)
	if ioIn.IO == nil || ioIn.Success != nil {
		t.Fatalf("io result = %+v", ioIn)
	}
}

func TestScannerOpenResult_RoundTrip(t *testing.T) {
	id := int32(7)
	out := &scannerOpenResult{Success: &id}
	in := &scannerOpenResult{}
	roundTrip(t, out, in)

	if in.Success == nil || *in.Success != 7 {
		t.Fatalf("scanner id = %v", in.Success)
	}
}
