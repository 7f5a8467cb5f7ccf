// Package hbase talks to a wide-column store through its Thrift gateway
// (the HBase Thrift1 API, the same surface happybase clients use). The wire
// structs below are hand-maintained bindings for the small subset of the IDL
// this toolkit needs: batched mutations, row gets and scanners.
package hbase

import (
	"context"

	"github.com/apache/thrift/lib/go/thrift"
)

// Mutation sets (or deletes) one column of a row.
type Mutation struct {
	IsDelete bool
	Column   string // family:qualifier
	Value    []byte
}

func (m *Mutation) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "Mutation"); err != nil {
		return err
	}
	if err := writeBoolField(ctx, p, "isDelete", 1, m.IsDelete); err != nil {
		return err
	}
	if err := writeStringField(ctx, p, "column", 2, m.Column); err != nil {
		return err
	}
	if err := writeBinaryField(ctx, p, "value", 3, m.Value); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (m *Mutation) Read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		switch {
		case id == 1 && typ == thrift.BOOL:
			v, err := p.ReadBool(ctx)
			m.IsDelete = v
			return true, err
		case id == 2 && typ == thrift.STRING:
			v, err := p.ReadString(ctx)
			m.Column = v
			return true, err
		case id == 3 && typ == thrift.STRING:
			v, err := p.ReadBinary(ctx)
			m.Value = v
			return true, err
		}
		return false, nil
	})
}

// BatchMutation groups the mutations applied to one row.
type BatchMutation struct {
	Row       string
	Mutations []*Mutation
}

func (b *BatchMutation) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "BatchMutation"); err != nil {
		return err
	}
	if err := writeStringField(ctx, p, "row", 1, b.Row); err != nil {
		return err
	}
	if err := p.WriteFieldBegin(ctx, "mutations", thrift.LIST, 2); err != nil {
		return err
	}
	if err := p.WriteListBegin(ctx, thrift.STRUCT, len(b.Mutations)); err != nil {
		return err
	}
	for _, m := range b.Mutations {
		if err := m.Write(ctx, p); err != nil {
			return err
		}
	}
	if err := p.WriteListEnd(ctx); err != nil {
		return err
	}
	if err := p.WriteFieldEnd(ctx); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (b *BatchMutation) Read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		switch {
		case id == 1 && typ == thrift.STRING:
			v, err := p.ReadString(ctx)
			b.Row = v
			return true, err
		case id == 2 && typ == thrift.LIST:
			_, size, err := p.ReadListBegin(ctx)
			if err != nil {
				return true, err
			}
			b.Mutations = make([]*Mutation, 0, size)
			for i := 0; i < size; i++ {
				m := &Mutation{}
				if err := m.Read(ctx, p); err != nil {
					return true, err
				}
				b.Mutations = append(b.Mutations, m)
			}
			return true, p.ReadListEnd(ctx)
		}
		return false, nil
	})
}

// TCell is one stored value with its write timestamp.
type TCell struct {
	Value     []byte
	Timestamp int64
}

func (c *TCell) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "TCell"); err != nil {
		return err
	}
	if err := writeBinaryField(ctx, p, "value", 1, c.Value); err != nil {
		return err
	}
	if err := p.WriteFieldBegin(ctx, "timestamp", thrift.I64, 2); err != nil {
		return err
	}
	if err := p.WriteI64(ctx, c.Timestamp); err != nil {
		return err
	}
	if err := p.WriteFieldEnd(ctx); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (c *TCell) Read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		switch {
		case id == 1 && typ == thrift.STRING:
			v, err := p.ReadBinary(ctx)
			c.Value = v
			return true, err
		case id == 2 && typ == thrift.I64:
			v, err := p.ReadI64(ctx)
			c.Timestamp = v
			return true, err
		}
		return false, nil
	})
}

// TRowResult is one scanned or fetched row: its key plus a map from
// family:qualifier to cell.
type TRowResult struct {
	Row     string
	Columns map[string]*TCell
}

func (r *TRowResult) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "TRowResult"); err != nil {
		return err
	}
	if err := writeStringField(ctx, p, "row", 1, r.Row); err != nil {
		return err
	}
	if err := p.WriteFieldBegin(ctx, "columns", thrift.MAP, 2); err != nil {
		return err
	}
	if err := p.WriteMapBegin(ctx, thrift.STRING, thrift.STRUCT, len(r.Columns)); err != nil {
		return err
	}
	for col, cell := range r.Columns {
		if err := p.WriteString(ctx, col); err != nil {
			return err
		}
		if err := cell.Write(ctx, p); err != nil {
			return err
		}
	}
	if err := p.WriteMapEnd(ctx); err != nil {
		return err
	}
	if err := p.WriteFieldEnd(ctx); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (r *TRowResult) Read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		switch {
		case id == 1 && typ == thrift.STRING:
			v, err := p.ReadString(ctx)
			r.Row = v
			return true, err
		case id == 2 && typ == thrift.MAP:
			_, _, size, err := p.ReadMapBegin(ctx)
			if err != nil {
				return true, err
			}
			r.Columns = make(map[string]*TCell, size)
			for i := 0; i < size; i++ {
				col, err := p.ReadString(ctx)
				if err != nil {
					return true, err
				}
				cell := &TCell{}
				if err := cell.Read(ctx, p); err != nil {
					return true, err
				}
				r.Columns[col] = cell
			}
			return true, p.ReadMapEnd(ctx)
		}
		return false, nil
	})
}

// ColumnDescriptor names one column family at table creation. The IDL's
// tuning fields (versions, compression, bloom filters) stay at their
// server-side defaults and are skipped on read.
type ColumnDescriptor struct {
	Name string
}

func (d *ColumnDescriptor) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "ColumnDescriptor"); err != nil {
		return err
	}
	if err := writeStringField(ctx, p, "name", 1, d.Name); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (d *ColumnDescriptor) Read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		if id == 1 && typ == thrift.STRING {
			v, err := p.ReadString(ctx)
			d.Name = v
			return true, err
		}
		return false, nil
	})
}

// IOError is the gateway-side storage exception.
type IOError struct {
	Message string
}

func (e *IOError) Error() string { return "hbase io error: " + e.Message }

func (e *IOError) Write(ctx context.Context, p thrift.TProtocol) error {
	return writeMessageStruct(ctx, p, "IOError", e.Message)
}

func (e *IOError) Read(ctx context.Context, p thrift.TProtocol) error {
	msg, err := readMessageStruct(ctx, p)
	e.Message = msg
	return err
}

// IllegalArgument is the gateway-side request validation exception.
type IllegalArgument struct {
	Message string
}

func (e *IllegalArgument) Error() string { return "hbase illegal argument: " + e.Message }

func (e *IllegalArgument) Write(ctx context.Context, p thrift.TProtocol) error {
	return writeMessageStruct(ctx, p, "IllegalArgument", e.Message)
}

func (e *IllegalArgument) Read(ctx context.Context, p thrift.TProtocol) error {
	msg, err := readMessageStruct(ctx, p)
	e.Message = msg
	return err
}

// AlreadyExists is raised by createTable when the table is present.
type AlreadyExists struct {
	Message string
}

func (e *AlreadyExists) Error() string { return "hbase table exists: " + e.Message }

func (e *AlreadyExists) Write(ctx context.Context, p thrift.TProtocol) error {
	return writeMessageStruct(ctx, p, "AlreadyExists", e.Message)
}

func (e *AlreadyExists) Read(ctx context.Context, p thrift.TProtocol) error {
	msg, err := readMessageStruct(ctx, p)
	e.Message = msg
	return err
}

// readStruct drives the standard field loop. handle returns true if it
// consumed the field; unknown fields are skipped.
func readStruct(ctx context.Context, p thrift.TProtocol, handle func(id int16, typ thrift.TType) (bool, error)) error {
	if _, err := p.ReadStructBegin(ctx); err != nil {
		return err
	}
	for {
		_, typ, id, err := p.ReadFieldBegin(ctx)
		if err != nil {
			return err
		}
		if typ == thrift.STOP {
			break
		}
		consumed, err := handle(id, typ)
		if err != nil {
			return err
		}
		if !consumed {
			if err := p.Skip(ctx, typ); err != nil {
				return err
			}
		}
		if err := p.ReadFieldEnd(ctx); err != nil {
			return err
		}
	}
	return p.ReadStructEnd(ctx)
}

func writeBoolField(ctx context.Context, p thrift.TProtocol, name string, id int16, v bool) error {
	if err := p.WriteFieldBegin(ctx, name, thrift.BOOL, id); err != nil {
		return err
	}
	if err := p.WriteBool(ctx, v); err != nil {
		return err
	}
	return p.WriteFieldEnd(ctx)
}

func writeStringField(ctx context.Context, p thrift.TProtocol, name string, id int16, v string) error {
	if err := p.WriteFieldBegin(ctx, name, thrift.STRING, id); err != nil {
		return err
	}
	if err := p.WriteString(ctx, v); err != nil {
		return err
	}
	return p.WriteFieldEnd(ctx)
}

func writeBinaryField(ctx context.Context, p thrift.TProtocol, name string, id int16, v []byte) error {
	if err := p.WriteFieldBegin(ctx, name, thrift.STRING, id); err != nil {
		return err
	}
	if err := p.WriteBinary(ctx, v); err != nil {
		return err
	}
	return p.WriteFieldEnd(ctx)
}

func writeI32Field(ctx context.Context, p thrift.TProtocol, name string, id int16, v int32) error {
	if err := p.WriteFieldBegin(ctx, name, thrift.I32, id); err != nil {
		return err
	}
	if err := p.WriteI32(ctx, v); err != nil {
		return err
	}
	return p.WriteFieldEnd(ctx)
}

func writeStringListField(ctx context.Context, p thrift.TProtocol, name string, id int16, vs []string) error {
	if err := p.WriteFieldBegin(ctx, name, thrift.LIST, id); err != nil {
		return err
	}
	if err := p.WriteListBegin(ctx, thrift.STRING, len(vs)); err != nil {
		return err
	}
	for _, v := range vs {
		if err := p.WriteString(ctx, v); err != nil {
			return err
		}
	}
	if err := p.WriteListEnd(ctx); err != nil {
		return err
	}
	return p.WriteFieldEnd(ctx)
}

func writeMessageStruct(ctx context.Context, p thrift.TProtocol, name, msg string) error {
	if err := p.WriteStructBegin(ctx, name); err != nil {
		return err
	}
	if err := writeStringField(ctx, p, "message", 1, msg); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func readMessageStruct(ctx context.Context, p thrift.TProtocol) (string, error) {
	var msg string
	err := readStruct(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		if id == 1 && typ == thrift.STRING {
			v, err := p.ReadString(ctx)
			msg = v
			return true, err
		}
		return false, nil
	})
	return msg, err
}

func readRowList(ctx context.Context, p thrift.TProtocol) ([]*TRowResult, error) {
	_, size, err := p.ReadListBegin(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]*TRowResult, 0, size)
	for i := 0; i < size; i++ {
		r := &TRowResult{}
		if err := r.Read(ctx, p); err != nil {
			return nil, err
		}
		rows = append(rows, r)
	}
	if err := p.ReadListEnd(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func writeRowListField(ctx context.Context, p thrift.TProtocol, id int16, rows []*TRowResult) error {
	if err := p.WriteFieldBegin(ctx, "success", thrift.LIST, id); err != nil {
		return err
	}
	if err := p.WriteListBegin(ctx, thrift.STRUCT, len(rows)); err != nil {
		return err
	}
	for _, r := range rows {
		if err := r.Write(ctx, p); err != nil {
			return err
		}
	}
	if err := p.WriteListEnd(ctx); err != nil {
		return err
	}
	return p.WriteFieldEnd(ctx)
}
