package hbase

import (
	"context"

	"github.com/apache/thrift/lib/go/thrift"
)

// Argument and result structs for the Thrift1 service calls. Exceptions come
// back as optional fields of the result struct; callers check them after a
// successful transport round-trip.

type mutateRowsArgs struct {
	TableName  string
	RowBatches []*BatchMutation
}

func (a *mutateRowsArgs) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "mutateRows_args"); err != nil {
		return err
	}
	if err := writeStringField(ctx, p, "tableName", 1, a.TableName); err != nil {
		return err
	}
	if err := p.WriteFieldBegin(ctx, "rowBatches", thrift.LIST, 2); err != nil {
		return err
	}
	if err := p.WriteListBegin(ctx, thrift.STRUCT, len(a.RowBatches)); err != nil {
		return err
	}
	for _, b := range a.RowBatches {
		if err := b.Write(ctx, p); err != nil {
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

func (a *mutateRowsArgs) Read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		switch {
		case id == 1 && typ == thrift.STRING:
			v, err := p.ReadString(ctx)
			a.TableName = v
			return true, err
		case id == 2 && typ == thrift.LIST:
			_, size, err := p.ReadListBegin(ctx)
			if err != nil {
				return true, err
			}
			a.RowBatches = make([]*BatchMutation, 0, size)
			for i := 0; i < size; i++ {
				b := &BatchMutation{}
				if err := b.Read(ctx, p); err != nil {
					return true, err
				}
				a.RowBatches = append(a.RowBatches, b)
			}
			return true, p.ReadListEnd(ctx)
		}
		return false, nil
	})
}

type mutateRowsResult struct {
	IO *IOError
	IA *IllegalArgument
}

func (r *mutateRowsResult) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "mutateRows_result"); err != nil {
		return err
	}
	if err := writeExceptionFields(ctx, p, r.IO, r.IA); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (r *mutateRowsResult) Read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		return readExceptionField(ctx, p, id, typ, &r.IO, &r.IA)
	})
}

type getTableNamesArgs struct{}

func (a *getTableNamesArgs) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "getTableNames_args"); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (a *getTableNamesArgs) Read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		return false, nil
	})
}

type getTableNamesResult struct {
	Success []string
	IO      *IOError
}

func (r *getTableNamesResult) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "getTableNames_result"); err != nil {
		return err
	}
	if r.Success != nil {
		if err := writeStringListField(ctx, p, "success", 0, r.Success); err != nil {
			return err
		}
	}
	if err := writeExceptionFields(ctx, p, r.IO, nil); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (r *getTableNamesResult) Read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		if id == 0 && typ == thrift.LIST {
			_, size, err := p.ReadListBegin(ctx)
			if err != nil {
				return true, err
			}
			r.Success = make([]string, 0, size)
			for i := 0; i < size; i++ {
				v, err := p.ReadString(ctx)
				if err != nil {
					return true, err
				}
				r.Success = append(r.Success, v)
			}
			return true, p.ReadListEnd(ctx)
		}
		var ia *IllegalArgument
		return readExceptionField(ctx, p, id, typ, &r.IO, &ia)
	})
}

type createTableArgs struct {
	TableName      string
	ColumnFamilies []*ColumnDescriptor
}

func (a *createTableArgs) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "createTable_args"); err != nil {
		return err
	}
	if err := writeStringField(ctx, p, "tableName", 1, a.TableName); err != nil {
		return err
	}
	if err := p.WriteFieldBegin(ctx, "columnFamilies", thrift.LIST, 2); err != nil {
		return err
	}
	if err := p.WriteListBegin(ctx, thrift.STRUCT, len(a.ColumnFamilies)); err != nil {
		return err
	}
	for _, d := range a.ColumnFamilies {
		if err := d.Write(ctx, p); err != nil {
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

func (a *createTableArgs) Read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		switch {
		case id == 1 && typ == thrift.STRING:
			v, err := p.ReadString(ctx)
			a.TableName = v
			return true, err
		case id == 2 && typ == thrift.LIST:
			_, size, err := p.ReadListBegin(ctx)
			if err != nil {
				return true, err
			}
			a.ColumnFamilies = make([]*ColumnDescriptor, 0, size)
			for i := 0; i < size; i++ {
				d := &ColumnDescriptor{}
				if err := d.Read(ctx, p); err != nil {
					return true, err
				}
				a.ColumnFamilies = append(a.ColumnFamilies, d)
			}
			return true, p.ReadListEnd(ctx)
		}
		return false, nil
	})
}

type createTableResult struct {
	IO    *IOError
	IA    *IllegalArgument
	Exist *AlreadyExists
}

func (r *createTableResult) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "createTable_result"); err != nil {
		return err
	}
	if err := writeExceptionFields(ctx, p, r.IO, r.IA); err != nil {
		return err
	}
	if r.Exist != nil {
		if err := p.WriteFieldBegin(ctx, "exist", thrift.STRUCT, 3); err != nil {
			return err
		}
		if err := r.Exist.Write(ctx, p); err != nil {
			return err
		}
		if err := p.WriteFieldEnd(ctx); err != nil {
			return err
		}
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (r *createTableResult) Read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		if id == 3 && typ == thrift.STRUCT {
			e := &AlreadyExists{}
			if err := e.Read(ctx, p); err != nil {
				return true, err
			}
			r.Exist = e
			return true, nil
		}
		return readExceptionField(ctx, p, id, typ, &r.IO, &r.IA)
	})
}

type getRowArgs struct {
	TableName string
	Row       string
}

func (a *getRowArgs) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "getRow_args"); err != nil {
		return err
	}
	if err := writeStringField(ctx, p, "tableName", 1, a.TableName); err != nil {
		return err
	}
	if err := writeStringField(ctx, p, "row", 2, a.Row); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (a *getRowArgs) Read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		switch {
		case id == 1 && typ == thrift.STRING:
			v, err := p.ReadString(ctx)
			a.TableName = v
			return true, err
		case id == 2 && typ == thrift.STRING:
			v, err := p.ReadString(ctx)
			a.Row = v
			return true, err
		}
		return false, nil
	})
}

type getRowResult struct {
	Success []*TRowResult
	IO      *IOError
}

func (r *getRowResult) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "getRow_result"); err != nil {
		return err
	}
	if r.Success != nil {
		if err := writeRowListField(ctx, p, 0, r.Success); err != nil {
			return err
		}
	}
	if err := writeExceptionFields(ctx, p, r.IO, nil); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (r *getRowResult) Read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		if id == 0 && typ == thrift.LIST {
			rows, err := readRowList(ctx, p)
			r.Success = rows
			return true, err
		}
		var ia *IllegalArgument
		return readExceptionField(ctx, p, id, typ, &r.IO, &ia)
	})
}

type scannerOpenArgs struct {
	Method    string // method name that Write describes
	TableName string
	StartRow  string // start row, or start-and-prefix for prefix scans
	Columns   []string
}

func (a *scannerOpenArgs) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, a.Method+"_args"); err != nil {
		return err
	}
	if err := writeStringField(ctx, p, "tableName", 1, a.TableName); err != nil {
		return err
	}
	if err := writeStringField(ctx, p, "startRow", 2, a.StartRow); err != nil {
		return err
	}
	if err := writeStringListField(ctx, p, "columns", 3, a.Columns); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (a *scannerOpenArgs) Read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		switch {
		case id == 1 && typ == thrift.STRING:
			v, err := p.ReadString(ctx)
			a.TableName = v
			return true, err
		case id == 2 && typ == thrift.STRING:
			v, err := p.ReadString(ctx)
			a.StartRow = v
			return true, err
		case id == 3 && typ == thrift.LIST:
			_, size, err := p.ReadListBegin(ctx)
			if err != nil {
				return true, err
			}
			a.Columns = make([]string, 0, size)
			for i := 0; i < size; i++ {
				v, err := p.ReadString(ctx)
				if err != nil {
					return true, err
				}
				a.Columns = append(a.Columns, v)
			}
			return true, p.ReadListEnd(ctx)
		}
		return false, nil
	})
}

type scannerOpenResult struct {
	Success *int32
	IO      *IOError
}

func (r *scannerOpenResult) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "scannerOpen_result"); err != nil {
		return err
	}
	if r.Success != nil {
		if err := writeI32Field(ctx, p, "success", 0, *r.Success); err != nil {
			return err
		}
	}
	if err := writeExceptionFields(ctx, p, r.IO, nil); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (r *scannerOpenResult) Read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		if id == 0 && typ == thrift.I32 {
			v, err := p.ReadI32(ctx)
			r.Success = &v
			return true, err
		}
		var ia *IllegalArgument
		return readExceptionField(ctx, p, id, typ, &r.IO, &ia)
	})
}

type scannerGetListArgs struct {
	ID     int32
	NbRows int32
}

func (a *scannerGetListArgs) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "scannerGetList_args"); err != nil {
		return err
	}
	if err := writeI32Field(ctx, p, "id", 1, a.ID); err != nil {
		return err
	}
	if err := writeI32Field(ctx, p, "nbRows", 2, a.NbRows); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (a *scannerGetListArgs) Read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		switch {
		case id == 1 && typ == thrift.I32:
			v, err := p.ReadI32(ctx)
			a.ID = v
			return true, err
		case id == 2 && typ == thrift.I32:
			v, err := p.ReadI32(ctx)
			a.NbRows = v
			return true, err
		}
		return false, nil
	})
}

type scannerGetListResult struct {
	Success []*TRowResult
	IO      *IOError
	IA      *IllegalArgument
}

func (r *scannerGetListResult) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "scannerGetList_result"); err != nil {
		return err
	}
	if r.Success != nil {
		if err := writeRowListField(ctx, p, 0, r.Success); err != nil {
			return err
		}
	}
	if err := writeExceptionFields(ctx, p, r.IO, r.IA); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (r *scannerGetListResult) Read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		if id == 0 && typ == thrift.LIST {
			rows, err := readRowList(ctx, p)
			r.Success = rows
			return true, err
		}
		return readExceptionField(ctx, p, id, typ, &r.IO, &r.IA)
	})
}

type scannerCloseArgs struct {
	ID int32
}

func (a *scannerCloseArgs) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "scannerClose_args"); err != nil {
		return err
	}
	if err := writeI32Field(ctx, p, "id", 1, a.ID); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (a *scannerCloseArgs) Read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		if id == 1 && typ == thrift.I32 {
			v, err := p.ReadI32(ctx)
			a.ID = v
			return true, err
		}
		return false, nil
	})
}

type scannerCloseResult struct {
	IO *IOError
	IA *IllegalArgument
}

func (r *scannerCloseResult) Write(ctx context.Context, p thrift.TProtocol) error {
	if err := p.WriteStructBegin(ctx, "scannerClose_result"); err != nil {
		return err
	}
	if err := writeExceptionFields(ctx, p, r.IO, r.IA); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return err
	}
	return p.WriteStructEnd(ctx)
}

func (r *scannerCloseResult) Read(ctx context.Context, p thrift.TProtocol) error {
	return readStruct(ctx, p, func(id int16, typ thrift.TType) (bool, error) {
		return readExceptionField(ctx, p, id, typ, &r.IO, &r.IA)
	})
}

// Exception fields use ids 1 (IOError) and 2 (IllegalArgument) in every
// result struct of the methods used here.

func writeExceptionFields(ctx context.Context, p thrift.TProtocol, io *IOError, ia *IllegalArgument) error {
	if io != nil {
		if err := p.WriteFieldBegin(ctx, "io", thrift.STRUCT, 1); err != nil {
			return err
		}
		if err := io.Write(ctx, p); err != nil {
			return err
		}
		if err := p.WriteFieldEnd(ctx); err != nil {
			return err
		}
	}
	if ia != nil {
		if err := p.WriteFieldBegin(ctx, "ia", thrift.STRUCT, 2); err != nil {
			return err
		}
		if err := ia.Write(ctx, p); err != nil {
			return err
		}
		if err := p.WriteFieldEnd(ctx); err != nil {
			return err
		}
	}
	return nil
}

func readExceptionField(ctx context.Context, p thrift.TProtocol, id int16, typ thrift.TType, io **IOError, ia **IllegalArgument) (bool, error) {
	switch {
	case id == 1 && typ == thrift.STRUCT:
		e := &IOError{}
		if err := e.Read(ctx, p); err != nil {
			return true, err
		}
		*io = e
		return true, nil
	case id == 2 && typ == thrift.STRUCT && ia != nil:
		e := &IllegalArgument{}
		if err := e.Read(ctx, p); err != nil {
			return true, err
		}
		*ia = e
		return true, nil
	}
	return false, nil
}
