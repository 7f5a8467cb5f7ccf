package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/parquet-go/parquet-go"
)

const parquetContentType = "application/vnd.apache.parquet"

// Encoder writes typed rows as one in-memory Parquet file.
type Encoder[R any] struct {
	// Compression: "snappy" (default), "gzip", "zstd" or "none".
	Compression string
}

func (e Encoder[R]) Encode(ctx context.Context, rows []R) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts []parquet.WriterOption
	switch e.Compression {
	case "", "snappy":
		opts = append(opts, parquet.Compression(&parquet.Snappy))
	case "gzip":
		opts = append(opts, parquet.Compression(&parquet.Gzip))
	case "zstd":
		opts = append(opts, parquet.Compression(&parquet.Zstd))
	case "none":
	default:
		return nil, fmt.Errorf("unsupported parquet compression %q", e.Compression)
	}

	buf := &bytes.Buffer{}
	w := parquet.NewGenericWriter[R](buf, opts...)
	if _, err := w.Write(rows); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
