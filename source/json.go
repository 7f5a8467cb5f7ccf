// Package source provides record sources for the batch and streaming
// ingestion paths: JSON array files on disk and an SQS queue.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/commercelab/shopetl/ingest"
)

// JSONArray streams records of type T from a top-level JSON array. It decodes
// one element at a time, so memory stays bounded regardless of file size.
type JSONArray[T any] struct {
	name string
	r    io.ReadCloser
	dec  *json.Decoder

	pos    int
	opened bool
	done   bool
}

// OpenJSONArray opens path and prepares to stream its top-level array.
func OpenJSONArray[T any](path string) (*JSONArray[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return NewJSONArray[T](path, f), nil
}

// NewJSONArray streams the top-level JSON array read from r. name is used in
// error positions only.
func NewJSONArray[T any](name string, r io.ReadCloser) *JSONArray[T] {
	return &JSONArray[T]{name: name, r: r, dec: json.NewDecoder(r)}
}

// Next implements ingest.Source. Malformed input is reported as
// *ingest.SourceError carrying the element position.
func (s *JSONArray[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if s.done {
		return zero, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	if !s.opened {
		tok, err := s.dec.Token()
		if err != nil {
			s.done = true
			return zero, &ingest.SourceError{Pos: 1, Err: fmt.Errorf("%s: reading array start: %w", s.name, err)}
		}
		if d, ok := tok.(json.Delim); !ok || d != '[' {
			s.done = true
			return zero, &ingest.SourceError{Pos: 1, Err: fmt.Errorf("%s: expected top-level array, got %v", s.name, tok)}
		}
		s.opened = true
	}

	if !s.dec.More() {
		if _, err := s.dec.Token(); err != nil { // consume ']'
			s.done = true
			return zero, &ingest.SourceError{Pos: s.pos + 1, Err: fmt.Errorf("%s: reading array end: %w", s.name, err)}
		}
		s.done = true
		return zero, io.EOF
	}

	s.pos++
	var rec T
	if err := s.dec.Decode(&rec); err != nil {
		s.done = true
		return zero, &ingest.SourceError{Pos: s.pos, Err: fmt.Errorf("%s: decoding element: %w", s.name, err)}
	}
	return rec, nil
}

// Close releases the underlying reader. Safe to call after EOF.
func (s *JSONArray[T]) Close() error {
	if s.r == nil {
		return nil
	}
	err := s.r.Close()
	s.r = nil
	return err
}

// Count drains a JSON array file and returns the number of elements. Used by
// loaders to report file sizes before ingesting.
func Count[T any](path string) (int, error) {
	src, err := OpenJSONArray[T](path)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	n := 0
	for {
		_, err := src.Next(context.Background())
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++
	}
}
