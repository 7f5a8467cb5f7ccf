package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/commercelab/shopetl/ingest"
)

// Files chains JSON array files matching a glob pattern in sorted name order,
// e.g. sessions_*.json. Positions in source errors restart per file; the file
// name in the error identifies which one failed.
type Files[T any] struct {
	paths []string
	idx   int
	cur   *JSONArray[T]
}

// Glob lists files matching pattern and returns a source over all of them.
func Glob[T any](pattern string) (*Files[T], error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files match %s", pattern)
	}
	sort.Strings(paths)
	return &Files[T]{paths: paths}, nil
}

// Dir returns a source over every .json file directly inside dir.
func Dir[T any](dir string) (*Files[T], error) {
	if info, err := os.Stat(dir); err != nil {
		return nil, err
	} else if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	return Glob[T](filepath.Join(dir, "*.json"))
}

// Paths returns the file names this source will read, in order.
func (s *Files[T]) Paths() []string { return s.paths }

func (s *Files[T]) Next(ctx context.Context) (T, error) {
	var zero T
	for {
		if s.cur == nil {
			if s.idx >= len(s.paths) {
				return zero, io.EOF
			}
			cur, err := OpenJSONArray[T](s.paths[s.idx])
			if err != nil {
				return zero, &ingest.SourceError{Pos: 1, Err: err}
			}
			s.cur = cur
			s.idx++
		}

		rec, err := s.cur.Next(ctx)
		if err == io.EOF {
			s.cur.Close()
			s.cur = nil
			continue
		}
		return rec, err
	}
}

func (s *Files[T]) Close() error {
	if s.cur == nil {
		return nil
	}
	err := s.cur.Close()
	s.cur = nil
	return err
}
