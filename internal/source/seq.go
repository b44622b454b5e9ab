package source

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

func init() {
	RegisterType("seq", OpenSequence)
}

// Sequence generates the integers First..Last inclusive.
type Sequence struct {
	First, Last int
	next        int
}

func NewSequence(first, last int) *Sequence {
	return &Sequence{First: first, Last: last, next: first}
}

// OpenSequence parses "first-last", e.g. "seq:1-300".
func OpenSequence(path string) (Source, error) {
	var first, last int
	if n, err := fmt.Sscanf(path, "%d-%d", &first, &last); n != 2 || err != nil {
		return nil, errors.Wrapf(ErrSourceUnavailable, "invalid sequence %q", path)
	}
	if last < first {
		return nil, errors.Wrapf(ErrSourceUnavailable, "empty sequence %q", path)
	}
	return NewSequence(first, last), nil
}

func (s *Sequence) Next() (int, error) {
	if s.next > s.Last {
		return 0, io.EOF
	}
	n := s.next
	s.next++
	return n, nil
}

func (s *Sequence) Close() error {
	return nil
}
