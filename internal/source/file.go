// Copyright 2019 Lanikai Labs. All rights reserved.

package source

import (
	"bufio"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

func init() {
	RegisterType("file", OpenFile)
}

// FileSource reads whitespace-separated decimal integers from a text file.
type FileSource struct {
	file    *os.File
	scanner *bufio.Scanner
	tokens  int
}

// OpenFile opens the dataset at path. Frames are read lazily.
func OpenFile(path string) (Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrSourceUnavailable, "%s: %v", path, err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Split(bufio.ScanWords)

	log.Debug("Opened dataset %s", path)
	return &FileSource{file: file, scanner: scanner}, nil
}

func (s *FileSource) Next() (int, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return 0, errors.Wrapf(err, "%s", s.file.Name())
		}
		return 0, io.EOF
	}
	s.tokens++

	n, err := strconv.Atoi(s.scanner.Text())
	if err != nil {
		return 0, errors.Errorf("%s: token %d: not an integer: %q", s.file.Name(), s.tokens, s.scanner.Text())
	}
	return n, nil
}

func (s *FileSource) Close() error {
	return s.file.Close()
}
