// Copyright 2019 Lanikai Labs. All rights reserved.

package protocol

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	errors "golang.org/x/xerrors"
)

// MaxLineLength bounds a single batch line accepted by ReadBatch.
const MaxLineLength = 64 * 1024

// AppendBatch appends the wire encoding of frames to buf.
func AppendBatch(buf []byte, frames []int) []byte {
	for i, f := range frames {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = strconv.AppendInt(buf, int64(f), 10)
	}
	return append(buf, '\n')
}

// WriteBatch writes one encoded batch to w in a single Write call.
func WriteBatch(w io.Writer, frames []int) error {
	_, err := w.Write(AppendBatch(nil, frames))
	return err
}

// A BatchReader decodes batches from a byte stream.
type BatchReader struct {
	r *bufio.Reader
}

func NewBatchReader(r io.Reader) *BatchReader {
	return &BatchReader{bufio.NewReaderSize(r, 4096)}
}

// ReadBatch returns the next batch. It returns io.EOF when the stream ends
// cleanly between batches.
func (br *BatchReader) ReadBatch() ([]int, error) {
	var line []byte
	for {
		chunk, err := br.r.ReadSlice('\n')
		line = append(line, chunk...)
		if len(line) > MaxLineLength {
			return nil, errors.Errorf("batch line exceeds %d bytes", MaxLineLength)
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF && len(line) > 0 {
			return nil, io.ErrUnexpectedEOF
		}
		if err != nil {
			return nil, err
		}
		break
	}

	fields := strings.Fields(string(line))
	frames := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, errors.Errorf("invalid frame %q: %w", f, err)
		}
		frames = append(frames, n)
	}
	return frames, nil
}
