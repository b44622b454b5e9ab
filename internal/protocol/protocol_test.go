package protocol

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errors "golang.org/x/xerrors"
)

func TestParseCommand(t *testing.T) {
	for token, want := range map[string]Command{
		"pause":  CommandPause,
		"PAUSE":  CommandPause,
		"play":   CommandResume,
		"Resume": CommandResume,
		"stop":   CommandStop,
		"HD":     CommandQuality,
	} {
		c, err := ParseCommand(token)
		require.NoError(t, err, token)
		assert.Equal(t, want, c, token)
	}

	c, err := ParseCommand("rewind")
	assert.Equal(t, CommandUnknown, c)
	assert.True(t, errors.Is(err, ErrMalformedCommand))
}

func TestAppendBatch(t *testing.T) {
	assert.Equal(t, "1 2 30\n", string(AppendBatch(nil, []int{1, 2, 30})))
	assert.Equal(t, "-5\n", string(AppendBatch(nil, []int{-5})))
}

func TestReadBatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBatch(&buf, []int{1, 2, 3}))
	require.NoError(t, WriteBatch(&buf, []int{400}))

	br := NewBatchReader(&buf)

	frames, err := br.ReadBatch()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, frames)

	frames, err = br.ReadBatch()
	require.NoError(t, err)
	assert.Equal(t, []int{400}, frames)

	_, err = br.ReadBatch()
	assert.Equal(t, io.EOF, err)
}

func TestReadBatchLongLine(t *testing.T) {
	frames := make([]int, 2000)
	for i := range frames {
		frames[i] = 1000000 + i
	}
	br := NewBatchReader(bytes.NewReader(AppendBatch(nil, frames)))

	got, err := br.ReadBatch()
	require.NoError(t, err)
	assert.Equal(t, frames, got)
}

func TestReadBatchErrors(t *testing.T) {
	_, err := NewBatchReader(strings.NewReader("1 x 3\n")).ReadBatch()
	assert.Error(t, err)

	_, err = NewBatchReader(strings.NewReader("1 2")).ReadBatch()
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}
