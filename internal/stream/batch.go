package stream

// BatchSize is the number of kept frames sent together.
const BatchSize = 30

// A Batcher accumulates kept frames until a full batch is available.
type Batcher struct {
	frames []int
	size   int
}

func NewBatcher(size int) *Batcher {
	if size <= 0 {
		panic("stream.Batcher: size must be positive")
	}
	return &Batcher{frames: make([]int, 0, size), size: size}
}

// Add appends a frame and reports whether the batch is now full.
func (b *Batcher) Add(frame int) bool {
	b.frames = append(b.frames, frame)
	return len(b.frames) >= b.size
}

func (b *Batcher) Len() int {
	return len(b.frames)
}

// Take returns the accumulated frames and starts a new batch.
func (b *Batcher) Take() []int {
	frames := b.frames
	b.frames = make([]int, 0, b.size)
	return frames
}
