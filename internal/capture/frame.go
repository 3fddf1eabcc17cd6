package capture

import "time"

// Frame is one encoded JPEG snapshot of the render surface.
// Data is shared between all viewers of a tick and must not be modified.
type Frame struct {
	Seq        uint64
	Data       []byte
	CapturedAt time.Time
}

// Size returns the encoded length in bytes.
func (f Frame) Size() int { return len(f.Data) }
