package writer

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Stream is a positioned byte sink the serializer writes through. Writes
// land at Pos and advance it; bytes past the position are overwritten.
type Stream interface {
	io.Writer
	Pos() int64
	SetPos(off int64) error
	Flush() error
	Truncate(size int64) error
}

// FileStream is a buffered Stream over an *os.File opened for writing.
type FileStream struct {
	f   *os.File
	w   *bufio.Writer
	pos int64
}

// NewFileStream wraps f. The position starts at the end of the file.
func NewFileStream(f *os.File) (*FileStream, error) {
	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("seek to end: %w", err)
	}
	return &FileStream{f: f, w: bufio.NewWriter(f), pos: end}, nil
}

func (s *FileStream) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	s.pos += int64(n)
	return n, err
}

// Pos returns the position of the next write
func (s *FileStream) Pos() int64 {
	return s.pos
}

// SetPos flushes pending bytes and moves the write position
func (s *FileStream) SetPos(off int64) error {
	if err := s.w.Flush(); err != nil {
		return err
	}
	if _, err := s.f.Seek(off, io.SeekStart); err != nil {
		return fmt.Errorf("seek to %d: %w", off, err)
	}
	s.pos = off
	return nil
}

// Flush writes buffered bytes to the file and syncs it
func (s *FileStream) Flush() error {
	if err := s.w.Flush(); err != nil {
		return err
	}
	return s.f.Sync()
}

// Truncate flushes and cuts the file to size
func (s *FileStream) Truncate(size int64) error {
	if err := s.w.Flush(); err != nil {
		return err
	}
	return s.f.Truncate(size)
}

// ReadAt reads flushed file contents
func (s *FileStream) ReadAt(p []byte, off int64) (int, error) {
	return s.f.ReadAt(p, off)
}

// BufferStream is an in-memory Stream. It also implements io.ReaderAt so
// a file written into it can be parsed back.
type BufferStream struct {
	buf []byte
	pos int64
}

// NewBufferStream returns a stream holding a copy of data, positioned at
// its end.
func NewBufferStream(data []byte) *BufferStream {
	return &BufferStream{buf: append([]byte(nil), data...), pos: int64(len(data))}
}

func (s *BufferStream) Write(p []byte) (int, error) {
	end := s.pos + int64(len(p))
	if end > int64(len(s.buf)) {
		grown := make([]byte, end)
		copy(grown, s.buf)
		s.buf = grown
	}
	copy(s.buf[s.pos:], p)
	s.pos = end
	return len(p), nil
}

// Pos returns the position of the next write
func (s *BufferStream) Pos() int64 {
	return s.pos
}

// SetPos moves the write position. Positions past the end pad with zeros
// on the next write.
func (s *BufferStream) SetPos(off int64) error {
	if off < 0 {
		return fmt.Errorf("negative position %d", off)
	}
	s.pos = off
	return nil
}

// Flush is a no-op
func (s *BufferStream) Flush() error {
	return nil
}

// Truncate cuts the buffer to size
func (s *BufferStream) Truncate(size int64) error {
	if size < 0 {
		return fmt.Errorf("negative size %d", size)
	}
	if size < int64(len(s.buf)) {
		s.buf = s.buf[:size]
	}
	return nil
}

// ReadAt implements io.ReaderAt over the current contents
func (s *BufferStream) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	if off >= int64(len(s.buf)) {
		return 0, io.EOF
	}
	n := copy(p, s.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the current length
func (s *BufferStream) Size() int64 {
	return int64(len(s.buf))
}

// Bytes returns a copy of the contents
func (s *BufferStream) Bytes() []byte {
	return append([]byte(nil), s.buf...)
}
