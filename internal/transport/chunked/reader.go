// Package chunked implements the HTTP/1.1 chunked transfer coding.
package chunked

import (
	"bufio"
	"errors"
	"io"
)

var (
	ErrInvalidChunkLength = errors.New("chunked: invalid byte in chunk length")
	ErrChunkLengthTooLong = errors.New("chunked: chunk length line too long")
	ErrMalformedChunk     = errors.New("chunked: chunk data not terminated by CRLF")
)

// NewReader decodes the chunked coding from r. The reader returns io.EOF
// after the zero-length chunk and its trailer section have been consumed, so
// the underlying stream is left positioned at the first byte after the body.
func NewReader(r io.Reader) io.Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &chunkedReader{Reader: br}
}

type chunkedReader struct {
	*bufio.Reader

	currentChunk io.Reader
	currentCount int64
	currentSize  int64
	sawEnd       bool
}

func (c *chunkedReader) readChunkHeader() (size uint64, err error) {
	cnt := 0
	isPref := true
	for isPref {
		var line []byte
		line, isPref, err = c.ReadLine()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		// chunk extensions are tolerated and discarded
		if i := indexByte(line, ';'); i >= 0 {
			line = line[:i]
		}
		for _, b := range line {
			cnt++
			switch {
			case '0' <= b && b <= '9':
				b = b - '0'
			case 'a' <= b && b <= 'f':
				b = b - 'a' + 10
			case 'A' <= b && b <= 'F':
				b = b - 'A' + 10
			default:
				return 0, ErrInvalidChunkLength
			}
			size <<= 4
			size |= uint64(b)
		}
		if cnt == 0 {
			return 0, ErrInvalidChunkLength
		}
		if cnt >= 16 {
			return 0, ErrChunkLengthTooLong
		}
	}
	return
}

// readTrailer consumes trailer field lines after the final chunk, up to and
// including the blank line that ends the message.
func (c *chunkedReader) readTrailer() error {
	for {
		line, isPref, err := c.ReadLine()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return err
		}
		for isPref {
			_, isPref, err = c.ReadLine()
			if err != nil {
				if err == io.EOF {
					err = io.ErrUnexpectedEOF
				}
				return err
			}
		}
		if len(line) == 0 {
			return nil
		}
	}
}

func (c *chunkedReader) Read(p []byte) (n int, err error) {
	if c.sawEnd {
		return 0, io.EOF
	}
	if c.currentChunk == nil {
		size, err := c.readChunkHeader()
		if err != nil {
			return 0, err
		}
		if size == 0 {
			if err := c.readTrailer(); err != nil {
				return 0, err
			}
			c.sawEnd = true
			return 0, io.EOF
		}
		c.currentChunk = io.LimitReader(c.Reader, int64(size))
		c.currentSize = int64(size)
		c.currentCount = 0
	}
	n, err = c.currentChunk.Read(p)
	c.currentCount += int64(n)
	if err == io.EOF {
		if c.currentCount != c.currentSize {
			return n, io.ErrUnexpectedEOF
		}
		err = nil
		cr, _ := c.Reader.ReadByte()
		lf, rerr := c.Reader.ReadByte()
		if rerr != nil {
			if rerr == io.EOF {
				rerr = io.ErrUnexpectedEOF
			}
			return n, rerr
		}
		if cr != '\r' || lf != '\n' {
			return n, ErrMalformedChunk
		}
		c.currentChunk = nil
	}
	return
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
