package pipeline

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// errLineTooLong reports a data line over maxLineBytes. The reader discards
// the oversized remainder, so the next call resumes at the following line
// and the row can be rejected instead of failing the run.
var errLineTooLong = errors.New("pipeline: line exceeds size limit")

// lineReader yields one logical row per call, without its terminator.
type lineReader struct {
	r *bufio.Reader
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, 64<<10)}
}

// next returns the next line, io.EOF when the input is exhausted, or
// errLineTooLong for a line over maxLineBytes.
func (lr *lineReader) next() (string, error) {
	var buf []byte
	tooLong := false
	for {
		chunk, err := lr.r.ReadSlice('\n')
		if !tooLong {
			if len(buf)+len(chunk) > maxLineBytes {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		switch {
		case err == nil:
			if tooLong {
				return "", errLineTooLong
			}
			return trimLineEnding(string(buf)), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if tooLong {
				return "", errLineTooLong
			}
			if len(buf) == 0 {
				return "", io.EOF
			}
			return trimLineEnding(string(buf)), nil
		default:
			return "", err
		}
	}
}

func trimLineEnding(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}
