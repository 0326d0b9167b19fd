package harness

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const DefaultDelimiter = "="

// Record is one serialized instance taken from a batch stream.
type Record struct {
	Index int
	Text  string
}

// RecordScanner splits a stream of concatenated instances on lines made only of repeated delimiters. Records that
// hold nothing but whitespace are dropped without consuming an index.
type RecordScanner struct {
	scanner   *bufio.Scanner
	delimiter *regexp.Regexp
	record    Record
	next      int
	done      bool
}

func NewRecordScanner(r io.Reader, delimiter string) (*RecordScanner, error) {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	pattern, err := regexp.Compile(fmt.Sprintf("^(?:%v)+$", regexp.QuoteMeta(delimiter)))
	if err != nil {
		return nil, fmt.Errorf("%w: delimiter %q: %v", ErrInvalidConfig, delimiter, err)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &RecordScanner{scanner: scanner, delimiter: pattern}, nil
}

// Scan advances to the next non-blank record. The last record does not need a closing delimiter.
func (s *RecordScanner) Scan() bool {
	for !s.done {
		var text strings.Builder
		closed := false
		for s.scanner.Scan() {
			line := strings.TrimRight(s.scanner.Text(), "\r")
			if s.delimiter.MatchString(line) {
				closed = true
				break
			}
			text.WriteString(line)
			text.WriteByte('\n')
		}
		s.done = !closed

		if strings.TrimSpace(text.String()) == "" {
			continue
		}
		s.record = Record{Index: s.next, Text: text.String()}
		s.next++
		return true
	}
	return false
}

func (s *RecordScanner) Record() Record {
	return s.record
}

func (s *RecordScanner) Err() error {
	return s.scanner.Err()
}
