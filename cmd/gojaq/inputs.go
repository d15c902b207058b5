package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sandrolain/gojaq/pkg/codec"
	"github.com/sandrolain/gojaq/pkg/evaluator"
	"github.com/sandrolain/gojaq/pkg/value"
)

// inputStream yields the values of every input file in turn, or of stdin
// when no files are given. The main loop and the input builtins share it.
type inputStream struct {
	mu     sync.Mutex
	files  []string
	stdin  io.Reader
	format codec.Format
	raw    bool

	dec    codec.Decoder
	closer io.Closer
	name   string
	opened bool
	done   bool
}

// inputError is a failure to open or decode an input. It ends the file
// being read.
type inputError struct {
	name string
	err  error
}

func (e *inputError) Error() string {
	return fmt.Sprintf("%s: %v", displayName(e.name), e.err)
}

func (e *inputError) Unwrap() error { return e.err }

func newInputStream(files []string, stdin io.Reader, format codec.Format, raw bool) *inputStream {
	return &inputStream{files: files, stdin: stdin, format: format, raw: raw}
}

// Next returns the next input value, evaluator.Done once all inputs are
// read.
func (s *inputStream) Next() (value.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for !s.done {
		if s.dec == nil {
			if err := s.open(); err != nil {
				return nil, err
			}
			continue
		}
		v, err := s.dec.Decode()
		if err == nil {
			return v, nil
		}
		s.closeCurrent()
		if !errors.Is(err, io.EOF) {
			return nil, &inputError{name: s.name, err: err}
		}
	}
	return nil, evaluator.Done
}

// open starts the next input. It sets done when there is none left.
func (s *inputStream) open() error {
	if !s.opened && len(s.files) == 0 {
		s.opened = true
		s.name = ""
		s.dec = s.decoder(s.stdin)
		return nil
	}
	s.opened = true
	if len(s.files) == 0 {
		s.done = true
		return nil
	}
	s.name, s.files = s.files[0], s.files[1:]
	f, err := os.Open(s.name)
	if err != nil {
		return &inputError{name: s.name, err: err}
	}
	s.closer = f
	s.dec = s.decoder(f)
	return nil
}

func (s *inputStream) decoder(r io.Reader) codec.Decoder {
	if s.raw {
		return &lineDecoder{r: bufio.NewReader(r)}
	}
	return codec.NewDecoder(s.format, r)
}

func (s *inputStream) closeCurrent() {
	if s.closer != nil {
		_ = s.closer.Close()
		s.closer = nil
	}
	s.dec = nil
}

// Filename is the name of the file being read, empty for stdin.
func (s *inputStream) Filename() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Slurp reads all remaining values into one array. In raw mode the whole
// text becomes one string.
func (s *inputStream) Slurp() (value.Value, []error) {
	if s.raw {
		return s.slurpText()
	}
	var errs []error
	out := value.Array{}
	for {
		v, err := s.Next()
		if errors.Is(err, evaluator.Done) {
			return out, errs
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, v)
	}
}

func (s *inputStream) slurpText() (value.Value, []error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		b    strings.Builder
		errs []error
	)
	if len(s.files) == 0 {
		if _, err := io.Copy(&b, s.stdin); err != nil {
			errs = append(errs, &inputError{err: err})
		}
	}
	for _, name := range s.files {
		s.name = name
		f, err := os.Open(name)
		if err != nil {
			errs = append(errs, &inputError{name: name, err: err})
			continue
		}
		if _, err := io.Copy(&b, f); err != nil {
			errs = append(errs, &inputError{name: name, err: err})
		}
		_ = f.Close()
	}
	s.files, s.done = nil, true
	return value.String(b.String()), errs
}

// lineDecoder yields each line of its input as a string, without the line
// terminator.
type lineDecoder struct {
	r *bufio.Reader
}

func (d *lineDecoder) Decode() (value.Value, error) {
	line, err := d.r.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return nil, err
	}
	line = strings.TrimSuffix(line, "\n")
	return value.String(strings.TrimSuffix(line, "\r")), nil
}

func displayName(name string) string {
	if name == "" {
		return "<stdin>"
	}
	return name
}
