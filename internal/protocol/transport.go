package protocol

import (
	"bufio"
	"io"
	"strings"
	"sync"
)

// Reader yields one input line per call.
type Reader struct {
	r *bufio.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadLine blocks until a full line is available and returns it without the
// line terminator. A final unterminated line is returned before io.EOF.
func (r *Reader) ReadLine() (string, error) {
	line, err := r.r.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	if err != nil {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

// Writer emits newline-terminated lines and flushes after each one.
type Writer struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) WriteLine(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.w.WriteString(text); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}
