package protocol

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_ReadLine(t *testing.T) {
	r := NewReader(strings.NewReader("first\r\n\nsecond\nlast"))

	var lines []string
	for {
		line, err := r.ReadLine()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		lines = append(lines, line)
	}

	assert.Equal(t, []string{"first", "", "second", "last"}, lines)
}

func TestReader_LongLine(t *testing.T) {
	long := strings.Repeat("x", 1<<20)
	r := NewReader(strings.NewReader(long + "\n"))

	line, err := r.ReadLine()
	require.NoError(t, err)
	assert.Len(t, line, 1<<20)

	_, err = r.ReadLine()
	assert.Equal(t, io.EOF, err)
}

type flushRecorder struct {
	mu     sync.Mutex
	writes []string
}

func (f *flushRecorder) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, string(p))
	return len(p), nil
}

func TestWriter_FlushesEachLine(t *testing.T) {
	rec := &flushRecorder{}
	w := NewWriter(rec)

	require.NoError(t, w.WriteLine("RESPONSE:{}"))
	assert.Equal(t, []string{"RESPONSE:{}\n"}, rec.writes)

	require.NoError(t, w.WriteLine("RESPONSE:{\"a\":1}"))
	assert.Len(t, rec.writes, 2)
}

func TestWriter_ConcurrentLinesDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.WriteLine(strings.Repeat("y", 512))
		}()
	}
	wg.Wait()

	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		assert.Len(t, line, 512)
	}
}
