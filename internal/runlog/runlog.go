// Package runlog writes per-step episode traces as zstd-compressed JSONL.
package runlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// StepRecord is one line of a trace.
type StepRecord struct {
	RunID    string  `json:"run_id"`
	Planner  string  `json:"planner"`
	Step     int     `json:"step"`
	Clock    string  `json:"clock"` // HH:MM after the step
	Action   string  `json:"action"`
	From     [2]int  `json:"from"`
	To       [2]int  `json:"to"`
	Outcome  string  `json:"outcome"`
	Task     int     `json:"task,omitempty"`
	Reward   float64 `json:"reward"`
	Total    float64 `json:"total"`
	Carrying bool    `json:"carrying"`
}

// Writer appends StepRecords to <dir>/<runID>.jsonl.zst.
type Writer struct {
	path  string
	runID string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// NewWriter creates dir if needed and opens the trace file for runID.
func NewWriter(dir, runID string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s.jsonl.zst", runID))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{
		path:  path,
		runID: runID,
		f:     f,
		enc:   enc,
		w:     bufio.NewWriterSize(enc, 64*1024),
	}, nil
}

// Path returns the trace file path.
func (w *Writer) Path() string { return w.path }

// Record appends one step. An empty RunID is filled in.
func (w *Writer) Record(rec StepRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.w == nil {
		return os.ErrClosed
	}
	if rec.RunID == "" {
		rec.RunID = w.runID
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Close flushes and closes the trace. Closing twice is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var err1 error
	if w.w != nil {
		err1 = w.w.Flush()
	}
	if w.enc != nil {
		if err := w.enc.Close(); err1 == nil {
			err1 = err
		}
		w.enc = nil
	}
	if w.f != nil {
		if err := w.f.Close(); err1 == nil {
			err1 = err
		}
		w.f = nil
	}
	w.w = nil
	return err1
}

// ReadAll decodes every record of a trace file.
func ReadAll(path string) ([]StepRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return decode(dec)
}

func decode(r io.Reader) ([]StepRecord, error) {
	var out []StepRecord
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec StepRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return out, fmt.Errorf("line %d: %w", len(out)+1, err)
		}
		out = append(out, rec)
	}
	return out, sc.Err()
}
