package log

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"fractalcraft.ai/internal/protocol"
)

// Entry is one line of a command transcript.
type Entry struct {
	RunID    string    `json:"run_id"`
	Seq      int       `json:"seq"`
	At       time.Time `json:"at"`
	Command  string    `json:"command"`
	Response string    `json:"response,omitempty"`
	Code     string    `json:"code,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Recorder wraps a Commander and appends every exchange to a JSONLWriter.
// A failing transcript never fails the command; the first write error is kept for Err.
type Recorder struct {
	next  protocol.Commander
	w     *JSONLWriter
	runID string
	now   func() time.Time

	mu     sync.Mutex
	seq    int
	errOut error
}

func NewRecorder(next protocol.Commander, w *JSONLWriter, runID string) *Recorder {
	return &Recorder{next: next, w: w, runID: runID, now: time.Now}
}

func (r *Recorder) Command(ctx context.Context, cmd string) (string, error) {
	reply, err := r.next.Command(ctx, cmd)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	e := Entry{
		RunID:    r.runID,
		Seq:      r.seq,
		At:       r.now().UTC(),
		Command:  cmd,
		Response: reply,
	}
	if err != nil {
		e.Error = err.Error()
	} else {
		e.Code = protocol.ClassifyReply(reply)
	}
	if werr := r.w.Write(e); werr != nil && r.errOut == nil {
		r.errOut = werr
	}
	return reply, err
}

// Seq is the number of recorded commands.
func (r *Recorder) Seq() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errOut
}

// ReadTranscript decodes every entry of a transcript in file order.
func ReadTranscript(path string, fn func(Entry) error) error {
	line := 0
	return ReadJSONL(path, func(b []byte) error {
		line++
		var e Entry
		if err := json.Unmarshal(b, &e); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		return fn(e)
	})
}
