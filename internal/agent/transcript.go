package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// transcript appends one JSON record per line to <runsDir>/<runID>.jsonl.
type transcript struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

func openTranscript(runsDir, runID string) (*transcript, error) {
	if runsDir == "" {
		return nil, fmt.Errorf("runs dir not configured")
	}
	if err := os.MkdirAll(runsDir, 0o700); err != nil {
		return nil, err
	}

	path := filepath.Join(runsDir, runID+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &transcript{path: path, f: f}, nil
}

func (t *transcript) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.f != nil {
		_ = t.f.Close()
		t.f = nil
	}
}

func (t *transcript) write(rec transcriptRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.f == nil {
		return
	}
	if rec.TS == "" {
		rec.TS = nowTS()
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return
	}
	b = append(b, '\n')
	_, _ = t.f.Write(b)
}

type transcriptRecord struct {
	TS   string `json:"ts"`
	Type string `json:"type"`

	Goal     string `json:"goal,omitempty"`
	PageID   string `json:"page_id,omitempty"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	Round    int       `json:"round,omitempty"`
	State    State     `json:"state,omitempty"`
	ToolName string    `json:"tool_name,omitempty"`
	Args     string    `json:"args,omitempty"`
	Text     string    `json:"text,omitempty"`
	Blocks   []UIBlock `json:"blocks,omitempty"`
	IsError  bool      `json:"is_error,omitempty"`
}

func eventRecord(e Event) transcriptRecord {
	return transcriptRecord{
		Type:     e.Type,
		Round:    e.Round,
		State:    e.State,
		ToolName: e.Tool,
		Args:     e.Args,
		Text:     e.Content,
		Blocks:   e.Blocks,
		IsError:  e.IsError,
	}
}

func nowTS() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
