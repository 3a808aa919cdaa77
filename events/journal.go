package events

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// journalEntry is one line of the on-disk journal.
type journalEntry struct {
	Sequence int64 `json:"sequence"`
	Event    Event `json:"event"`
}

// Journal is an append-only JSONL audit log of lifecycle events. It
// implements Publisher; every mark/unmark/delete/opt-out/notify action
// lands here durably before anything else consumes it.
type Journal struct {
	mu       sync.Mutex
	file     *os.File
	writer   *bufio.Writer
	sequence int64
	dir      string
}

// OpenJournal creates or opens a journal in dir.
func OpenJournal(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	filename := fmt.Sprintf("sweeper-%s.journal", time.Now().Format("20060102-150405"))
	path := filepath.Join(dir, filename)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	return &Journal{
		file:   file,
		writer: bufio.NewWriter(file),
		dir:    dir,
	}, nil
}

// Close flushes and closes the journal.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writer.Flush(); err != nil {
		return err
	}
	return j.file.Close()
}

// Publish appends an event to the journal.
func (j *Journal) Publish(_ context.Context, event Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.sequence++
	line, err := json.Marshal(journalEntry{Sequence: j.sequence, Event: event})
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}

	if _, err := j.writer.Write(line); err != nil {
		return fmt.Errorf("failed to write journal entry: %w", err)
	}
	if _, err := j.writer.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	// Flush immediately for durability.
	if err := j.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush journal: %w", err)
	}
	return j.file.Sync()
}

// Replay invokes handler for every journaled event after since, across all
// journal files in dir.
func Replay(dir string, since time.Time, handler func(Event) error) error {
	files, err := filepath.Glob(filepath.Join(dir, "sweeper-*.journal"))
	if err != nil {
		return fmt.Errorf("failed to list journal files: %w", err)
	}

	for _, path := range files {
		if err := replayFile(path, since, handler); err != nil {
			return err
		}
	}
	return nil
}

func replayFile(path string, since time.Time, handler func(Event) error) error {
	file, err := os.Open(path) // #nosec G304 -- path comes from our own glob
	if err != nil {
		return fmt.Errorf("failed to open journal file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry journalEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return fmt.Errorf("failed to unmarshal journal entry: %w", err)
		}
		if entry.Event.Timestamp.After(since) {
			if err := handler(entry.Event); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return err
	}
	return nil
}
