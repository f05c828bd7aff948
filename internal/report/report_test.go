package report

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteErrorReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")

	path, err := WriteErrorReport(dir, []RowError{
		{Record: "3", Message: "missing required field", Sheet: "Outcomes", Column: "name"},
		{Record: "7", Message: "study not found", Sheet: "Tags", Column: "study_id"},
	})
	if err != nil {
		t.Fatalf("failed to write report: %v", err)
	}

	if !strings.HasPrefix(filepath.Base(path), "import_") || !strings.HasSuffix(path, ".csv") {
		t.Errorf("unexpected report name: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open report: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse report: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}

	header := rows[0]
	want := []string{"record", "error", "sheet", "column"}
	for i, col := range want {
		if header[i] != col {
			t.Errorf("expected header column %q, got %q", col, header[i])
		}
	}

	if rows[1][1] != "missing required field" || rows[1][2] != "Outcomes" || rows[1][3] != "name" {
		t.Errorf("unexpected first error row: %v", rows[1])
	}
}

func TestEventLoggerLevels(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewEventLogger(dir, LevelInfo)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	logger.Log(&Event{Level: LevelDebug, Event: EventLoad, Sheet: "Study"})
	logger.Log(&Event{Level: LevelInfo, Event: EventValidate, Sheet: "Study", Rows: 2})
	logger.Log(&Event{Level: LevelError, Event: EventRollback, Errors: 1})
	if err := logger.Close(); err != nil {
		t.Fatalf("failed to close logger: %v", err)
	}

	f, err := os.Open(logger.Path())
	if err != nil {
		t.Fatalf("failed to open event log: %v", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("bad event line: %v", err)
		}
		events = append(events, e)
	}

	// Debug filtered out at info level
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Event != EventValidate || events[1].Event != EventRollback {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestNullLogger(t *testing.T) {
	logger := NullLogger()
	if err := logger.Log(&Event{Level: LevelInfo, Event: EventLoad}); err != nil {
		t.Errorf("null logger should discard events, got %v", err)
	}
	if logger.Path() != "" {
		t.Errorf("null logger should have empty path")
	}
	if err := logger.Close(); err != nil {
		t.Errorf("null logger close failed: %v", err)
	}
}
