package eventstore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"loanScope/internal/metrics"
	"loanScope/internal/model"
)

// Loader returns the full persisted event set.
type Loader interface {
	Load(ctx context.Context) ([]model.Event, error)
}

// DirLoader reads events from a directory of *.json, *.jsonl and *.ndjson
// files. Each file may hold a single object, an array of objects or one
// object per line.
type DirLoader struct {
	dir    string
	logger *zap.Logger
}

func NewDirLoader(dir string, logger *zap.Logger) *DirLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirLoader{dir: dir, logger: logger}
}

// Load reads every event file. A missing directory yields an empty set.
// Unreadable files and malformed records are logged and skipped.
func (l *DirLoader) Load(ctx context.Context) ([]model.Event, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Warn("event directory does not exist", zap.String("dir", l.dir))
			return nil, nil
		}
		return nil, fmt.Errorf("read event dir: %w", err)
	}

	var events []model.Event
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !isEventFile(entry.Name()) {
			continue
		}
		path := filepath.Join(l.dir, entry.Name())
		loaded, loadErrs := readEventFile(path)
		for _, loadErr := range loadErrs {
			metrics.StoreLoadErrorsTotal.Inc()
			l.logger.Error("skip stored record", zap.Error(loadErr))
		}
		events = append(events, loaded...)
	}
	return events, nil
}

func isEventFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".jsonl", ".ndjson":
		return true
	default:
		return false
	}
}

func readEventFile(path string) ([]model.Event, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{&model.LoadError{Source: path, Err: err}}
	}
	return parseEvents(path, data)
}

// parseEvents accepts a JSON array, a single object, or newline-delimited
// objects.
func parseEvents(source string, data []byte) ([]model.Event, []error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, []error{&model.LoadError{Source: source, Err: err}}
		}
		var (
			events []model.Event
			errs   []error
		)
		for i, item := range raw {
			ev, err := decodeEvent(item)
			if err != nil {
				errs = append(errs, &model.LoadError{Source: fmt.Sprintf("%s[%d]", source, i), Err: err})
				continue
			}
			events = append(events, ev)
		}
		return events, errs
	}

	if ev, err := decodeEvent(trimmed); err == nil {
		return []model.Event{ev}, nil
	}

	var (
		events []model.Event
		errs   []error
	)
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		ev, err := decodeEvent(text)
		if err != nil {
			errs = append(errs, &model.LoadError{Source: source, Line: line, Err: err})
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, &model.LoadError{Source: source, Err: err})
	}
	if len(events) == 0 && len(errs) > 1 {
		// nothing parsed as NDJSON either: report the file once
		return nil, []error{&model.LoadError{Source: source, Err: fmt.Errorf("not a JSON object, array or NDJSON stream")}}
	}
	return events, errs
}

func decodeEvent(data []byte) (model.Event, error) {
	var ev model.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return model.Event{}, err
	}
	if err := ev.Validate(); err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// Normalize removes duplicate identities, keeping the first occurrence, and
// orders the result by (block_number, log_index).
func Normalize(events []model.Event) []model.Event {
	seen := make(map[string]struct{}, len(events))
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		key := ev.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BlockNumber != out[j].BlockNumber {
			return out[i].BlockNumber < out[j].BlockNumber
		}
		return out[i].LogIndex < out[j].LogIndex
	})
	return out
}

// LoaderFunc adapts a function, such as a database query, to Loader.
type LoaderFunc func(ctx context.Context) ([]model.Event, error)

func (f LoaderFunc) Load(ctx context.Context) ([]model.Event, error) {
	return f(ctx)
}
