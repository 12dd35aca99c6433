package store

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/roach88/shopsync/internal/engine"
	"github.com/roach88/shopsync/internal/model"
)

const timeLayout = time.RFC3339Nano

// marshalOptions converts run options to canonical JSON TEXT so that equal
// flag sets are stored byte-identically.
func marshalOptions(opts map[string]string) (string, error) {
	m := make(map[string]any, len(opts))
	for k, v := range opts {
		m[k] = v
	}
	data, err := model.MarshalCanonical(m)
	if err != nil {
		return "", fmt.Errorf("marshal options: %w", err)
	}
	return string(data), nil
}

func marshalKinds(kinds []string) (string, error) {
	if kinds == nil {
		kinds = []string{}
	}
	data, err := model.MarshalCanonical(kinds)
	if err != nil {
		return "", fmt.Errorf("marshal kinds: %w", err)
	}
	return string(data), nil
}

func marshalSummary(r engine.Result) (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}
	return string(data), nil
}

func unmarshalOptions(data string) (map[string]string, error) {
	opts := map[string]string{}
	if data == "" || data == "{}" {
		return opts, nil
	}
	if err := json.Unmarshal([]byte(data), &opts); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	return opts, nil
}

func unmarshalKinds(data string) ([]string, error) {
	kinds := []string{}
	if data == "" || data == "[]" {
		return kinds, nil
	}
	if err := json.Unmarshal([]byte(data), &kinds); err != nil {
		return nil, fmt.Errorf("unmarshal kinds: %w", err)
	}
	return kinds, nil
}

func unmarshalSummary(data string) (engine.Result, error) {
	var r engine.Result
	if data == "" || data == "{}" {
		return r, nil
	}
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return engine.Result{}, fmt.Errorf("unmarshal summary: %w", err)
	}
	return r, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
