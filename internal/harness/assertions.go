package harness

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/shopsync/internal/model"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %s %v\n", event.Seq, event.Run, event.Op, event.Key, event.Values)
		}
	}
	return buf.String()
}

func (h *Harness) evaluate(ctx context.Context, trace []TraceEvent, a Assertion) error {
	switch a.Type {
	case AssertWriteContains:
		return assertWriteContains(trace, a)
	case AssertWriteOrder:
		return assertWriteOrder(trace, a)
	case AssertWriteCount:
		return assertWriteCount(trace, a)
	case AssertTargetEntity:
		return h.assertTargetEntity(a)
	case AssertTargetDefinition:
		return h.assertTargetDefinition(a)
	case AssertJournal:
		return h.assertJournal(ctx, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertWriteContains checks that some write matches op and key and
// carries every listed value.
func assertWriteContains(trace []TraceEvent, a Assertion) error {
	for _, event := range trace {
		if event.Op != a.Op || event.Key != model.NormalizeKey(a.Key) {
			continue
		}
		if containsAll(event.Values, a.Values) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertWriteContains,
		Expected: fmt.Sprintf("%s %s with values %v", a.Op, a.Key, a.Values),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

func containsAll(have, want []string) bool {
	for _, w := range want {
		if !slices.Contains(have, w) {
			return false
		}
	}
	return true
}

// assertWriteOrder checks that the writes appear in the specified order.
// Writes don't need to be consecutive (intervening writes are allowed).
func assertWriteOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		ref := event.Ref().String()
		if _, seen := positions[ref]; !seen {
			positions[ref] = i + 1 // 1-indexed for readability
		}
	}

	for _, w := range a.Writes {
		w.Key = model.NormalizeKey(w.Key)
		if positions[w.String()] == 0 {
			return &AssertionError{
				Type:     AssertWriteOrder,
				Expected: fmt.Sprintf("all writes present: %v", a.Writes),
				Actual:   fmt.Sprintf("missing write: %s", w),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Writes); i++ {
		prev, curr := a.Writes[i-1], a.Writes[i]
		prev.Key, curr.Key = model.NormalizeKey(prev.Key), model.NormalizeKey(curr.Key)
		if positions[prev.String()] >= positions[curr.String()] {
			return &AssertionError{
				Type:     AssertWriteOrder,
				Expected: fmt.Sprintf("writes in order: %v", a.Writes),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev.String()], curr, positions[curr.String()]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertWriteCount checks the number of writes with op, and with key when
// the assertion names one.
func assertWriteCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Op != a.Op {
			continue
		}
		if a.Key != "" && event.Key != model.NormalizeKey(a.Key) {
			continue
		}
		count++
	}

	if count != a.Count {
		what := a.Op
		if a.Key != "" {
			what += " " + a.Key
		}
		return &AssertionError{
			Type:     AssertWriteCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, what),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertTargetEntity checks the final state of one target entity.
func (h *Harness) assertTargetEntity(a Assertion) error {
	e, ok := h.target.Entity(model.EntityKind(a.Kind), a.Key)
	if a.Absent {
		if ok {
			return &AssertionError{
				Type:     AssertTargetEntity,
				Expected: fmt.Sprintf("no %s %s on target", a.Kind, a.Key),
				Actual:   fmt.Sprintf("found %s", e.ID),
			}
		}
		return nil
	}
	if !ok {
		return &AssertionError{
			Type:     AssertTargetEntity,
			Expected: fmt.Sprintf("%s %s on target", a.Kind, a.Key),
			Actual:   "entity not found",
		}
	}

	keys := make([]string, 0, len(a.Fields))
	for k := range a.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		want := a.Fields[k]
		got, present := e.Field(k)
		switch {
		case want == "" && present:
			return &AssertionError{
				Type:     AssertTargetEntity,
				Expected: fmt.Sprintf("%s %s without field %s", a.Kind, a.Key, k),
				Actual:   fmt.Sprintf("%s = %q", k, got.Value),
			}
		case want != "" && got.Value != want:
			return &AssertionError{
				Type:     AssertTargetEntity,
				Expected: fmt.Sprintf("%s %s with %s = %q", a.Kind, a.Key, k, want),
				Actual:   fmt.Sprintf("%s = %q", k, got.Value),
			}
		}
	}
	return nil
}

// assertTargetDefinition checks the final state of one target definition.
func (h *Harness) assertTargetDefinition(a Assertion) error {
	d, ok := h.target.Definition(model.DefinitionKind(a.Kind), a.Key)
	switch {
	case a.Absent && ok:
		return &AssertionError{
			Type:     AssertTargetDefinition,
			Expected: fmt.Sprintf("no %s %s on target", a.Kind, a.Key),
			Actual:   fmt.Sprintf("found %s", d.ID),
		}
	case a.Absent:
		return nil
	case !ok:
		return &AssertionError{
			Type:     AssertTargetDefinition,
			Expected: fmt.Sprintf("%s %s on target", a.Kind, a.Key),
			Actual:   "definition not found",
		}
	}
	if a.Pinned != nil && d.Pinned != *a.Pinned {
		return &AssertionError{
			Type:     AssertTargetDefinition,
			Expected: fmt.Sprintf("%s pinned = %t", a.Key, *a.Pinned),
			Actual:   fmt.Sprintf("pinned = %t", d.Pinned),
		}
	}
	return nil
}

// assertJournal counts journaled mutation attempts with the outcome across
// every run of the scenario.
func (h *Harness) assertJournal(ctx context.Context, a Assertion) error {
	runs, err := h.journal.ListRuns(ctx, 0)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	count := 0
	for _, run := range runs {
		muts, err := h.journal.ReadMutations(ctx, run.ID, a.Outcome)
		if err != nil {
			return fmt.Errorf("read mutations of %s: %w", run.ID, err)
		}
		count += len(muts)
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertJournal,
			Expected: fmt.Sprintf("%d journaled %s attempts", a.Count, a.Outcome),
			Actual:   fmt.Sprintf("%d attempts", count),
		}
	}
	return nil
}
