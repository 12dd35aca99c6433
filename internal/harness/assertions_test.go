package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleTrace = []TraceEvent{
	{Seq: 1, Run: "run-1", Op: "create_definition", Key: "designer", Values: []string{"name:single_line_text_field"}},
	{Seq: 2, Run: "run-1", Op: "create_entity", Key: "ada", Values: []string{"name=Ada"}},
	{Seq: 3, Run: "run-1", Op: "create_entity", Key: "grace", Values: []string{"name=Grace"}},
}

func TestAssertWriteContains(t *testing.T) {
	assert.NoError(t, assertWriteContains(sampleTrace, Assertion{Op: "create_entity", Key: "ada", Values: []string{"name=Ada"}}))
	assert.NoError(t, assertWriteContains(sampleTrace, Assertion{Op: "create_entity", Key: "grace"}))

	err := assertWriteContains(sampleTrace, Assertion{Op: "create_entity", Key: "ada", Values: []string{"name=Grace"}})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertWriteContains, ae.Type)
	assert.Contains(t, err.Error(), "Full trace:")
}

func TestAssertWriteOrder(t *testing.T) {
	ok := Assertion{Writes: []WriteRef{{Op: "create_definition", Key: "designer"}, {Op: "create_entity", Key: "grace"}}}
	assert.NoError(t, assertWriteOrder(sampleTrace, ok))

	reversed := Assertion{Writes: []WriteRef{{Op: "create_entity", Key: "grace"}, {Op: "create_entity", Key: "ada"}}}
	err := assertWriteOrder(sampleTrace, reversed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "should be before")

	missing := Assertion{Writes: []WriteRef{{Op: "create_entity", Key: "ada"}, {Op: "delete_entity", Key: "ada"}}}
	err = assertWriteOrder(sampleTrace, missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing write: delete_entity ada")
}

func TestAssertWriteCount(t *testing.T) {
	assert.NoError(t, assertWriteCount(sampleTrace, Assertion{Op: "create_entity", Count: 2}))
	assert.NoError(t, assertWriteCount(sampleTrace, Assertion{Op: "create_entity", Key: "ada", Count: 1}))
	assert.NoError(t, assertWriteCount(sampleTrace, Assertion{Op: "set_fields", Count: 0}))

	err := assertWriteCount(sampleTrace, Assertion{Op: "create_definition", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 occurrences")
}

func TestTraceSnapshot_Marshal(t *testing.T) {
	s := TraceSnapshot{
		ScenarioName: "tiny",
		Runs:         []RunSummary{{ID: "run-1", Command: CommandDelete}},
		Trace:        []TraceEvent{{Seq: 1, Run: "run-1", Op: "delete_entity", Key: "lamp"}},
	}
	data, err := s.Marshal()
	require.NoError(t, err)
	assert.Equal(t,
		`{"runs":[{"command":"delete","created":0,"deleted":0,"failed":0,"id":"run-1","skipped":0,"updated":0}],`+
			`"scenario_name":"tiny","trace":[{"key":"lamp","op":"delete_entity","run":"run-1","seq":1}]}`+"\n",
		string(data))
}
