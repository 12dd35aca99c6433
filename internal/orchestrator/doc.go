// Package orchestrator sequences reconciliation passes for one invocation.
//
// For each selected resource kind it runs the definition pass, then the
// data pass, fanning out once per namespace when asked to. Passes run
// strictly one after another and their results are collected into a
// engine.Report tree. The orchestrator is also where a run is opened and
// closed in the journal.
package orchestrator
