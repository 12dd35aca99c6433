// Package remote defines the boundary between the reconciliation engine and
// a deployment of the platform.
//
// A deployment is reachable only through two classes of calls:
//
//   - Reads (Fetcher): paginated fetches of definitions and entities, plus
//     the two single-object lookups used to translate references.
//   - Writes (Mutator): create, update and delete calls that may fail with a
//     transport error or be rejected in-band with UserErrors.
//
// The engine must check both failure channels. A transport error surfaces
// as a plain error; a semantic rejection surfaces as UserErrors, which can
// be inspected with AsUserErrors and IsFeatureLimit.
//
// Memory is a complete in-memory deployment. Tests, the scenario harness and
// offline runs use it in place of the HTTP transport.
package remote
