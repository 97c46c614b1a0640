// Package catalyst is the typed gateway to the Catalyst Center REST API.
//
// The gateway is split into small per-family interfaces (Sites, SDA,
// Settings, Issues, Devices, LanAutomation, Onboarding, Tasks) so that
// consumers depend only on the operations they use and tests can mock a
// single family. Controller aggregates all families for wiring.
//
// Three cross-cutting contracts live here as well:
//
//   - Paginate hides offset arithmetic and short-page termination for
//     paginated GETs (page size 500)
//   - AwaitTask polls an asynchronous task future until a terminal state,
//     a caller-supplied success predicate, or the configured timeout
//   - CheckVersion gates features on the controller's reported version
//
// Absent entities are a normal signal: lookups return (nil, nil), never a
// not-found error, so that resolvers and state fetchers can build partial
// current state without unwinding.
package catalyst
