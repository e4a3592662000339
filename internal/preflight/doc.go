// Package preflight provides readiness checks for the directories, external
// commands and stock-footage providers storyreel depends on.
//
// These checks run in two contexts:
//   - The build command calls RunAll before touching any segment and refuses
//     to start when a required check fails.
//   - The CLI "storyreel doctor" command shows every check, including the
//     optional provider probes, as a status table.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
