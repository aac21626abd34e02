// Package surface owns the live rendering surfaces of the preview: the
// Handle capability interface that hides the host document, an in-process
// goquery-backed implementation, the lifecycle manager with its
// one-content-write-per-load ledger, and the asset-URL repair pass.
//
// The manager's central invariant: once a surface is initialized for the
// current load, later passes re-run style injection only. Switching device
// profiles or toggling comparison mode therefore never rewrites content
// and never flickers.
package surface
