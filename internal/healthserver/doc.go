// Package healthserver implements a minimal HTTP health surface: a
// single-port server where any request returns the current worker
// count, and, when wired to a peer reporter, /peers returns the last
// observed peer-load snapshot as JSON.
package healthserver
