// Package preflight provides readiness checks for the filesystem paths and
// external resources that photomatch depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and refuses to serve when a
//     required check fails.
//   - The CLI "photomatch status" command uses the individual check
//     functions to display service health.
//
// Optional resources (the remote workbook URL) are skipped when not
// configured.
package preflight
