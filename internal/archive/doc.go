// Package archive finds the newest annotation export in a directory and
// unpacks it into the canonical training pool.
//
// An export is a zip named like project-<id>-<suffix>.zip containing images/,
// labels/ and optionally classes.txt and notes.json. Unpacking is lenient:
// a corrupt archive or a missing category folder moves nothing rather than
// failing, leaving the structure validator to reject the result.
package archive
