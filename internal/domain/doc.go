// Package domain contains the core entities of the card generation run:
// the work items read from the input list, the terminal outcome recorded for
// each of them, and the aggregate summary reported at the end of a run.
// It has no dependencies on infrastructure or delivery mechanisms.
package domain
