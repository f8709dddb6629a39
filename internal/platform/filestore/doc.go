// Package filestore provides the file-per-card sink. Each card is stored as
// <dir>/<word><ext>, written atomically through a temporary file in the same
// directory followed by a rename, so a reader never sees a half-written card
// and an interrupted run leaves no partial artifact behind.
//
// All filesystem access goes through afero, which lets tests run against an
// in-memory filesystem.
package filestore
