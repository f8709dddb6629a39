// Package gemini provides an implementation of the generation.Generator
// interface backed by Google's Gemini API.
//
// This package is an infrastructure adapter: it renders the flashcard prompt
// for a word from a text template, sends it to the configured model through
// the google.golang.org/genai client, and translates the response (or the
// failure) into the generation package's terms. It performs a single call per
// Generate; retry, backoff and rate limiting belong to the dispatcher.
package gemini
