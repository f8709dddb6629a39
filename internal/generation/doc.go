// Package generation defines the boundary between the card generation run and
// the external AI/LLM service that writes flashcard content. The Generator
// interface is implemented by infrastructure adapters (Gemini) and decorated
// by telemetry, so the dispatcher never couples to a specific provider.
package generation
