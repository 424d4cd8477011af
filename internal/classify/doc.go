// Package classify asks an OpenAI-compatible chat completion endpoint to
// categorize a document from its extracted text. The model returns a strict
// JSON payload with a category, a suggested filename, a target path, and a
// confidence score that the pipeline compares against the review threshold.
package classify
