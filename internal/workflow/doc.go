// Package workflow implements the durable evaluation pipeline on Temporal.
//
// EvaluationWorkflow runs extraction and scoring as separate activities so a
// worker crash during OCR or a transient generation outage does not lose the
// submission. Workflow code stays deterministic: every I/O step lives in
// internal/activity.
package workflow
