// Package memory implements Lume's long-term memory subsystem: a structured
// fact store extracted from conversation, with confidence decay over time,
// reinforcement/contradiction reconciliation, and bounded context selection
// for prompt construction.
package memory
