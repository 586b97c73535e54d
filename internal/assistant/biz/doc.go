// Package biz implements the assistant pipeline: ingestion, retrieval,
// routed generation with fallback, and answer assembly.
package biz
