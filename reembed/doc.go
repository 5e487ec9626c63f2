// Package reembed re-encodes every stored property with the current embedder
// and layout.
//
// Run it after switching the embedding model or changing the statistics that
// shape the number and category spaces. Records are read from the index in
// batches, encoded with retry and exponential backoff, and written back. When
// every batch succeeds the index adopts the new layout signature.
package reembed
