// Package ingestion loads the listings dataset into a property index.
//
// A Loader reads a CSV file (from a local path or an s3:// URL), repairs
// and validates every row, drops unusable rows and duplicate ids (the first
// occurrence wins), then encodes and upserts the surviving records in chunks
// on a worker pool. Every run returns a LoadReport with per-reason counters.
package ingestion
