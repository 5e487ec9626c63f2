// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package storage provides the property index abstraction for homesearch.
//
// The index stores encoded property records and answers composite similarity
// queries. Two backends implement it:
//
//   - badger: an embedded BadgerDB store that scans, filters and scores in process
//   - qdrant: a Qdrant collection queried over gRPC with payload filters
//
// # Constructor Return Type Pattern
//
// Public constructors return the storage.PropertyIndex interface so callers do
// not couple to a backend:
//
//	index, err := badger.NewPropertyIndex(path)  // returns storage.PropertyIndex
//
// # Usage
//
//	index, err := badger.NewMemoryPropertyIndex()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer index.Close()
//
//	if err := index.UpsertProperties(ctx, records...); err != nil {
//	    log.Fatal(err)
//	}
//	results, err := index.Search(ctx, query)
//
// # Layout Signature
//
// Record vectors are only meaningful under the layout that produced them.
// Backends persist the layout signature so a mismatched index is detected
// before it is searched.
//
// # Thread Safety
//
// All implementations must be safe for concurrent use. All methods accept a
// context.Context for cancellation.
package storage
