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

// Package search answers property search requests.
//
// A Searcher resolves the structured parameters of a request, optionally asks
// a language model to extract parameters from its natural_query, merges the
// two (structured values win per field), builds one weighted composite query
// and runs it against a storage.PropertyIndex. Results come back ranked by
// score with the per-field partial scores attached.
//
// Extraction failures are isolated to the request. In lenient mode (the
// default) the request falls back to its structured parameters; in strict
// mode it fails with ErrExtractionFailed.
package search
