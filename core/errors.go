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

package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidSchema indicates the field table is inconsistent.
	ErrInvalidSchema = errors.New("invalid field schema")

	// ErrInvalidProperty indicates a PropertyRecord failed validation.
	ErrInvalidProperty = errors.New("invalid property record")

	// ErrEmptyID indicates the listing id is missing.
	ErrEmptyID = errors.New("property id cannot be empty")

	// ErrEmptyDescription indicates the description is missing.
	ErrEmptyDescription = errors.New("description cannot be empty")

	// ErrNegativeValue indicates a numeric field holds a negative value.
	ErrNegativeValue = errors.New("value cannot be negative")

	// ErrInvalidFlag indicates a flag field holds something other than 0 or 1.
	ErrInvalidFlag = errors.New("flag must be 0 or 1")

	// ErrInvalidCategory indicates a categorical field holds a value outside its closed set.
	ErrInvalidCategory = errors.New("value not in category set")

	// ErrMissingTimestamp indicates neither time nor datePostedString is usable.
	ErrMissingTimestamp = errors.New("time and datePostedString both missing")

	// ErrInvalidDate indicates datePostedString is not a YYYY-MM-DD date.
	ErrInvalidDate = errors.New("invalid posting date")

	// ErrInvalidPredicate indicates a predicate was built with an unsuitable field, op or value.
	ErrInvalidPredicate = errors.New("invalid predicate")

	// ErrDimensionMismatch indicates a vector does not match the query layout.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrTruncatedData indicates serialized data ended early.
	ErrTruncatedData = errors.New("truncated property data")
)
