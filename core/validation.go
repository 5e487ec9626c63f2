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

import (
	"fmt"
	"slices"
)

// ValidatePropertyRecord validates a PropertyRecord according to domain rules.
//
// Validation rules:
//   - ID and Description must not be empty
//   - numeric fields other than coordinates must not be negative
//   - flags must be 0 or 1
//   - homeType and event, when set, must belong to their closed sets
//   - time and datePostedString must agree to the day
//
// NOT validated:
//   - Vector (can be empty until the encoder runs)
//   - Levels (the closed set comes from column statistics)
func ValidatePropertyRecord(r *PropertyRecord) error {
	if r == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidProperty)
	}
	if r.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidProperty, ErrEmptyID)
	}
	if r.Description == "" {
		return fmt.Errorf("%w: %s: %w", ErrInvalidProperty, r.ID, ErrEmptyDescription)
	}

	for _, f := range Fields() {
		v, ok := r.Number(f)
		if !ok {
			continue
		}
		switch f.Kind() {
		case KindFlag:
			if v != 0 && v != 1 {
				return fmt.Errorf("%w: %s: %s=%g: %w", ErrInvalidProperty, r.ID, f, v, ErrInvalidFlag)
			}
		case KindFloat, KindInteger:
			if v < 0 {
				return fmt.Errorf("%w: %s: %s=%g: %w", ErrInvalidProperty, r.ID, f, v, ErrNegativeValue)
			}
		}
	}

	if err := ValidateCategory(FieldHomeType, r.HomeType); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidProperty, r.ID, err)
	}
	if err := ValidateCategory(FieldEvent, r.Event); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidProperty, r.ID, err)
	}

	if r.Time == nil || r.DatePostedString == "" {
		return fmt.Errorf("%w: %s: %w", ErrInvalidProperty, r.ID, ErrMissingTimestamp)
	}
	if DateFromUnix(*r.Time) != r.DatePostedString {
		return fmt.Errorf("%w: %s: time %d does not match %s", ErrInvalidProperty, r.ID, *r.Time, r.DatePostedString)
	}
	return nil
}

// ValidateCategory checks that a non-empty value belongs to the default closed set of
// a categorical field. Empty values are allowed.
func ValidateCategory(f Field, value string) error {
	if value == "" {
		return nil
	}
	set := DefaultCategories(f)
	if set == nil {
		return nil
	}
	if !slices.Contains(set, value) {
		return fmt.Errorf("%w: %s=%q", ErrInvalidCategory, f, value)
	}
	return nil
}
