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
	"strings"
)

// Field identifies a single attribute of a PropertyRecord.
// Fields are a closed enumeration; every Field has exactly one FieldSpec.
type Field int

const (
	FieldID Field = iota
	FieldDescription
	FieldStreetAddress
	FieldCity
	FieldState
	FieldCounty
	FieldCountry
	FieldCurrency
	FieldLotAreaUnits
	FieldPrice
	FieldPricePerSquareFoot
	FieldBedrooms
	FieldBathrooms
	FieldLivingArea
	FieldBuildingArea
	FieldGarageSpaces
	FieldYearBuilt
	FieldZipcode
	FieldStateID
	FieldCountyID
	FieldCityID
	FieldHomeType
	FieldEvent
	FieldLevels
	FieldIsBankOwned
	FieldIsForAuction
	FieldParking
	FieldHasGarage
	FieldPool
	FieldSpa
	FieldIsNewConstruction
	FieldHasPetsAllowed
	FieldLatitude
	FieldLongitude
	FieldLocation
	FieldTime
	FieldDatePosted

	fieldCount
)

// Kind describes how a field's values are stored and compared.
type Kind int

const (
	KindID Kind = iota + 1
	KindText
	KindFloat
	KindInteger
	KindCategory
	KindFlag
	KindCoordinate
	KindGeo
	KindTimestamp
	KindDate
)

var kindNames = map[Kind]string{
	KindID:         "id",
	KindText:       "text",
	KindFloat:      "float",
	KindInteger:    "integer",
	KindCategory:   "category",
	KindFlag:       "flag",
	KindCoordinate: "coordinate",
	KindGeo:        "geo",
	KindTimestamp:  "timestamp",
	KindDate:       "date",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// FieldSpec describes a field: its dataset column name, the stem used for
// request parameters (e.g. "living_area" for min_living_area) and its kind.
type FieldSpec struct {
	Field Field
	Name  string
	Param string
	Kind  Kind
}

var fieldSpecs = [fieldCount]FieldSpec{
	{FieldID, "id", "ids", KindID},
	{FieldDescription, "description", "description", KindText},
	{FieldStreetAddress, "streetAddress", "street_address", KindText},
	{FieldCity, "city", "city", KindText},
	{FieldState, "state", "state", KindText},
	{FieldCounty, "county", "county", KindText},
	{FieldCountry, "country", "country", KindText},
	{FieldCurrency, "currency", "currency", KindText},
	{FieldLotAreaUnits, "lotAreaUnits", "lot_area_units", KindText},
	{FieldPrice, "price", "price", KindFloat},
	{FieldPricePerSquareFoot, "pricePerSquareFoot", "price_per_sqft", KindFloat},
	{FieldBedrooms, "bedrooms", "bedrooms", KindInteger},
	{FieldBathrooms, "bathrooms", "bathrooms", KindInteger},
	{FieldLivingArea, "livingArea", "living_area", KindInteger},
	{FieldBuildingArea, "buildingArea", "building_area", KindInteger},
	{FieldGarageSpaces, "garageSpaces", "garage_spaces", KindInteger},
	{FieldYearBuilt, "yearBuilt", "year_built", KindInteger},
	{FieldZipcode, "zipcode", "zipcode", KindInteger},
	{FieldStateID, "stateId", "state_id", KindInteger},
	{FieldCountyID, "countyId", "county_id", KindInteger},
	{FieldCityID, "cityId", "city_id", KindInteger},
	{FieldHomeType, "homeType", "home_type", KindCategory},
	{FieldEvent, "event", "event", KindCategory},
	{FieldLevels, "levels", "levels", KindCategory},
	{FieldIsBankOwned, "is_bankOwned", "is_bank_owned", KindFlag},
	{FieldIsForAuction, "is_forAuction", "is_for_auction", KindFlag},
	{FieldParking, "parking", "parking", KindFlag},
	{FieldHasGarage, "hasGarage", "has_garage", KindFlag},
	{FieldPool, "pool", "pool", KindFlag},
	{FieldSpa, "spa", "spa", KindFlag},
	{FieldIsNewConstruction, "isNewConstruction", "is_new_construction", KindFlag},
	{FieldHasPetsAllowed, "hasPetsAllowed", "has_pets_allowed", KindFlag},
	{FieldLatitude, "latitude", "latitude", KindCoordinate},
	{FieldLongitude, "longitude", "longitude", KindCoordinate},
	{FieldLocation, "location", "near", KindGeo},
	{FieldTime, "time", "time", KindTimestamp},
	{FieldDatePosted, "datePostedString", "date_posted", KindDate},
}

// Spec returns the FieldSpec for f. Unknown fields yield a zero FieldSpec.
func (f Field) Spec() FieldSpec {
	if f < 0 || f >= fieldCount {
		return FieldSpec{}
	}
	return fieldSpecs[f]
}

// String returns the dataset column name.
func (f Field) String() string {
	if s := f.Spec(); s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// Kind returns the field's kind.
func (f Field) Kind() Kind {
	return f.Spec().Kind
}

// Param returns the request parameter stem.
func (f Field) Param() string {
	return f.Spec().Param
}

// Valid reports whether f is a known field.
func (f Field) Valid() bool {
	return f >= 0 && f < fieldCount
}

// Numeric reports whether the field holds a number.
func (f Field) Numeric() bool {
	switch f.Kind() {
	case KindFloat, KindInteger, KindFlag, KindCoordinate, KindTimestamp:
		return true
	}
	return false
}

// Textual reports whether the field holds a string.
func (f Field) Textual() bool {
	switch f.Kind() {
	case KindID, KindText, KindCategory, KindDate:
		return true
	}
	return false
}

// Fields returns every field in declaration order.
func Fields() []Field {
	out := make([]Field, fieldCount)
	for i := range out {
		out[i] = Field(i)
	}
	return out
}

// FieldsOfKind returns every field of the given kind in declaration order.
func FieldsOfKind(k Kind) []Field {
	var out []Field
	for _, s := range fieldSpecs {
		if s.Kind == k {
			out = append(out, s.Field)
		}
	}
	return out
}

// FieldByName looks a field up by its dataset column name or its parameter
// stem. Matching is case-insensitive.
func FieldByName(name string) (Field, bool) {
	for _, s := range fieldSpecs {
		if strings.EqualFold(s.Name, name) || strings.EqualFold(s.Param, name) {
			return s.Field, true
		}
	}
	return 0, false
}

// ValidateSchema checks the field table for internal consistency:
// every field is described, at the right index, with unique names.
func ValidateSchema() error {
	names := make(map[string]Field, fieldCount)
	params := make(map[string]Field, fieldCount)
	for i, s := range fieldSpecs {
		if s.Field != Field(i) {
			return fmt.Errorf("%w: field %d described at index %d", ErrInvalidSchema, s.Field, i)
		}
		if s.Name == "" || s.Param == "" {
			return fmt.Errorf("%w: field %d has no name", ErrInvalidSchema, i)
		}
		if _, ok := kindNames[s.Kind]; !ok {
			return fmt.Errorf("%w: field %s has unknown kind %d", ErrInvalidSchema, s.Name, s.Kind)
		}
		key := strings.ToLower(s.Name)
		if other, dup := names[key]; dup {
			return fmt.Errorf("%w: %s used by fields %d and %d", ErrInvalidSchema, s.Name, other, i)
		}
		names[key] = s.Field
		pkey := strings.ToLower(s.Param)
		if other, dup := params[pkey]; dup {
			return fmt.Errorf("%w: param %s used by fields %d and %d", ErrInvalidSchema, s.Param, other, i)
		}
		params[pkey] = s.Field
	}
	return nil
}
