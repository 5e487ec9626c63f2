package core

import (
	"encoding/binary"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// ID is the internal numeric key of a property.
// It is derived from the listing id so the same listing always maps to the same key.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// PropertyRecord is a single real-estate listing.
// Text fields are stored lowercase. Nullable numerics are pointers; nil means absent.
// Flags hold 0 or 1.
type PropertyRecord struct {
	ID            string `json:"id"`
	Description   string `json:"description"`
	StreetAddress string `json:"streetAddress"`
	City          string `json:"city"`
	State         string `json:"state"`
	County        string `json:"county"`
	Country       string `json:"country,omitempty"`
	Currency      string `json:"currency,omitempty"`
	LotAreaUnits  string `json:"lotAreaUnits,omitempty"`

	Price              *float64 `json:"price"`
	PricePerSquareFoot *float64 `json:"pricePerSquareFoot"`
	Bedrooms           *int64   `json:"bedrooms"`
	Bathrooms          *int64   `json:"bathrooms"`
	LivingArea         *int64   `json:"livingArea"`
	BuildingArea       *int64   `json:"buildingArea"`
	GarageSpaces       *int64   `json:"garageSpaces"`
	YearBuilt          *int64   `json:"yearBuilt"`
	Zipcode            *int64   `json:"zipcode"`
	StateID            *int64   `json:"stateId,omitempty"`
	CountyID           *int64   `json:"countyId,omitempty"`
	CityID             *int64   `json:"cityId,omitempty"`

	HomeType string `json:"homeType"`
	Event    string `json:"event"`
	Levels   string `json:"levels"`

	IsBankOwned       *int64 `json:"is_bankOwned"`
	IsForAuction      *int64 `json:"is_forAuction"`
	Parking           *int64 `json:"parking"`
	HasGarage         *int64 `json:"hasGarage"`
	Pool              *int64 `json:"pool"`
	Spa               *int64 `json:"spa"`
	IsNewConstruction *int64 `json:"isNewConstruction"`
	HasPetsAllowed    *int64 `json:"hasPetsAllowed"`

	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	Time             *int64 `json:"time"`
	DatePostedString string `json:"datePostedString"`

	Vector []float32 `json:"-"` // Composite embedding (populated by the encoder)
}

// Key returns the internal numeric key for the record.
func (r *PropertyRecord) Key() ID {
	return IDFromContent(r.ID)
}

// Clone returns a deep copy of the record.
func (r *PropertyRecord) Clone() *PropertyRecord {
	c := *r
	for _, f := range Fields() {
		switch {
		case c.floatRef(f) != nil:
			if p := *c.floatRef(f); p != nil {
				v := *p
				*c.floatRef(f) = &v
			}
		case c.intRef(f) != nil:
			if p := *c.intRef(f); p != nil {
				v := *p
				*c.intRef(f) = &v
			}
		}
	}
	if r.Vector != nil {
		c.Vector = append([]float32(nil), r.Vector...)
	}
	return &c
}

// Text returns the string value of a textual field. Empty strings are reported as absent.
func (r *PropertyRecord) Text(f Field) (string, bool) {
	p := r.textRef(f)
	if p == nil || *p == "" {
		return "", false
	}
	return *p, true
}

// SetText stores a textual field. It is a no-op for non-textual fields.
func (r *PropertyRecord) SetText(f Field, value string) {
	if p := r.textRef(f); p != nil {
		*p = value
	}
}

// Number returns the value of a numeric field as float64.
func (r *PropertyRecord) Number(f Field) (float64, bool) {
	if pp := r.floatRef(f); pp != nil {
		if *pp == nil {
			return 0, false
		}
		return **pp, true
	}
	if pp := r.intRef(f); pp != nil {
		if *pp == nil {
			return 0, false
		}
		return float64(**pp), true
	}
	return 0, false
}

// SetNumber stores a numeric field. Integer fields truncate toward zero.
func (r *PropertyRecord) SetNumber(f Field, value float64) {
	if pp := r.floatRef(f); pp != nil {
		v := value
		*pp = &v
		return
	}
	if pp := r.intRef(f); pp != nil {
		v := int64(value)
		*pp = &v
	}
}

// Flag returns the value of a 0/1 flag field.
func (r *PropertyRecord) Flag(f Field) (bool, bool) {
	if f.Kind() != KindFlag {
		return false, false
	}
	v, ok := r.Number(f)
	return v == 1, ok
}

// Clear resets a field to its absent state.
func (r *PropertyRecord) Clear(f Field) {
	if p := r.textRef(f); p != nil {
		*p = ""
	}
	if pp := r.floatRef(f); pp != nil {
		*pp = nil
	}
	if pp := r.intRef(f); pp != nil {
		*pp = nil
	}
}

// Location returns the record's coordinates when both are present.
func (r *PropertyRecord) Location() (lat, lon float64, ok bool) {
	if r.Latitude == nil || r.Longitude == nil {
		return 0, 0, false
	}
	return *r.Latitude, *r.Longitude, true
}

// Normalize lowercases and trims all text fields in place.
func (r *PropertyRecord) Normalize() {
	for _, f := range Fields() {
		if f == FieldID {
			continue
		}
		if p := r.textRef(f); p != nil {
			*p = strings.ToLower(strings.TrimSpace(*p))
		}
	}
	r.ID = strings.TrimSpace(r.ID)
}

func (r *PropertyRecord) textRef(f Field) *string {
	switch f {
	case FieldID:
		return &r.ID
	case FieldDescription:
		return &r.Description
	case FieldStreetAddress:
		return &r.StreetAddress
	case FieldCity:
		return &r.City
	case FieldState:
		return &r.State
	case FieldCounty:
		return &r.County
	case FieldCountry:
		return &r.Country
	case FieldCurrency:
		return &r.Currency
	case FieldLotAreaUnits:
		return &r.LotAreaUnits
	case FieldHomeType:
		return &r.HomeType
	case FieldEvent:
		return &r.Event
	case FieldLevels:
		return &r.Levels
	case FieldDatePosted:
		return &r.DatePostedString
	}
	return nil
}

func (r *PropertyRecord) floatRef(f Field) **float64 {
	switch f {
	case FieldPrice:
		return &r.Price
	case FieldPricePerSquareFoot:
		return &r.PricePerSquareFoot
	case FieldLatitude:
		return &r.Latitude
	case FieldLongitude:
		return &r.Longitude
	}
	return nil
}

func (r *PropertyRecord) intRef(f Field) **int64 {
	switch f {
	case FieldBedrooms:
		return &r.Bedrooms
	case FieldBathrooms:
		return &r.Bathrooms
	case FieldLivingArea:
		return &r.LivingArea
	case FieldBuildingArea:
		return &r.BuildingArea
	case FieldGarageSpaces:
		return &r.GarageSpaces
	case FieldYearBuilt:
		return &r.YearBuilt
	case FieldZipcode:
		return &r.Zipcode
	case FieldStateID:
		return &r.StateID
	case FieldCountyID:
		return &r.CountyID
	case FieldCityID:
		return &r.CityID
	case FieldIsBankOwned:
		return &r.IsBankOwned
	case FieldIsForAuction:
		return &r.IsForAuction
	case FieldParking:
		return &r.Parking
	case FieldHasGarage:
		return &r.HasGarage
	case FieldPool:
		return &r.Pool
	case FieldSpa:
		return &r.Spa
	case FieldIsNewConstruction:
		return &r.IsNewConstruction
	case FieldHasPetsAllowed:
		return &r.HasPetsAllowed
	case FieldTime:
		return &r.Time
	}
	return nil
}

// Closed category sets used when no column statistics are available.
var (
	defaultHomeTypes = []string{"lot", "single_family", "condo", "multi_family", "townhouse", "apartment"}
	defaultEvents    = []string{"listed for sale", "price change", "listing removed", "sold", "listed for rent", "pending sale"}
	defaultLevels    = []string{"0", "1", "2", "3+", "multi", "4", "other", "5+", "1.5", "2+", "2.5"}
)

// OtherLevel is the bucket for level values outside the known set.
const OtherLevel = "other"

// DefaultCategories returns the built-in closed set for a categorical field.
func DefaultCategories(f Field) []string {
	switch f {
	case FieldHomeType:
		return append([]string(nil), defaultHomeTypes...)
	case FieldEvent:
		return append([]string(nil), defaultEvents...)
	case FieldLevels:
		return append([]string(nil), defaultLevels...)
	}
	return nil
}

// SearchResult is a ranked property with its total score and
// the per-field contributions that make up that score.
type SearchResult struct {
	Record    *PropertyRecord
	Score     float32
	Breakdown map[Field]float32
}
