package ai

// Keys of an extracted parameter object.
const (
	KeyID            = "id"
	KeyDescription   = "description"
	KeyStreetAddress = "street_address"
	KeyCity          = "city"
	KeyState         = "state"
	KeyCounty        = "county"
	KeyHomeType      = "home_type"
	KeyEvent         = "event"
	KeyLevels        = "levels"
	KeyPrice         = "price"
	KeyPricePerSqft  = "price_per_sqft"
	KeyLivingArea    = "living_area"
	KeyBedrooms      = "bedrooms"
	KeyBathrooms     = "bathrooms"
)

// ParameterKeys lists every key an extractor must return, in prompt order.
var ParameterKeys = []string{
	KeyID,
	KeyDescription,
	KeyStreetAddress,
	KeyCity,
	KeyState,
	KeyCounty,
	KeyHomeType,
	KeyEvent,
	KeyLevels,
	KeyPrice,
	KeyPricePerSqft,
	KeyLivingArea,
	KeyBedrooms,
	KeyBathrooms,
}

// listKeys are the keys whose null value is an empty list.
var listKeys = map[string]bool{
	KeyCity:     true,
	KeyState:    true,
	KeyCounty:   true,
	KeyHomeType: true,
	KeyEvent:    true,
	KeyLevels:   true,
}

// IsListKey reports whether key holds a list of strings.
func IsListKey(key string) bool {
	return listKeys[key]
}

// ExtractedParameters is the raw parameter object produced by a ParameterExtractor.
// Scalar values are string, float64 or nil; list values are []any or []string.
type ExtractedParameters map[string]any

// EmptyParameters returns a parameter object with every key set to its null value.
func EmptyParameters() ExtractedParameters {
	p := make(ExtractedParameters, len(ParameterKeys))
	for _, k := range ParameterKeys {
		if listKeys[k] {
			p[k] = []any{}
		} else {
			p[k] = nil
		}
	}
	return p
}

// FillMissing sets every absent key to its null value and returns the keys
// that were missing.
func (p ExtractedParameters) FillMissing() []string {
	var missing []string
	for _, k := range ParameterKeys {
		if _, ok := p[k]; ok {
			continue
		}
		missing = append(missing, k)
		if listKeys[k] {
			p[k] = []any{}
		} else {
			p[k] = nil
		}
	}
	return missing
}

// Mentioned reports whether any key holds a non-null value.
func (p ExtractedParameters) Mentioned() bool {
	for _, v := range p {
		switch x := v.(type) {
		case nil:
		case []any:
			if len(x) > 0 {
				return true
			}
		case []string:
			if len(x) > 0 {
				return true
			}
		case string:
			if x != "" {
				return true
			}
		default:
			return true
		}
	}
	return false
}

// ExtractionSchema carries the closed value sets an extractor must respect.
// They are rendered into the extraction prompt.
type ExtractionSchema struct {
	Region    string
	States    []string
	HomeTypes []string
	Events    []string
	Levels    []string
}
