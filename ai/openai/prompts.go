package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/poiesic/homesearch/ai"
)

const extractionPromptTemplate = `You translate real-estate search requests into search parameters and return them as JSON.

The listings come from %s. Every listing has a free-text description, a street address,
a city, a state (two-letter lowercase code), a county, a home type, the latest listing event,
the number of levels, a price in US dollars, a price per square foot, a living area in
square feet, a number of bedrooms and a number of bathrooms.

Output ONLY valid JSON. Do not include any preamble, explanation, greeting, or acknowledgment.
Start your response directly with the opening brace { and end with the closing brace }.
Your output must contain exactly these keys:

%s

Rules:
- Fill a key only when the request explicitly mentions it. Otherwise leave it null (scalars) or [] (lists).
- Do not invent values. Do not infer a state or county from a city.
- city, state, county, home_type, event and levels are lists of lowercase strings.
- state values are two-letter lowercase codes: %s.
- home_type values must be one of: %s.
- event values must be one of: %s.
- levels values must be one of: %s.
- price, price_per_sqft, living_area, bedrooms and bathrooms hold the phrase the user wrote, copied
  with its qualifier and unit, e.g. "under 500k", "at least 3", "between 400k and 600k",
  "around 2000", "100 square meters". Do not convert units and do not compute ranges yourself.
- description holds the remaining free-text wishes (features, style, views), or null if there are none.
- street_address holds a street address only if one is given.
- id holds a listing id only if one is given.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example (exact value):
Input: "3 bedroom house in atlanta"
Output:
%s

Example (ceiling):
Input: "condos under 500k in oakland"
Output:
%s

Example (floor):
Input: "at least 2 bathrooms, pending sales only"
Output:
%s

Example (range):
Input: "townhouses between 400k and 600k in fulton county georgia"
Output:
%s

Example (approximate):
Input: "around 2000 sq ft with a big backyard"
Output:
%s

Example (unit conversion is left to the caller):
Input: "100 square meters apartment in san diego for rent"
Output:
%s

Example (features go to description):
Input: "condos in san francisco with pool"
Output:
%s`

// promptExample is one worked example rendered into the system prompt.
type promptExample map[string]any

var promptExamples = []promptExample{
	{ai.KeyCity: []string{"atlanta"}, ai.KeyHomeType: []string{"single_family"}, ai.KeyBedrooms: "3"},
	{ai.KeyCity: []string{"oakland"}, ai.KeyHomeType: []string{"condo"}, ai.KeyPrice: "under 500k"},
	{ai.KeyEvent: []string{"pending sale"}, ai.KeyBathrooms: "at least 2"},
	{ai.KeyCounty: []string{"fulton"}, ai.KeyState: []string{"ga"}, ai.KeyHomeType: []string{"townhouse"}, ai.KeyPrice: "between 400k and 600k"},
	{ai.KeyLivingArea: "around 2000", ai.KeyDescription: "big backyard"},
	{ai.KeyCity: []string{"san diego"}, ai.KeyHomeType: []string{"apartment"}, ai.KeyEvent: []string{"listed for rent"}, ai.KeyLivingArea: "100 square meters"},
	{ai.KeyCity: []string{"san francisco"}, ai.KeyHomeType: []string{"condo"}, ai.KeyDescription: "pool"},
}

// renderParameters renders a parameter object with every key present, in
// ParameterKeys order, one key per line.
func renderParameters(values map[string]any) string {
	var b strings.Builder
	b.WriteString("{\n")
	for i, k := range ai.ParameterKeys {
		v, ok := values[k]
		if !ok {
			if ai.IsListKey(k) {
				v = []string{}
			} else {
				v = nil
			}
		}
		raw, _ := json.Marshal(v)
		fmt.Fprintf(&b, "  %q: %s", k, raw)
		if i < len(ai.ParameterKeys)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}

func joinOrAny(values []string) string {
	if len(values) == 0 {
		return "any value"
	}
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, ", ")
}

// buildSystemPrompt creates the system prompt with the allowed values embedded.
func buildSystemPrompt(schema ai.ExtractionSchema) string {
	region := schema.Region
	if region == "" {
		region = "California and Georgia"
	}
	args := []any{
		region,
		renderParameters(nil),
		joinOrAny(schema.States),
		joinOrAny(schema.HomeTypes),
		joinOrAny(schema.Events),
		joinOrAny(schema.Levels),
	}
	for _, ex := range promptExamples {
		args = append(args, renderParameters(ex))
	}
	return fmt.Sprintf(extractionPromptTemplate, args...)
}
