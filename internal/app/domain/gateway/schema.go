package gateway

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"google.golang.org/genai"
)

// Schema pairs the response schema sent to the model with the JSON Schema the
// reply is checked against before decoding. The local check only enforces
// types; missing fields are the normalizer's business.
type Schema struct {
	name      string
	model     *genai.Schema
	validator *gojsonschema.Schema
}

func mustSchema(name string, model *genai.Schema, jsonSchema string) *Schema {
	v, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(jsonSchema))
	if err != nil {
		panic(fmt.Sprintf("gateway: invalid %s schema: %v", name, err))
	}
	return &Schema{name: name, model: model, validator: v}
}

// Validate checks payload against the schema and reports every violation.
func (s *Schema) Validate(payload string) error {
	result, err := s.validator.Validate(gojsonschema.NewStringLoader(payload))
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%s: %s", s.name, strings.Join(msgs, "; "))
}

var museumFields = []string{"name", "city", "country", "lat", "lng", "description", "website", "type", "imageTerm", "highlights"}

// MuseumListSchema describes the reply of both discovery queries.
var MuseumListSchema = mustSchema("museum list",
	&genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name":        {Type: genai.TypeString},
				"city":        {Type: genai.TypeString},
				"country":     {Type: genai.TypeString},
				"lat":         {Type: genai.TypeNumber},
				"lng":         {Type: genai.TypeNumber},
				"description": {Type: genai.TypeString},
				"website":     {Type: genai.TypeString},
				"type":        {Type: genai.TypeString},
				"imageTerm":   {Type: genai.TypeString},
				"highlights":  {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			},
			Required: museumFields,
		},
	},
	`{
		"type": "array",
		"items": {
			"type": "object",
			"properties": {
				"name":        {"type": ["string", "null"]},
				"city":        {"type": ["string", "null"]},
				"country":     {"type": ["string", "null"]},
				"lat":         {"type": ["number", "null"]},
				"lng":         {"type": ["number", "null"]},
				"description": {"type": ["string", "null"]},
				"website":     {"type": ["string", "null"]},
				"type":        {"type": ["string", "null"]},
				"imageTerm":   {"type": ["string", "null"]},
				"highlights":  {"type": ["array", "null"], "items": {"type": "string"}}
			}
		}
	}`)
