package llm

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema reflects T into a strict structured-output JSON schema:
// every object closes additionalProperties and requires all its properties.
func GenerateSchema[T any]() map[string]interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	obj, err := schemaToMap(schema)
	if err != nil {
		panic(err)
	}
	delete(obj, "$schema")
	delete(obj, "$id")
	makeStrict(obj)
	return obj
}

func schemaToMap(schema *jsonschema.Schema) (map[string]interface{}, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func makeStrict(schema map[string]interface{}) {
	props, _ := schema["properties"].(map[string]interface{})
	if t, ok := schema["type"].(string); ok && t == "object" {
		schema["additionalProperties"] = false
		if len(props) > 0 {
			required := make([]interface{}, 0, len(props))
			for name := range props {
				required = append(required, name)
			}
			schema["required"] = required
		}
	}
	for _, p := range props {
		if pm, ok := p.(map[string]interface{}); ok {
			makeStrict(pm)
		}
	}
	if items, ok := schema["items"].(map[string]interface{}); ok {
		makeStrict(items)
	}
}
