// Package generic implements the supplemented OpenAPI/Postman-bundle
// discovery provider: some vendors (HP ALM, Visure, and ad-hoc REST
// test-management tools) ship a bundled OpenAPI document or Postman
// collection describing their REST surface instead of hand-written
// docs. This package parses that bundle purely to populate
// GetMetadata's endpoint inventory and to cross-check a configured
// base URL against the declared endpoint paths during
// TestConnection. It never drives field mapping — that still goes
// through the fixed enum tables and FieldType coercion every other
// vendor package uses.
package generic

// Endpoint is one operation discovered in a bundle.
type Endpoint struct {
	Method      string
	Path        string
	Summary     string
	Description string
	Parameters  []Parameter
	HasBody     bool
}

// Parameter is one request parameter discovered in a bundle.
type Parameter struct {
	Name     string
	In       string // query, path, header, etc.
	Required bool
	Type     string
}

// Bundle is the parsed, format-neutral result of reading an API
// description document.
type Bundle struct {
	Format    string // "openapi3", "postman2.1"
	Version   string
	Endpoints []Endpoint
}

// BundleParser detects and parses one bundle format.
type BundleParser interface {
	DetectFormat(content []byte) bool
	Parse(content []byte) (*Bundle, error)
}

// Parse tries each known parser in turn and returns the first bundle
// whose parser claims the content.
func Parse(content []byte) (*Bundle, error) {
	parsers := []BundleParser{&OpenAPIParser{}, &PostmanParser{}}
	for _, p := range parsers {
		if p.DetectFormat(content) {
			return p.Parse(content)
		}
	}
	return nil, errUnrecognizedFormat
}
