package generic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pb33f/libopenapi"
	validator "github.com/pb33f/libopenapi/datamodel/high/base"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
)

var errUnrecognizedFormat = errors.New("generic: content is neither an OpenAPI document nor a Postman collection")

// OpenAPIParser reads OpenAPI 3.x documents.
type OpenAPIParser struct{}

func (p *OpenAPIParser) DetectFormat(content []byte) bool {
	s := string(content)
	return strings.Contains(s, "openapi") || strings.Contains(s, "swagger")
}

func (p *OpenAPIParser) Parse(content []byte) (*Bundle, error) {
	document, err := libopenapi.NewDocument(content)
	if err != nil {
		return nil, fmt.Errorf("generic: parsing openapi document: %w", err)
	}
	model, err := document.BuildV3Model()
	if err != nil {
		return nil, fmt.Errorf("generic: building openapi v3 model: %w", err)
	}

	bundle := &Bundle{Format: "openapi3", Version: model.Model.Info.Version}

	for pair := model.Model.Paths.PathItems.First(); pair != nil; pair = pair.Next() {
		path := pair.Key()
		item := pair.Value()

		ops := map[string]*v3.Operation{
			"GET": item.Get, "POST": item.Post, "PUT": item.Put,
			"DELETE": item.Delete, "PATCH": item.Patch,
		}
		for method, op := range ops {
			if op == nil {
				continue
			}
			endpoint := Endpoint{Method: method, Path: path, Summary: op.Summary, Description: op.Description, HasBody: op.RequestBody != nil}
			for _, param := range op.Parameters {
				endpoint.Parameters = append(endpoint.Parameters, Parameter{
					Name: param.Name, In: param.In,
					Required: param.Required != nil && *param.Required,
					Type:     extractType(param.Schema),
				})
			}
			bundle.Endpoints = append(bundle.Endpoints, endpoint)
		}
	}
	return bundle, nil
}

func extractType(schema *validator.SchemaProxy) string {
	if schema == nil || schema.Schema() == nil {
		return "unknown"
	}
	s := schema.Schema()
	if len(s.Type) > 0 {
		return s.Type[0]
	}
	return "object"
}
