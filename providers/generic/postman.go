package generic

import (
	"fmt"
	"strings"

	postman "github.com/rbretecher/go-postman-collection"
)

// PostmanParser reads Postman Collection v2.1 exports.
type PostmanParser struct{}

func (p *PostmanParser) DetectFormat(content []byte) bool {
	s := string(content)
	return strings.Contains(s, "_postman_id") || (strings.Contains(s, "\"info\"") && strings.Contains(s, "schema"))
}

func (p *PostmanParser) Parse(content []byte) (*Bundle, error) {
	collection, err := postman.ParseCollection(strings.NewReader(string(content)))
	if err != nil {
		return nil, fmt.Errorf("generic: parsing postman collection: %w", err)
	}

	bundle := &Bundle{Format: "postman2.1", Version: collection.Info.Version}
	p.collect(collection.Items, bundle)
	return bundle, nil
}

func (p *PostmanParser) collect(items []*postman.Items, bundle *Bundle) {
	for _, item := range items {
		if item.IsGroup() {
			p.collect(item.Items, bundle)
			continue
		}
		if item.Request == nil {
			continue
		}
		req := item.Request
		endpoint := Endpoint{Method: string(req.Method), Summary: item.Name, Description: item.Description, HasBody: req.Body != nil}
		if req.URL != nil {
			endpoint.Path = req.URL.Raw
			for _, q := range req.URL.Query {
				endpoint.Parameters = append(endpoint.Parameters, Parameter{Name: q.Key, In: "query", Type: "string"})
			}
		}
		for _, h := range req.Header {
			endpoint.Parameters = append(endpoint.Parameters, Parameter{Name: h.Key, In: "header", Type: "string"})
		}
		bundle.Endpoints = append(bundle.Endpoints, endpoint)
	}
}
