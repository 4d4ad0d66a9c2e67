package generic

import (
	"context"
	"os"
	"strings"

	"github.com/heymumford/skidbladnir/apierrors"
	"github.com/heymumford/skidbladnir/providers/contract"
)

// Adapter is a discovery-only provider: it never moves test assets,
// so Capabilities declares CanBeSource/CanBeTarget false and it
// implements only contract.Base. A migration operator points it at a
// vendor's bundled OpenAPI document or Postman collection to confirm
// the configured base URL actually appears in the bundle before
// wiring up the vendor-specific adapter.
type Adapter struct {
	bundlePath string
	baseURL    string
	bundle     *Bundle
}

// New builds a generic discovery Adapter over a bundle file on disk.
func New(bundlePath, baseURL string) *Adapter {
	return &Adapter{bundlePath: bundlePath, baseURL: baseURL}
}

func (a *Adapter) ID() string      { return "generic" }
func (a *Adapter) Name() string    { return "Generic OpenAPI/Postman Discovery" }
func (a *Adapter) Version() string { return "v1" }

func (a *Adapter) Capabilities() contract.Capabilities {
	return contract.Capabilities{CanBeSource: false, CanBeTarget: false}
}

// Initialize reads and parses the bundle file once, up front, so
// TestConnection and GetMetadata never re-read disk.
func (a *Adapter) Initialize(ctx context.Context) error {
	content, err := os.ReadFile(a.bundlePath)
	if err != nil {
		return apierrors.Wrap(a.ID(), apierrors.NotFound, "bundle file not readable", err)
	}
	bundle, err := Parse(content)
	if err != nil {
		return apierrors.Wrap(a.ID(), apierrors.Validation, "bundle not recognized as openapi or postman", err)
	}
	a.bundle = bundle
	return nil
}

// TestConnection succeeds when the configured base URL occurs within at
// least one discovered endpoint path, or begins with one; an empty base
// URL always succeeds. This is a bundle cross-check, not a live network
// call.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if a.bundle == nil {
		return apierrors.New(a.ID(), apierrors.Validation, "bundle not loaded, call Initialize first")
	}
	if a.baseURL == "" {
		return nil
	}
	for _, e := range a.bundle.Endpoints {
		if strings.Contains(e.Path, a.baseURL) || strings.HasPrefix(a.baseURL, e.Path) {
			return nil
		}
	}
	return apierrors.New(a.ID(), apierrors.Validation, "configured base url matches no endpoint declared in the bundle")
}

func (a *Adapter) GetMetadata(ctx context.Context) (contract.Metadata, error) {
	if a.bundle == nil {
		return contract.Metadata{}, apierrors.New(a.ID(), apierrors.Validation, "bundle not loaded, call Initialize first")
	}
	endpoints := make([]string, 0, len(a.bundle.Endpoints))
	for _, e := range a.bundle.Endpoints {
		endpoints = append(endpoints, e.Method+" "+e.Path)
	}
	return contract.Metadata{
		DisplayName: "Generic OpenAPI/Postman Discovery",
		Endpoints:   endpoints,
		Extra: map[string]interface{}{
			"bundleFormat":  a.bundle.Format,
			"bundleVersion": a.bundle.Version,
		},
	}, nil
}
