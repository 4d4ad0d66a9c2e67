// Package contract defines the Provider Adapter capability contract
// from spec.md §4.11: a Base surface every adapter implements, plus
// optional Source/Target roles an adapter may satisfy. Declaring
// support through the Capabilities struct (a tagged-union-style flag
// set) rather than a class hierarchy lets one vendor package implement
// Source, Target, both, or neither of the optional roles without a
// brittle inheritance chain — the Design Notes ask for exactly this
// shape in place of adapter subclassing.
package contract

import (
	"context"

	"github.com/heymumford/skidbladnir/canonical"
)

// Capabilities declares what an adapter supports, per spec.md §4.11.
type Capabilities struct {
	CanBeSource              bool
	CanBeTarget              bool
	EntityTypes              []canonical.EntityType
	SupportsAttachments      bool
	SupportsExecutionHistory bool
	SupportsTestSteps        bool
	SupportsHierarchy        bool
	SupportsCustomFields     bool
	RateLimiting             RateLimitingCapability
}

// RateLimitingCapability carries the provider-declared defaults a
// registry can seed a Facade with before any config override applies.
type RateLimitingCapability struct {
	MaxRequestsPerMinute  int
	MaxRequestsPerSecond  int
	MaxConcurrentRequests int
}

// Page is the paged-collection result shape from spec.md §4.11.
type Page[T any] struct {
	Items    []T
	Total    int
	Page     int
	PageSize int
}

// ListOptions parameterizes a paged Source listing call.
type ListOptions struct {
	FolderID string
	Page     int
	PageSize int
	Status   string
	StartAt  int
}

// Base is implemented by every provider adapter.
type Base interface {
	ID() string
	Name() string
	Version() string
	Capabilities() Capabilities
	Initialize(ctx context.Context) error
	TestConnection(ctx context.Context) error
	GetMetadata(ctx context.Context) (Metadata, error)
}

// Metadata is the result of a Base.GetMetadata call — provider-declared
// descriptive information surfaced to the (out-of-scope) UI/CLI and to
// the Health Monitor.
type Metadata struct {
	DisplayName string
	Endpoints   []string
	Extra       map[string]interface{}
}

// Source is implemented by adapters that can be a migration's extraction
// side.
type Source interface {
	Base
	GetProjects(ctx context.Context) ([]canonical.Project, error)
	GetFolders(ctx context.Context, projectID string) ([]canonical.Folder, error)
	GetTestCases(ctx context.Context, projectID string, opts ListOptions) (Page[canonical.TestCase], error)
	GetTestCase(ctx context.Context, id string) (canonical.TestCase, error)
	GetTestCycles(ctx context.Context, projectID string, opts ListOptions) (Page[canonical.TestCycle], error)
	GetTestExecutions(ctx context.Context, cycleID string, opts ListOptions) (Page[canonical.TestExecution], error)
	GetAttachmentContent(ctx context.Context, id string) ([]byte, error)
	GetFieldDefinitions(ctx context.Context, entityType canonical.EntityType) ([]canonical.FieldDefinition, error)
}

// Target is implemented by adapters that can be a migration's load side.
// Any method may return an Unsupported-category error when the vendor
// forbids the corresponding write (e.g. schema creation).
type Target interface {
	Base
	CreateFolder(ctx context.Context, projectID string, folder canonical.Folder) (string, error)
	CreateTestCase(ctx context.Context, projectID string, tc canonical.TestCase) (string, error)
	CreateTestSteps(ctx context.Context, testCaseID string, steps []canonical.TestStep) error
	CreateTestCycle(ctx context.Context, projectID string, cycle canonical.TestCycle) (string, error)
	CreateTestExecutions(ctx context.Context, cycleID string, execs []canonical.TestExecution) error
	UploadAttachment(ctx context.Context, entityID string, attachment canonical.Attachment, content []byte) (string, error)
	CreateFieldDefinition(ctx context.Context, def canonical.FieldDefinition) (string, error)
}
