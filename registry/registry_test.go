package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/heymumford/skidbladnir/canonical"
	"github.com/heymumford/skidbladnir/providers/contract"
)

type fakeSourceAdapter struct {
	id string
}

func (f *fakeSourceAdapter) ID() string      { return f.id }
func (f *fakeSourceAdapter) Name() string    { return f.id }
func (f *fakeSourceAdapter) Version() string { return "v1" }
func (f *fakeSourceAdapter) Capabilities() contract.Capabilities {
	return contract.Capabilities{CanBeSource: true}
}
func (f *fakeSourceAdapter) Initialize(ctx context.Context) error     { return nil }
func (f *fakeSourceAdapter) TestConnection(ctx context.Context) error { return nil }
func (f *fakeSourceAdapter) GetMetadata(ctx context.Context) (contract.Metadata, error) {
	return contract.Metadata{}, nil
}
func (f *fakeSourceAdapter) GetProjects(ctx context.Context) ([]canonical.Project, error) {
	return nil, nil
}
func (f *fakeSourceAdapter) GetFolders(ctx context.Context, projectID string) ([]canonical.Folder, error) {
	return nil, nil
}
func (f *fakeSourceAdapter) GetTestCases(ctx context.Context, projectID string, opts contract.ListOptions) (contract.Page[canonical.TestCase], error) {
	return contract.Page[canonical.TestCase]{}, nil
}
func (f *fakeSourceAdapter) GetTestCase(ctx context.Context, id string) (canonical.TestCase, error) {
	return canonical.TestCase{}, nil
}
func (f *fakeSourceAdapter) GetTestCycles(ctx context.Context, projectID string, opts contract.ListOptions) (contract.Page[canonical.TestCycle], error) {
	return contract.Page[canonical.TestCycle]{}, nil
}
func (f *fakeSourceAdapter) GetTestExecutions(ctx context.Context, cycleID string, opts contract.ListOptions) (contract.Page[canonical.TestExecution], error) {
	return contract.Page[canonical.TestExecution]{}, nil
}
func (f *fakeSourceAdapter) GetAttachmentContent(ctx context.Context, id string) ([]byte, error) {
	return nil, nil
}
func (f *fakeSourceAdapter) GetFieldDefinitions(ctx context.Context, entityType canonical.EntityType) ([]canonical.FieldDefinition, error) {
	return nil, nil
}

type fakeBaseAdapter struct {
	id string
}

func (f *fakeBaseAdapter) ID() string      { return f.id }
func (f *fakeBaseAdapter) Name() string    { return f.id }
func (f *fakeBaseAdapter) Version() string { return "v1" }
func (f *fakeBaseAdapter) Capabilities() contract.Capabilities {
	return contract.Capabilities{}
}
func (f *fakeBaseAdapter) Initialize(ctx context.Context) error     { return nil }
func (f *fakeBaseAdapter) TestConnection(ctx context.Context) error { return nil }
func (f *fakeBaseAdapter) GetMetadata(ctx context.Context) (contract.Metadata, error) {
	return contract.Metadata{}, nil
}

func TestRegisterProviderThenGetReturnsIt(t *testing.T) {
	r := New()
	adapter := &fakeSourceAdapter{id: "fake"}
	require.NoError(t, r.RegisterProvider(adapter))

	got, ok := r.Get("fake")
	require.True(t, ok)
	require.Equal(t, adapter, got)
}

func TestRegisterProviderRejectsDuplicateID(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterProvider(&fakeSourceAdapter{id: "fake"}))
	err := r.RegisterProvider(&fakeSourceAdapter{id: "fake"})
	require.Error(t, err)
}

func TestUnregisterOnUnknownIDIsNoOp(t *testing.T) {
	r := New()
	r.Unregister("never-registered")
}

func TestGetSourceProvidersFiltersByCapabilityAndType(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterProvider(&fakeSourceAdapter{id: "source-only"}))
	require.NoError(t, r.RegisterProvider(&fakeBaseAdapter{id: "base-only"}))

	sources := r.GetSourceProviders()
	require.Len(t, sources, 1)
	require.Equal(t, "source-only", sources[0].ID())
}

func TestGetTargetProvidersReturnsNoneWhenNoneDeclareTargetCapability(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterProvider(&fakeSourceAdapter{id: "source-only"}))
	require.Empty(t, r.GetTargetProviders())
}

func TestNewMigrationRunIDProducesDistinctValues(t *testing.T) {
	a := NewMigrationRunID()
	b := NewMigrationRunID()
	require.NotEqual(t, a, b)
	require.NotEmpty(t, a)
}
