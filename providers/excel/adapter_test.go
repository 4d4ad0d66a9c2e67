package excel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/heymumford/skidbladnir/canonical"
	"github.com/heymumford/skidbladnir/providers/contract"
)

func TestGetTestCasesReadsExistingExport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.csv")
	content := "ID,Title,Description,Precondition,Status,Priority,Folder,Steps,Created Date\n" +
		"1,Login works,,,Approved,High,,,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	a := New(path, nil)
	page, err := a.GetTestCases(context.Background(), "export", contract.ListOptions{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "Login works", page.Items[0].Title)
	require.Equal(t, canonical.StatusApproved, page.Items[0].Status)
}

func TestGetTestCasesOnMissingFileReturnsEmptyNotError(t *testing.T) {
	dir := t.TempDir()
	a := New(filepath.Join(dir, "missing.csv"), nil)
	page, err := a.GetTestCases(context.Background(), "export", contract.ListOptions{})
	require.NoError(t, err)
	require.Empty(t, page.Items)
}

func TestCreateTestCaseThenGetTestCaseRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.csv")
	a := New(path, nil)

	tc := canonical.TestCase{ID: "99", Title: "New case", Status: canonical.StatusDraft, Priority: canonical.PriorityLow}
	id, err := a.CreateTestCase(context.Background(), "export", tc)
	require.NoError(t, err)
	require.Equal(t, "99", id)

	back, err := a.GetTestCase(context.Background(), "99")
	require.NoError(t, err)
	require.Equal(t, "New case", back.Title)
}

func TestGetTestCaseRejectsEmptyID(t *testing.T) {
	a := New("unused.csv", nil)
	_, err := a.GetTestCase(context.Background(), "")
	require.Error(t, err)
}

func TestCreateFolderReturnsUnsupported(t *testing.T) {
	a := New("unused.csv", nil)
	_, err := a.CreateFolder(context.Background(), "export", canonical.Folder{Name: "x"})
	require.Error(t, err)
}

func TestGetTestCyclesReturnsEmptyPageNotError(t *testing.T) {
	a := New("unused.csv", nil)
	page, err := a.GetTestCycles(context.Background(), "export", contract.ListOptions{})
	require.NoError(t, err)
	require.Empty(t, page.Items)
}

func TestCapabilitiesDeclareNoHierarchyOrAttachments(t *testing.T) {
	a := New("unused.csv", nil)
	caps := a.Capabilities()
	require.False(t, caps.SupportsHierarchy)
	require.False(t, caps.SupportsAttachments)
}
