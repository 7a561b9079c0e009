package document

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager(t *testing.T) (*Manager, string, string) {
	t.Helper()
	intake := filepath.Join(t.TempDir(), "intake")
	archive := filepath.Join(t.TempDir(), "archive")
	return NewManagerWithRoots(zap.NewNop(), intake, archive), intake, archive
}

func writeScan(t *testing.T, dir, name string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 test"), 0o644))
	return path
}

func testLot(certPath string) LotInfo {
	return LotInfo{
		Grade:             "08Х18Н10Т (ГОСТ 5632-2014)",
		Shape:             "круг",
		Size:              "ф12",
		MeltNumber:        "П123",
		CertificateNumber: "456",
		CertificateDate:   "12.05.2024",
		Supplier:          "Северсталь",
		OrderNumber:       "ORD-77",
		CertificatePath:   certPath,
	}
}

func TestFileIntake(t *testing.T) {
	m, intake, _ := newTestManager(t)
	scan := writeScan(t, t.TempDir(), "scan.pdf")

	path, err := m.FileIntake(context.Background(), scan, testLot(""))
	require.NoError(t, err)
	assert.Equal(t, intake, filepath.Dir(path))
	assert.FileExists(t, path)

	// Source remains untouched; intake owns a copy.
	assert.FileExists(t, scan)
}

func TestFileIntakeMissingSource(t *testing.T) {
	m, _, _ := newTestManager(t)

	_, err := m.FileIntake(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), testLot(""))
	assert.ErrorIs(t, err, ErrSourceUnreadable)
}

func TestArchiveMovesIntoBothTrees(t *testing.T) {
	m, _, archive := newTestManager(t)
	scan := writeScan(t, t.TempDir(), "scan.pdf")

	intakePath, err := m.FileIntake(context.Background(), scan, testLot(""))
	require.NoError(t, err)

	lot := testLot(intakePath)
	canonical, err := m.Archive(context.Background(), lot)
	require.NoError(t, err)

	assert.Contains(t, canonical, filepath.Join(archive, "by-order", "ORD-77"))
	assert.FileExists(t, canonical)

	gradeCopy := filepath.Join(archive, "by-grade", "08Х18Н10Т", "ф12 круг", filepath.Base(canonical))
	assert.FileExists(t, gradeCopy)

	// Intake copy is gone once filed.
	assert.NoFileExists(t, intakePath)
}

func TestArchiveWithoutOrderUsesNoOrderBucket(t *testing.T) {
	m, _, archive := newTestManager(t)
	scan := writeScan(t, t.TempDir(), "scan.pdf")

	lot := testLot("")
	lot.OrderNumber = ""
	intakePath, err := m.FileIntake(context.Background(), scan, lot)
	require.NoError(t, err)

	lot.CertificatePath = intakePath
	canonical, err := m.Archive(context.Background(), lot)
	require.NoError(t, err)
	assert.Contains(t, canonical, filepath.Join(archive, "by-order", "no-order"))
}

func TestArchiveMissingArtifact(t *testing.T) {
	m, _, _ := newTestManager(t)

	lot := testLot(filepath.Join(t.TempDir(), "vanished.pdf"))
	_, err := m.Archive(context.Background(), lot)
	assert.ErrorIs(t, err, ErrArtifactMissing)
}

func TestSearchCriteriaAreANDed(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	archiveLot := func(lot LotInfo) {
		scan := writeScan(t, t.TempDir(), "scan.pdf")
		intakePath, err := m.FileIntake(ctx, scan, lot)
		require.NoError(t, err)
		lot.CertificatePath = intakePath
		_, err = m.Archive(ctx, lot)
		require.NoError(t, err)
	}

	first := testLot("")
	archiveLot(first)

	second := testLot("")
	second.Grade = "09Г2С"
	second.MeltNumber = "М999"
	second.OrderNumber = "ORD-88"
	archiveLot(second)

	all, err := m.Search(ctx, SearchCriteria{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byGrade, err := m.Search(ctx, SearchCriteria{Grade: "08Х18Н10Т (ГОСТ 5632-2014)"})
	require.NoError(t, err)
	require.Len(t, byGrade, 1)

	byMeltAndOrder, err := m.Search(ctx, SearchCriteria{Melt: "М999", OrderNumber: "ORD-88"})
	require.NoError(t, err)
	assert.Len(t, byMeltAndOrder, 1)

	conflicting, err := m.Search(ctx, SearchCriteria{Grade: "09Г2С", OrderNumber: "ORD-77"})
	require.NoError(t, err)
	assert.Empty(t, conflicting)
}

// Identical criteria over an unchanged tree return the identical result set.
func TestSearchIdempotent(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	scan := writeScan(t, t.TempDir(), "scan.pdf")
	intakePath, err := m.FileIntake(ctx, scan, testLot(""))
	require.NoError(t, err)
	lot := testLot(intakePath)
	_, err = m.Archive(ctx, lot)
	require.NoError(t, err)

	criteria := SearchCriteria{Shape: "круг"}
	first, err := m.Search(ctx, criteria)
	require.NoError(t, err)
	second, err := m.Search(ctx, criteria)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, 1)
}

func TestSearchEmptyArchive(t *testing.T) {
	m, _, _ := newTestManager(t)

	results, err := m.Search(context.Background(), SearchCriteria{Text: "anything"})
	require.NoError(t, err)
	assert.Empty(t, results)
}
