package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/registry"
)

func testEntries() []registry.Entry {
	return []registry.Entry{
		{Index: 2, Address: common.HexToAddress("0x1002"), Name: "Moon Coin", Symbol: "MOON", Decimals: 18,
			TotalSupply: new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(1e18))},
		{Index: 0, Address: common.HexToAddress("0x1000"), Name: "Dog", Symbol: "DOG", Decimals: 6,
			TotalSupply: big.NewInt(1_500_000)},
		{Index: 1, Address: common.HexToAddress("0x1001"), TotalSupply: new(big.Int),
			Err: errors.New("symbol: execution reverted")},
	}
}

func newTestExporter() *RegistryExporter {
	re := NewRegistryExporter(zap.NewNop())
	re.now = func() time.Time { return time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC) }
	return re
}

func TestExportCSV(t *testing.T) {
	dir := t.TempDir()
	path, err := newTestExporter().Export(testEntries(), ExportOptions{Format: FormatCSV, OutputDir: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "tokens_all_20260301_123000.csv"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 4)
	assert.Equal(t, CSVHeaders(), rows[0])
	assert.Equal(t, []string{"0", common.HexToAddress("0x1000").Hex(), "Dog", "DOG", "6", "1.5", ""}, rows[1])
	assert.Equal(t, "symbol: execution reverted", rows[2][6])
	assert.Equal(t, "1000000", rows[3][5])
}

func TestExportJSON(t *testing.T) {
	dir := t.TempDir()
	path, err := newTestExporter().Export(testEntries(), ExportOptions{Format: FormatJSON, OutputDir: dir, OnlyReadable: true})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got struct {
		TokenCount int           `json:"token_count"`
		Tokens     []Record      `json:"tokens"`
		Summary    ExportSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, 2, got.TokenCount)
	assert.Equal(t, "DOG", got.Tokens[0].Symbol)
	assert.Equal(t, ExportSummary{TotalTokens: 2, Readable: 2, UniqueSymbols: 2, FirstIndex: 0, LastIndex: 2}, got.Summary)
}

func TestExportSymbolFilter(t *testing.T) {
	dir := t.TempDir()
	path, err := newTestExporter().Export(testEntries(), ExportOptions{Format: FormatCSV, OutputDir: dir, SymbolFilter: "moon"})
	require.NoError(t, err)
	assert.Equal(t, "tokens_moon_20260301_123000.csv", filepath.Base(path))

	_, err = newTestExporter().Export(testEntries(), ExportOptions{Format: FormatCSV, OutputDir: dir, SymbolFilter: "NOPE"})
	assert.ErrorContains(t, err, "no tokens match")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestSummarizeCountsUnreadable(t *testing.T) {
	var records []Record
	for _, e := range testEntries() {
		records = append(records, newRecord(e))
	}
	s := Summarize(records)
	assert.Equal(t, 3, s.TotalTokens)
	assert.Equal(t, 1, s.Unreadable)
	assert.Equal(t, 2, s.UniqueSymbols)
}
