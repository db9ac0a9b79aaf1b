// internal/export/export.go

// Package export writes factory registry listings to CSV or JSON files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/registry"
	"github.com/rovshanmuradov/launchpad/internal/units"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ParseFormat accepts "csv" or "json" in any case.
func ParseFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format ExportFormat
	// SymbolFilter keeps only tokens whose symbol matches, ignoring case.
	SymbolFilter string
	// OnlyReadable drops entries whose ERC-20 details could not be read.
	OnlyReadable bool
	OutputDir    string
}

// Record is one exported registry entry.
type Record struct {
	Index       int    `json:"index"`
	Address     string `json:"address"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    uint8  `json:"decimals"`
	TotalSupply string `json:"total_supply"`
	Error       string `json:"error,omitempty"`
}

func newRecord(e registry.Entry) Record {
	r := Record{
		Index:       e.Index,
		Address:     e.Address.Hex(),
		Name:        e.Name,
		Symbol:      e.Symbol,
		Decimals:    e.Decimals,
		TotalSupply: units.FromBaseUnits(e.TotalSupply, int(e.Decimals)),
	}
	if e.Err != nil {
		r.Error = e.Err.Error()
	}
	return r
}

// CSVHeaders matches the column order of Record.CSV.
func CSVHeaders() []string {
	return []string{"index", "address", "name", "symbol", "decimals", "total_supply", "error"}
}

func (r Record) CSV() []string {
	return []string{
		strconv.Itoa(r.Index),
		r.Address,
		r.Name,
		r.Symbol,
		strconv.Itoa(int(r.Decimals)),
		r.TotalSupply,
		r.Error,
	}
}

// RegistryExporter handles registry export functionality
type RegistryExporter struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewRegistryExporter(logger *zap.Logger) *RegistryExporter {
	return &RegistryExporter{
		logger: logger.Named("export"),
		now:    time.Now,
	}
}

// Export writes the filtered entries in index order and returns the file path.
func (re *RegistryExporter) Export(entries []registry.Entry, options ExportOptions) (string, error) {
	filtered := re.filter(entries, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no tokens match the export criteria")
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Index < filtered[j].Index
	})

	outputPath := filepath.Join(options.OutputDir, re.filename(options))
	if options.OutputDir != "" {
		if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	var err error
	switch options.Format {
	case FormatCSV:
		err = re.exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = re.exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	re.logger.Info("Registry exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func (re *RegistryExporter) filter(entries []registry.Entry, options ExportOptions) []Record {
	var filtered []Record
	for _, e := range entries {
		if options.SymbolFilter != "" && !strings.EqualFold(e.Symbol, options.SymbolFilter) {
			continue
		}
		if options.OnlyReadable && e.Err != nil {
			continue
		}
		filtered = append(filtered, newRecord(e))
	}
	return filtered
}

func (re *RegistryExporter) filename(options ExportOptions) string {
	prefix := "tokens_all"
	if options.SymbolFilter != "" {
		prefix = "tokens_" + strings.ToLower(options.SymbolFilter)
	}
	return fmt.Sprintf("%s_%s.%s", prefix, re.now().Format("20060102_150405"), options.Format)
}

func (re *RegistryExporter) exportToCSV(records []Record, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, r := range records {
		if err := writer.Write(r.CSV()); err != nil {
			return fmt.Errorf("failed to write token %d: %w", r.Index, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (re *RegistryExporter) exportToJSON(records []Record, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime time.Time     `json:"export_time"`
		TokenCount int           `json:"token_count"`
		Tokens     []Record      `json:"tokens"`
		Summary    ExportSummary `json:"summary"`
	}{
		ExportTime: re.now().UTC(),
		TokenCount: len(records),
		Tokens:     records,
		Summary:    Summarize(records),
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ExportSummary contains summary statistics for exported tokens
type ExportSummary struct {
	TotalTokens   int `json:"total_tokens"`
	Readable      int `json:"readable"`
	Unreadable    int `json:"unreadable"`
	UniqueSymbols int `json:"unique_symbols"`
	FirstIndex    int `json:"first_index"`
	LastIndex     int `json:"last_index"`
}

// Summarize expects records in index order.
func Summarize(records []Record) ExportSummary {
	summary := ExportSummary{TotalTokens: len(records)}
	if len(records) == 0 {
		return summary
	}
	summary.FirstIndex = records[0].Index
	summary.LastIndex = records[len(records)-1].Index

	symbols := make(map[string]bool)
	for _, r := range records {
		if r.Error != "" {
			summary.Unreadable++
			continue
		}
		summary.Readable++
		symbols[strings.ToUpper(r.Symbol)] = true
	}
	summary.UniqueSymbols = len(symbols)
	return summary
}
