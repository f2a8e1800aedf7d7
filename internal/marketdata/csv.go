package marketdata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"oil-forecast/internal/domain"
)

// CSVSource reads "date,close" files, one per symbol.
// A header row is optional. Blank, "null" and "nan" closes are skipped.
type CSVSource struct {
	paths map[string]string
}

// NewCSVSource maps each symbol to its file.
func NewCSVSource(paths map[string]string) *CSVSource {
	return &CSVSource{paths: paths}
}

// FetchDaily implements Source.
func (s *CSVSource) FetchDaily(_ context.Context, symbol string, start time.Time) ([]domain.Quote, error) {
	path, ok := s.paths[symbol]
	if !ok || path == "" {
		return nil, fmt.Errorf("%w: no csv file for %s", ErrUnknownSymbol, symbol)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	quotes, err := ReadCSV(f, symbol)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return sinceDate(dedupeLastWins(quotes), start), nil
}

// ReadCSV parses "date,close" rows for symbol.
func ReadCSV(r io.Reader, symbol string) ([]domain.Quote, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var quotes []domain.Quote
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("line %d: want 2 fields, got %d", line, len(rec))
		}

		rawDate, rawClose := strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1])
		if line == 1 && strings.EqualFold(rawDate, "date") {
			continue
		}
		switch strings.ToLower(rawClose) {
		case "", "null", "nan":
			continue
		}

		date, err := domain.ParseDate(rawDate)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		closePrice, err := decimal.NewFromString(rawClose)
		if err != nil {
			return nil, fmt.Errorf("line %d: close %q: %w", line, rawClose, err)
		}
		quotes = append(quotes, domain.Quote{Symbol: symbol, Date: date, Close: closePrice})
	}
	return quotes, nil
}
