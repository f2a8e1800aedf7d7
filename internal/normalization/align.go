package normalization

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"oil-forecast/internal/domain"
)

// Align inner-joins the Brent and WTI series on date.
// Quotes are bucketed by calendar date; when a series repeats a date the
// later quote wins. The result is sorted ascending by date.
func Align(brent, wti []domain.Quote) (*domain.AlignedSeries, error) {
	if len(brent) == 0 {
		return nil, fmt.Errorf("%w: brent series is empty", ErrNoData)
	}
	if len(wti) == 0 {
		return nil, fmt.Errorf("%w: wti series is empty", ErrNoData)
	}

	brentByDate := indexByDate(brent)
	wtiByDate := indexByDate(wti)

	points := make([]domain.PricePoint, 0, min(len(brentByDate), len(wtiByDate)))
	for key, b := range brentByDate {
		w, ok := wtiByDate[key]
		if !ok {
			continue
		}
		points = append(points, domain.PricePoint{
			Date:  b.date,
			Brent: b.close,
			WTI:   w.close,
		})
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %d brent and %d wti dates", ErrNoOverlap, len(brentByDate), len(wtiByDate))
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	return domain.NewAlignedSeries(points), nil
}

type datedClose struct {
	date  time.Time
	close decimal.Decimal
}

// indexByDate keys quotes by their YYYY-MM-DD date; later quotes overwrite earlier ones.
func indexByDate(quotes []domain.Quote) map[string]datedClose {
	byDate := make(map[string]datedClose, len(quotes))
	for _, q := range quotes {
		d := domain.DateOf(q.Date)
		byDate[d.Format(domain.DateLayout)] = datedClose{date: d, close: q.Close}
	}
	return byDate
}
