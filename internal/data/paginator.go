// Paginator walks a Nightscout collection backwards in time to exhaustion.
// The API has no server-side cursors; each page is requested with a
// "timestamp strictly less than the oldest timestamp seen so far" filter,
// relying on the server contract that pages come back newest-first. Boundary
// records are repeated across adjacent pages by design, so the merged set is
// deduplicated by full-record structural equality at the end.
package data

import (
	"context"
	"fmt"
	"log"

	"github.com/claresloggett/nightscout-backup/internal/model"
)

// PageFetcher issues one bounded request against a named collection.
// before == "" means unconstrained (first page). An empty result signals
// exhaustion; transport errors propagate untouched.
type PageFetcher interface {
	FetchPage(ctx context.Context, collection, dateField string, count int, before string) ([]*model.Record, error)
}

type Paginator struct {
	fetcher    PageFetcher
	batchSize  int
	maxRecords int // 0 = unlimited; soft cutoff, the final page is kept whole
	logger     *log.Logger
}

func NewPaginator(fetcher PageFetcher, batchSize, maxRecords int, logger *log.Logger) *Paginator {
	return &Paginator{
		fetcher:    fetcher,
		batchSize:  batchSize,
		maxRecords: maxRecords,
		logger:     logger,
	}
}

// Paginate retrieves the complete collection and returns the deduplicated
// merged set, newest-first. An empty first page returns ErrNoData.
func (p *Paginator) Paginate(ctx context.Context, collection, dateField string) ([]*model.Record, error) {
	page, err := p.fetcher.FetchPage(ctx, collection, dateField, p.batchSize, "")
	if err != nil {
		return nil, err
	}
	if len(page) == 0 {
		return nil, fmt.Errorf("%s: %w", collection, ErrNoData)
	}
	p.logPage(collection, dateField, page)

	all := page
	total := len(page)
	cursor, err := oldestTimestamp(page, dateField)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", collection, err)
	}

	for {
		page, err = p.fetcher.FetchPage(ctx, collection, dateField, p.batchSize, cursor)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		p.logPage(collection, dateField, page)

		// Guard against the upstream ordering contract being violated: the
		// cursor must strictly decrease every iteration, or the same page
		// would be requested forever. A repeated boundary record at the
		// cursor itself is expected and handled by dedup.
		next, err := oldestTimestamp(page, dateField)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", collection, err)
		}
		if next >= cursor {
			return nil, fmt.Errorf("%s: page oldest %s %q is not below cursor %q — aborting to avoid an infinite loop",
				collection, dateField, next, cursor)
		}

		all = append(all, page...)
		total += len(page)
		cursor = next

		if p.maxRecords > 0 && total >= p.maxRecords {
			p.logger.Printf("[%s] max records exceeded (%d >= %d), stopping", collection, total, p.maxRecords)
			break
		}
	}

	merged := Deduplicate(all)
	p.logger.Printf("[%s] merged %d records into %d after dedup", collection, total, len(merged))
	return merged, nil
}

// Deduplicate removes exact structural duplicates, keeping first occurrence
// order. Records that merely share a timestamp but differ in other fields are
// distinct and retained.
func Deduplicate(records []*model.Record) []*model.Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]*model.Record, 0, len(records))
	for _, r := range records {
		fp := r.Fingerprint()
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, r)
	}
	return out
}

// oldestTimestamp is the last element's timestamp, given newest-first pages.
func oldestTimestamp(page []*model.Record, dateField string) (string, error) {
	ts, ok := page[len(page)-1].StringField(dateField)
	if !ok {
		return "", fmt.Errorf("record missing %s field required for pagination", dateField)
	}
	return ts, nil
}

func (p *Paginator) logPage(collection, dateField string, page []*model.Record) {
	newest, _ := page[0].StringField(dateField)
	oldest, _ := page[len(page)-1].StringField(dateField)
	p.logger.Printf("[%s] retrieved %d records %s - %s", collection, len(page), oldest, newest)
}
