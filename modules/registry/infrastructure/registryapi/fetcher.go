package registryapi

import (
	"context"

	"github.com/sirupsen/logrus"
)

// PageGetter is the single-request surface Fetcher builds on.
type PageGetter interface {
	GetPage(ctx context.Context, page int) (*Page, error)
}

// Fetcher walks the paginated collection in bounded segments.
type Fetcher struct {
	client PageGetter
	// pageLimit is the last page that will be requested; 0 means unlimited.
	pageLimit int
	logger    logrus.FieldLogger
}

func NewFetcher(client PageGetter, pageLimit int, logger logrus.FieldLogger) *Fetcher {
	return &Fetcher{
		client:    client,
		pageLimit: pageLimit,
		logger:    logger,
	}
}

// FetchSegment accumulates records page by page starting at startPage until
// the item cap is reached (maxItems, 0 = unlimited), the source reports no
// further page, or the configured page limit is hit.
//
// The returned page number is the resumption checkpoint: fetching continues
// from exactly there without re-reading or skipping anything. nil means the
// collection is exhausted. On error the checkpoint is the failing page, and
// records accumulated before the failure are still returned so the caller can
// finish processing them before resuming.
func (f *Fetcher) FetchSegment(ctx context.Context, startPage, maxItems int) ([]Record, *int, error) {
	var items []Record
	page := startPage

	for {
		if f.pageLimit > 0 && page > f.pageLimit {
			f.logger.WithFields(logrus.Fields{
				"page_limit": f.pageLimit,
				"next_page":  page,
			}).Info("configured page limit reached, stopping fetch")
			return items, nil, nil
		}

		resp, err := f.client.GetPage(ctx, page)
		if err != nil {
			checkpoint := page
			return items, &checkpoint, err
		}

		items = append(items, resp.Members...)
		f.logger.WithFields(logrus.Fields{
			"page":  page,
			"count": len(resp.Members),
			"total": len(items),
		}).Info("fetched registry page")

		// An empty member list on a page that still advertises a next link is
		// not end-of-data.
		if !resp.HasNext() {
			return items, nil, nil
		}
		page++

		if maxItems > 0 && len(items) >= maxItems {
			checkpoint := page
			return items, &checkpoint, nil
		}
	}
}
