package hydrate

import "errors"

var (
	// ErrNoFetcher is reported when a multi-page folder is hydrated without a FetchPage.
	ErrNoFetcher = errors.New("hydrate: no page fetcher configured")

	// ErrEmptyPage is reported when a fetcher returns neither a page nor an error.
	ErrEmptyPage = errors.New("hydrate: fetcher returned no page")
)
