package main

import "errors"

// Notice identifies a transient user-visible message raised by a state
// transition. The wording lives in the presentation layer.
type Notice int

const (
	NoticeNone Notice = iota
	NoticeConfigureToken
	NoticeFetchFailed
	NoticeEndOfResults
)

// FetchRequest is an instruction to the host: issue this fetch and feed
// the outcome back through OnFetchDone with the same Seq.
type FetchRequest struct {
	Seq      int
	Query    string
	Page     int
	PageSize int
}

// FetchDone carries a completed fetch back into the state. Err and Images
// are mutually exclusive.
type FetchDone struct {
	Seq    int
	Images []ImageRecord
	Err    error
}

// SearchState is the whole search/pagination state for one command run.
// Transitions are value-in value-out and do no I/O; the host performs the
// FetchRequests they hand back. Each request carries a sequence number,
// and completions whose number is no longer the in-flight one are dropped,
// so a stale response can never overwrite a fresher result set.
type SearchState struct {
	RawInput       string
	CommittedQuery string
	Page           int
	Results        []ImageRecord
	Loading        bool
	Notice         Notice

	PageSize int

	seq       int
	inFlight  int // seq awaited, 0 when idle
	fetchPage int // page the in-flight fetch targets
	exhausted bool
	primed    bool
}

func NewSearchState(pageSize int) SearchState {
	return SearchState{
		Page:     1,
		Results:  []ImageRecord{},
		PageSize: pageSize,
	}
}

// OnInputChanged records a keystroke. Nothing else moves until the
// debouncer commits the value.
func OnInputChanged(s SearchState, input string) SearchState {
	s.RawInput = input
	return s
}

// OnQueryCommitted installs a debounced query: page back to 1, a fresh
// fetch minted, interest in any outstanding fetch abandoned. Committing
// the value already committed is a no-op except for the very first commit,
// which loads the initial (blank-query) page.
func OnQueryCommitted(s SearchState, query string) (SearchState, *FetchRequest) {
	if s.primed && query == s.CommittedQuery {
		return s, nil
	}
	s.primed = true
	s.CommittedQuery = query
	s.Page = 1
	s.Loading = true
	s.Notice = NoticeNone
	s.exhausted = false
	s.seq++
	s.inFlight = s.seq
	s.fetchPage = 1
	return s, &FetchRequest{Seq: s.seq, Query: query, Page: 1, PageSize: s.PageSize}
}

// OnLoadMore mints a fetch for the next page. Gated while a fetch is in
// flight and after the end of results has been seen for this query.
func OnLoadMore(s SearchState) (SearchState, *FetchRequest) {
	if !s.primed || s.Loading || s.exhausted {
		return s, nil
	}
	s.Loading = true
	s.Notice = NoticeNone
	s.seq++
	s.inFlight = s.seq
	s.fetchPage = s.Page + 1
	return s, &FetchRequest{Seq: s.seq, Query: s.CommittedQuery, Page: s.fetchPage, PageSize: s.PageSize}
}

// OnFetchDone folds a completed fetch into the state. Page-1 results
// replace, later pages append; an empty later page means end of results
// and changes nothing else. Failures clear Loading, raise a notice and
// leave Results and Page exactly as they were.
func OnFetchDone(s SearchState, done FetchDone) SearchState {
	if done.Seq != s.inFlight {
		return s
	}
	s.inFlight = 0
	s.Loading = false

	if done.Err != nil {
		if errors.Is(done.Err, ErrNoToken) {
			s.Notice = NoticeConfigureToken
		} else {
			s.Notice = NoticeFetchFailed
		}
		return s
	}

	if s.fetchPage == 1 {
		s.Results = append([]ImageRecord{}, done.Images...)
		s.Page = 1
		return s
	}

	if len(done.Images) == 0 {
		s.exhausted = true
		s.Notice = NoticeEndOfResults
		return s
	}

	s.Results = appendUnique(s.Results, done.Images)
	s.Page = s.fetchPage
	return s
}

// appendUnique appends in arrival order, dropping any record whose id is
// already present so a misbehaving page cannot duplicate entries.
func appendUnique(dst, more []ImageRecord) []ImageRecord {
	seen := make(map[string]struct{}, len(dst))
	for _, r := range dst {
		seen[r.Id] = struct{}{}
	}
	out := append([]ImageRecord{}, dst...)
	for _, r := range more {
		if _, dup := seen[r.Id]; dup {
			continue
		}
		seen[r.Id] = struct{}{}
		out = append(out, r)
	}
	return out
}
