// Package pagination carries the cursor-paging contract shared by list
// endpoints: clients pass an opaque cursor (the last seen row ID) and a
// limit, responses return the next cursor while more rows remain.
package pagination

import "strings"

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

type Pagination struct {
	Cursor string `form:"cursor" json:"cursor"`
	Limit  int    `form:"limit" json:"limit"`
}

// Normalize clamps the limit into [1, MaxLimit], defaulting when unset.
func (r Pagination) Normalize() Pagination {
	if r.Limit <= 0 {
		r.Limit = DefaultLimit
	}
	if r.Limit > MaxLimit {
		r.Limit = MaxLimit
	}
	r.Cursor = strings.TrimSpace(r.Cursor)
	return r
}

type PageInfo struct {
	Count      int     `json:"count"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor,omitempty"`
}

// NewPageInfo trims an over-fetched result set. Repositories query one row
// beyond the limit; the extra row, if present, proves there is a next page.
func NewPageInfo(fetched int, limit int, lastID string) *PageInfo {
	info := &PageInfo{Count: fetched}
	if fetched > limit {
		info.Count = limit
		info.HasMore = true
		cursor := lastID
		info.NextCursor = &cursor
	}
	return info
}
