package attendance

import (
	"slices"
	"strconv"
	"strings"

	"classaccess/internal/model"
	"classaccess/internal/paging"
)

// PageSize is the fixed number of rows per attendance page.
const PageSize = paging.PageSize

// Filter narrows the attendance table. The zero value means "no filters",
// which switches the table to one latest row per user.
type Filter struct {
	Date   string
	Search string
}

// NewFilter trims the raw form values; a blank search counts as unset.
func NewFilter(date, search string) Filter {
	f := Filter{Search: strings.TrimSpace(search)}
	if d := strings.TrimSpace(date); d != "" {
		f.Date = NormalizeDate(d)
	}
	return f
}

// Empty reports whether no filter is active.
func (f Filter) Empty() bool { return f.Date == "" && f.Search == "" }

// Matches reports whether row satisfies both the date and the search filter.
// Search is a case-insensitive substring test over the full name, email,
// user id and group.
func (f Filter) Matches(row Row) bool {
	if f.Date != "" && NormalizeDate(row.Date) != f.Date {
		return false
	}
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	for _, hay := range []string{
		row.FullName(),
		row.Email,
		strconv.Itoa(row.UserID),
		row.Group,
	} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}

// SortDescending orders rows newest first by date and check-in time. Ties
// keep their input order.
func SortDescending(rows []Row) {
	type keyed struct {
		row Row
		key int64
	}
	ks := make([]keyed, len(rows))
	for i, r := range rows {
		t := sortKey(r.Record)
		k := int64(-1 << 62)
		if !t.IsZero() {
			k = t.Unix()
		}
		ks[i] = keyed{row: r, key: k}
	}
	slices.SortStableFunc(ks, func(a, b keyed) int {
		switch {
		case a.key > b.key:
			return -1
		case a.key < b.key:
			return 1
		}
		return 0
	})
	for i := range ks {
		rows[i] = ks[i].row
	}
}

// FilterRows keeps the rows matching f, preserving order.
func FilterRows(rows []Row, f Filter) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// LatestPerUser keeps the first row seen for every user. On a list sorted
// newest first that is each user's most recent record.
func LatestPerUser(rows []Row) []Row {
	seen := make(map[int]struct{}, len(rows))
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if _, ok := seen[r.UserID]; ok {
			continue
		}
		seen[r.UserID] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Result is the visible slice of the attendance table.
type Result struct {
	paging.Page[Row]
	Filter Filter
	// FullHistory is true when filters are active and every matching
	// record is listed instead of one per user.
	FullHistory bool
}

// Visible is the complete filtered (or reduced) row set before paging.
func Visible(records []model.Record, users []model.User, f Filter) []Row {
	rows := Normalize(records, users)
	SortDescending(rows)
	rows = FilterRows(rows, f)
	if f.Empty() {
		rows = LatestPerUser(rows)
	}
	return rows
}

// Derive computes the rows to render for one page of the attendance table.
func Derive(records []model.Record, users []model.User, f Filter, page int) Result {
	return Result{
		Page:        paging.Slice(Visible(records, users, f), page, PageSize),
		Filter:      f,
		FullHistory: !f.Empty(),
	}
}

// ViewState is the filter and page a viewer is looking at.
type ViewState struct {
	Filter Filter
	Page   int
}

// WithFilter applies f; any change of filter returns to the first page.
func (v ViewState) WithFilter(f Filter) ViewState {
	if f != v.Filter {
		return ViewState{Filter: f, Page: 1}
	}
	return v
}

// Next advances one page unless already on the last.
func (v ViewState) Next(totalPages int) ViewState {
	v.Page = paging.Next(paging.Clamp(v.Page, totalPages), totalPages)
	return v
}

// Prev goes back one page unless already on the first.
func (v ViewState) Prev() ViewState {
	v.Page = paging.Prev(v.Page)
	return v
}

// Reset returns to the first page, as after a data reload.
func (v ViewState) Reset() ViewState {
	v.Page = 1
	return v
}
