package attendance

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classaccess/internal/model"
)

var (
	userA = model.User{ID: 1, FirstName: "Ana", PaternalSurname: "López", MaternalSurname: "Ruiz", Email: "ana@uteq.edu.mx", Privilege: model.PrivilegeStudent}
	userB = model.User{ID: 2, FirstName: "Beto", PaternalSurname: "Pérez", MaternalSurname: "Soto", Email: "beto@uteq.edu.mx", Privilege: model.PrivilegeTeacher}
)

func rec(id, user int, date, in string) model.Record {
	return model.Record{ID: id, UserID: user, Date: date, CheckIn: in, Classroom: "A1", Building: "K"}
}

func dates(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = fmt.Sprintf("%d@%s", r.UserID, NormalizeDate(r.Date))
	}
	return out
}

func exampleRecords() []model.Record {
	return []model.Record{
		rec(1, 1, "2024-01-10", "08:00:00"),
		rec(2, 1, "2024-01-12", "09:00:00"),
		rec(3, 2, "2024-01-11", "07:30:00"),
	}
}

func TestDerive_NoFiltersKeepsLatestPerUser(t *testing.T) {
	res := Derive(exampleRecords(), []model.User{userA, userB}, Filter{}, 1)

	assert.Equal(t, []string{"1@2024-01-12", "2@2024-01-11"}, dates(res.Items))
	assert.False(t, res.FullHistory)
	assert.Equal(t, 1, res.TotalPages)
}

func TestDerive_DateFilterShowsHistory(t *testing.T) {
	res := Derive(exampleRecords(), []model.User{userA, userB}, NewFilter("2024-01-10", ""), 1)

	assert.Equal(t, []string{"1@2024-01-10"}, dates(res.Items))
	assert.True(t, res.FullHistory)
}

func TestDerive_ThirdPageOfTwentyFive(t *testing.T) {
	var recs []model.Record
	for i := 0; i < 25; i++ {
		recs = append(recs, rec(i+1, 1, fmt.Sprintf("2024-02-%02d", i+1), "08:00:00"))
	}

	res := Derive(recs, []model.User{userA}, NewFilter("", "ana"), 3)

	require.Len(t, res.Items, 5)
	assert.Equal(t, 3, res.TotalPages)
	assert.Equal(t, 21, res.First)
	assert.Equal(t, 25, res.Last)
	// newest first, so page 3 holds the five oldest days
	assert.Equal(t, "2024-02-05", res.Items[0].Date)
	assert.Equal(t, "2024-02-01", res.Items[4].Date)
}

func TestDerive_DistinctUserCountWithoutFilters(t *testing.T) {
	users := []model.User{userA, userB, {ID: 3, FirstName: "Caro"}}
	recs := []model.Record{
		rec(1, 1, "2024-01-01", "08:00"),
		rec(2, 1, "2024-01-02", "08:00"),
		rec(3, 2, "2024-01-01", "08:00"),
		rec(4, 3, "2024-01-03", "08:00"),
		rec(5, 3, "2024-01-03", "10:00"),
	}

	assert.Len(t, Visible(recs, users, Filter{}), 3)
}

func TestDerive_FilterSoundAndComplete(t *testing.T) {
	users := []model.User{userA, userB}
	recs := append(exampleRecords(), rec(4, 2, "2024-01-10", "10:00:00"))
	f := NewFilter("2024-01-10", "")

	visible := Visible(recs, users, f)
	for _, r := range visible {
		assert.True(t, f.Matches(r))
	}
	var matching int
	for _, r := range Normalize(recs, users) {
		if f.Matches(r) {
			matching++
		}
	}
	assert.Equal(t, matching, len(visible))
}

func TestNormalize_DropsRecordsWithoutOwner(t *testing.T) {
	rows := Normalize([]model.Record{rec(1, 1, "2024-01-10", "08:00"), rec(2, 99, "2024-01-10", "08:00")}, []model.User{userA})

	require.Len(t, rows, 1)
	assert.Equal(t, "Ana López Ruiz", rows[0].FullName())
	assert.Equal(t, "ana@uteq.edu.mx", rows[0].Email)
}

func TestSortDescending_MonotonicAndStable(t *testing.T) {
	rows := Normalize([]model.Record{
		rec(1, 1, "2024-01-10", "08:00:00"),
		rec(2, 2, "2024-01-10T06:00:00.000Z", "08:00:00.000"),
		rec(3, 1, "2024-01-11", "07:00:00"),
		rec(4, 2, "2024-01-10", "13:45:10"),
		rec(5, 1, "garbage", "08:00"),
		rec(6, 2, "2024-01-09", ""),
	}, []model.User{userA, userB})

	SortDescending(rows)

	ids := make([]int, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	// 1 and 2 share a timestamp and keep input order; undated sorts last
	assert.Equal(t, []int{3, 4, 1, 2, 6, 5}, ids)
	for i := 1; i < len(rows); i++ {
		assert.False(t, sortKey(rows[i].Record).After(sortKey(rows[i-1].Record)))
	}
}

func TestFilter_SearchFields(t *testing.T) {
	row := Normalize([]model.Record{{ID: 1, UserID: 2, Date: "2024-01-10", Group: "IDGS-81"}}, []model.User{userB})[0]

	for _, q := range []string{"beto", "PÉREZ SOTO", "beto pérez", "@uteq", "2", "idgs-81"} {
		assert.True(t, NewFilter("", q).Matches(row), q)
	}
	assert.False(t, NewFilter("", "zzz").Matches(row))
	assert.False(t, NewFilter("2024-01-11", "beto").Matches(row))
}

func TestFilter_BlankSearchIsEmpty(t *testing.T) {
	assert.True(t, NewFilter("", "   ").Empty())
	assert.Equal(t, "2024-01-10", NewFilter(" 2024/01/10 ", "").Date)
}

func TestFilter_MissingFieldsDoNotPanic(t *testing.T) {
	row := Normalize([]model.Record{{ID: 1, UserID: 5}}, []model.User{{ID: 5}})[0]

	assert.False(t, NewFilter("", "x").Matches(row))
	assert.Equal(t, "Sin dato", row.NameLabel())
	assert.Equal(t, "-", row.CheckInLabel())
	assert.Equal(t, "Sin salida", row.CheckOutLabel())
	assert.Equal(t, "N/A", row.BuildingLabel())
	assert.Equal(t, "-", row.DateLabel())
}

func TestRowLabels(t *testing.T) {
	student := Row{Record: model.Record{Date: "2024-01-10T00:00:00.000Z", CheckIn: "08:15:00.123", CheckOut: "10:00:00"}, Privilege: model.PrivilegeStudent}
	assert.Equal(t, "10/01/2024", student.DateLabel())
	assert.Equal(t, "08:15:00", student.CheckInLabel())
	assert.Equal(t, "10:00:00", student.CheckOutLabel())
	assert.Equal(t, "Sin grupo", student.GroupLabel())

	teacher := Row{Record: model.Record{Group: "IDGS-81"}, Privilege: model.PrivilegeTeacher}
	assert.Equal(t, "N/A", teacher.GroupLabel())
}

func TestViewState_FilterChangeResetsPage(t *testing.T) {
	v := ViewState{Page: 3}

	v = v.WithFilter(NewFilter("", "ana"))
	assert.Equal(t, 1, v.Page)

	v = v.Next(4).Next(4)
	assert.Equal(t, 3, v.Page)
	assert.Equal(t, 3, v.WithFilter(NewFilter("", "ana")).Page, "same filter keeps the page")
	assert.Equal(t, 1, v.WithFilter(NewFilter("2024-01-10", "ana")).Page)
}

func TestViewState_NavigationClamps(t *testing.T) {
	v := ViewState{Page: 1}

	assert.Equal(t, 1, v.Prev().Page)
	assert.Equal(t, 2, v.Next(2).Page)
	assert.Equal(t, 2, v.Next(2).Next(2).Page)
	assert.Equal(t, 1, v.Next(2).Reset().Page)
}
