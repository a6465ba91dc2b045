package attendance

import (
	"regexp"
	"strings"
	"time"

	"classaccess/internal/model"
)

const (
	dateLayout = "2006-01-02"

	placeholderMissing   = "-"
	placeholderNA        = "N/A"
	placeholderNoGroup   = "Sin grupo"
	placeholderNoExit    = "Sin salida"
	placeholderNoProfile = "Sin dato"
)

var (
	isoDate   = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)
	slashDate = regexp.MustCompile(`^(\d{4})/(\d{2})/(\d{2})`)
)

// Row is an attendance record joined with its owner's profile.
type Row struct {
	model.Record
	FirstName       string
	PaternalSurname string
	MaternalSurname string
	Email           string
	Privilege       model.Privilege
}

// FullName is the owner's given name and both surnames.
func (r Row) FullName() string {
	return model.JoinName(r.FirstName, r.PaternalSurname, r.MaternalSurname)
}

// NameLabel is FullName, or a placeholder for profiles without one.
func (r Row) NameLabel() string { return orPlaceholder(r.FullName(), placeholderNoProfile) }

// EmailLabel is the email, or a placeholder.
func (r Row) EmailLabel() string { return orPlaceholder(r.Email, placeholderNoProfile) }

// BuildingLabel is the building name or N/A.
func (r Row) BuildingLabel() string { return orPlaceholder(r.Building, placeholderNA) }

// ClassroomLabel is the classroom name or N/A.
func (r Row) ClassroomLabel() string { return orPlaceholder(r.Classroom, placeholderNA) }

// GroupLabel shows the group for students only.
func (r Row) GroupLabel() string {
	if r.Privilege != model.PrivilegeStudent {
		return placeholderNA
	}
	return orPlaceholder(r.Group, placeholderNoGroup)
}

// DateLabel renders the record date as dd/mm/yyyy.
func (r Row) DateLabel() string { return FormatDate(r.Date) }

// CheckInLabel is the check-in time without fractional seconds, or "-".
func (r Row) CheckInLabel() string { return orPlaceholder(TrimTime(r.CheckIn), placeholderMissing) }

// CheckOutLabel is the check-out time, or "Sin salida" when still inside.
func (r Row) CheckOutLabel() string { return orPlaceholder(TrimTime(r.CheckOut), placeholderNoExit) }

// HasCheckOut reports whether the record was closed.
func (r Row) HasCheckOut() bool { return TrimTime(r.CheckOut) != "" }

// Normalize joins every record with the user that owns it. Records whose
// owner is not in users are dropped.
func Normalize(records []model.Record, users []model.User) []Row {
	byID := make(map[int]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		u, ok := byID[rec.UserID]
		if !ok {
			continue
		}
		rows = append(rows, Row{
			Record:          rec,
			FirstName:       u.FirstName,
			PaternalSurname: u.PaternalSurname,
			MaternalSurname: u.MaternalSurname,
			Email:           u.Email,
			Privilege:       u.Privilege,
		})
	}
	return rows
}

// NormalizeDate reduces a backend date (ISO timestamp, YYYY-MM-DD or
// YYYY/MM/DD) to YYYY-MM-DD. Anything else is returned trimmed.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if m := isoDate.FindStringSubmatch(s); m != nil {
		return m[1] + "-" + m[2] + "-" + m[3]
	}
	if m := slashDate.FindStringSubmatch(s); m != nil {
		return m[1] + "-" + m[2] + "-" + m[3]
	}
	return s
}

// FormatDate renders a backend date as dd/mm/yyyy without any time zone
// conversion. Unrecognised values pass through; empty becomes "-".
func FormatDate(s string) string {
	n := NormalizeDate(s)
	if m := isoDate.FindStringSubmatch(n); m != nil {
		return m[3] + "/" + m[2] + "/" + m[1]
	}
	return orPlaceholder(n, placeholderMissing)
}

// TrimTime drops fractional seconds from a time of day ("08:15:00.000").
func TrimTime(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	return s
}

// sortKey combines date and check-in time into one instant. A missing or
// unparseable time falls back to midnight of the date; an unparseable date
// yields the zero time, which sorts after every dated record.
func sortKey(r model.Record) time.Time {
	day, err := time.Parse(dateLayout, NormalizeDate(r.Date))
	if err != nil {
		return time.Time{}
	}
	clock := TrimTime(r.CheckIn)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, clock); err == nil {
			return day.Add(time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second)
		}
	}
	return day
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}
