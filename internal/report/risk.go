// Package report builds the admin risk list and the downloadable PDF and
// spreadsheet exports.
package report

import (
	"math"
	"slices"

	"classaccess/internal/attendance"
	"classaccess/internal/model"
)

// RiskLimit is how many students the risk list keeps.
const RiskLimit = 10

// StudentRisk summarises one student's attendance in a report.
type StudentRisk struct {
	UserID    int
	Name      string
	Matricula string
	Attended  int
	Absences  int
}

// Total is the number of report rows counted for the student.
func (s StudentRisk) Total() int { return s.Attended + s.Absences }

// AbsencePct is the rounded share of absences, 0 when nothing was counted.
func (s StudentRisk) AbsencePct() int {
	if s.Total() == 0 {
		return 0
	}
	return int(math.Round(float64(s.Absences) / float64(s.Total()) * 100))
}

// Risk groups report rows by student and returns the limit students with the
// most absences. Only students count; a row without a check-in time is an
// absence. Ties keep the order in which students first appear.
func Risk(entries []model.ReportEntry, limit int) []StudentRisk {
	index := map[int]int{}
	var out []StudentRisk
	for _, e := range entries {
		if e.Privilege != model.PrivilegeStudent {
			continue
		}
		i, ok := index[e.UserID]
		if !ok {
			i = len(out)
			index[e.UserID] = i
			out = append(out, StudentRisk{
				UserID:    e.UserID,
				Name:      model.JoinName(e.FirstName, e.PaternalSurname, e.MaternalSurname),
				Matricula: e.Matricula,
			})
		}
		if attendance.TrimTime(e.CheckIn) == "" {
			out[i].Absences++
		} else {
			out[i].Attended++
		}
	}

	slices.SortStableFunc(out, func(a, b StudentRisk) int { return b.Absences - a.Absences })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Bar is one bar of the absences chart, Width in percent of the widest bar.
type Bar struct {
	StudentRisk
	Width int
}

// Chart scales the risk list into horizontal bars.
func Chart(list []StudentRisk) []Bar {
	top := 0
	for _, s := range list {
		top = max(top, s.Absences)
	}
	bars := make([]Bar, len(list))
	for i, s := range list {
		bars[i] = Bar{StudentRisk: s}
		if top > 0 {
			bars[i].Width = s.Absences * 100 / top
		}
	}
	return bars
}
