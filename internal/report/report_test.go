package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"classaccess/internal/attendance"
	"classaccess/internal/model"
)

func entry(user int, priv model.Privilege, in string) model.ReportEntry {
	return model.ReportEntry{UserID: user, FirstName: "Alumno", PaternalSurname: "Núñez", Matricula: "2023", Privilege: priv, CheckIn: in}
}

func TestRisk_CountsStudentAbsences(t *testing.T) {
	list := Risk([]model.ReportEntry{
		entry(1, model.PrivilegeStudent, "08:00:00"),
		entry(1, model.PrivilegeStudent, ""),
		entry(1, model.PrivilegeStudent, ""),
		entry(2, model.PrivilegeStudent, ""),
		entry(3, model.PrivilegeStudent, "08:00:00"),
		entry(9, model.PrivilegeTeacher, ""),
	}, RiskLimit)

	require.Len(t, list, 3, "teachers are ignored")
	assert.Equal(t, []int{1, 2, 3}, []int{list[0].UserID, list[1].UserID, list[2].UserID})
	assert.Equal(t, 2, list[0].Absences)
	assert.Equal(t, 67, list[0].AbsencePct())
	assert.Equal(t, 100, list[1].AbsencePct())
	assert.Equal(t, 0, list[2].AbsencePct())
	assert.Equal(t, "Alumno Núñez", list[0].Name)
}

func TestRisk_KeepsTopTen(t *testing.T) {
	var entries []model.ReportEntry
	for u := 1; u <= 12; u++ {
		for i := 0; i < u; i++ {
			entries = append(entries, entry(u, model.PrivilegeStudent, ""))
		}
	}

	list := Risk(entries, RiskLimit)
	require.Len(t, list, 10)
	assert.Equal(t, 12, list[0].UserID)
	assert.Equal(t, 3, list[9].UserID)
}

func TestChart_ScalesToWidest(t *testing.T) {
	bars := Chart([]StudentRisk{{Absences: 4}, {Absences: 1}, {}})
	assert.Equal(t, []int{100, 25, 0}, []int{bars[0].Width, bars[1].Width, bars[2].Width})
	assert.Empty(t, Chart(nil))
}

func TestRiskPDF(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, RiskPDF(&buf, nil, "", ""), ErrEmpty)

	require.NoError(t, RiskPDF(&buf, []StudentRisk{{Name: "José Peña", Absences: 3}}, "2024-01-10", "IDGS-81"))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
	assert.Equal(t, "riesgo_IDGS-81_2024-01-10.pdf", RiskFileName("IDGS-81", "2024-01-10"))
}

func TestClassListPDF(t *testing.T) {
	cl := model.ClassList{Building: "K", Room: "K-12", CheckIn: "08:00:00.000", CheckOut: "10:00:00", Students: []model.ClassSeat{
		{FirstName: "Ana", PaternalSurname: "López", Matricula: "2023001", Group: "IDGS-81", CheckIn: "08:05:00"},
	}}

	var buf bytes.Buffer
	require.NoError(t, ClassListPDF(&buf, "Beto Pérez", "2024-01-10", cl))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
	assert.Equal(t, "Lista_K_K-12_2024-01-10.pdf", ClassListFileName(cl, "2024-01-10"))
}

func TestAttendanceXLSX(t *testing.T) {
	rows := []attendance.Row{{
		Record:    model.Record{UserID: 1, Date: "2024-01-10", CheckIn: "08:00:00.5"},
		FirstName: "Ana", PaternalSurname: "López", Email: "ana@uteq.edu.mx", Privilege: model.PrivilegeStudent,
	}}

	var buf bytes.Buffer
	require.NoError(t, AttendanceXLSX(&buf, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(attendanceSheet)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Usuario", got[0][0])
	assert.Equal(t, []string{"Ana López", "ana@uteq.edu.mx", "Alumno", "Sin grupo", "10/01/2024", "08:00:00", "Sin salida", "N/A", "N/A"}, got[1])
	assert.Equal(t, "asistencias_2024-01-10.xlsx", AttendanceFileName(attendance.Filter{Date: "2024-01-10"}))
}
