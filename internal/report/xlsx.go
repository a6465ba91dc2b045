package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"classaccess/internal/attendance"
)

const attendanceSheet = "Asistencias"

// AttendanceFileName is the download name of the attendance export.
func AttendanceFileName(f attendance.Filter) string {
	if f.Date != "" {
		return "asistencias_" + f.Date + ".xlsx"
	}
	return "asistencias.xlsx"
}

// AttendanceXLSX writes rows as a spreadsheet with the same columns and
// placeholders as the attendance table.
func AttendanceXLSX(w io.Writer, rows []attendance.Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", attendanceSheet); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"0CA73F"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	headers := []any{"Usuario", "Correo", "Rol", "Grupo", "Fecha", "Entrada", "Salida", "Edificio", "Aula"}
	if err := f.SetSheetRow(attendanceSheet, "A1", &headers); err != nil {
		return err
	}
	if err := f.SetCellStyle(attendanceSheet, "A1", "I1", bold); err != nil {
		return err
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			r.NameLabel(), r.EmailLabel(), r.Privilege.Label(), r.GroupLabel(),
			r.DateLabel(), r.CheckInLabel(), r.CheckOutLabel(), r.BuildingLabel(), r.ClassroomLabel(),
		}
		if err := f.SetSheetRow(attendanceSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(attendanceSheet, "A", "B", 32); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}
