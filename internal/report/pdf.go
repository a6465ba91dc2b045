package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"

	"classaccess/internal/attendance"
	"classaccess/internal/model"
)

// ErrEmpty is returned when there is nothing to put in a document.
var ErrEmpty = errors.New("nothing to export")

// RiskFileName is the download name of the risk PDF.
func RiskFileName(group, date string) string {
	return fmt.Sprintf("riesgo_%s_%s.pdf", group, date)
}

// ClassListFileName is the download name of a class list PDF.
func ClassListFileName(cl model.ClassList, date string) string {
	return fmt.Sprintf("Lista_%s_%s_%s.pdf", cl.Building, cl.Room, date)
}

// RiskPDF writes the at-risk students table.
func RiskPDF(w io.Writer, list []StudentRisk, date, group string) error {
	if len(list) == 0 {
		return ErrEmpty
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, tr("Alumnos en Riesgo de Reprobar"))
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 12)
	if date != "" {
		pdf.Cell(0, 8, "Fecha: "+date)
		pdf.Ln(8)
	}
	if group != "" {
		pdf.Cell(0, 8, "Grupo: "+tr(group))
		pdf.Ln(8)
	}
	pdf.Ln(4)

	widths := []float64{85, 40, 25, 30}
	header(pdf, tr, widths, "Nombre", "Matrícula", "Faltas", "% Faltas")
	pdf.SetFont("Arial", "", 10)
	for i, s := range list {
		fill := i%2 == 1
		pdf.CellFormat(widths[0], 7, tr(s.Name), "1", 0, "L", fill, 0, "")
		pdf.CellFormat(widths[1], 7, tr(s.Matricula), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(widths[2], 7, strconv.Itoa(s.Absences), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(widths[3], 7, strconv.Itoa(s.AbsencePct())+"%", "1", 1, "C", fill, 0, "")
	}
	footer(pdf)
	return pdf.Output(w)
}

// ClassListPDF writes the attendance list of one class.
func ClassListPDF(w io.Writer, teacher, date string, cl model.ClassList) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetLeftMargin(14)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(12, 167, 63)
	pdf.Cell(0, 8, "Lista de Asistencia")
	pdf.Ln(8)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 12)
	for _, line := range []string{
		"Maestro: " + teacher,
		"Edificio: " + cl.Building,
		"Aula: " + cl.Room,
		"Hora: " + attendance.TrimTime(cl.CheckIn) + " - " + attendance.TrimTime(cl.CheckOut),
		"Fecha: " + date,
	} {
		pdf.Cell(0, 8, tr(line))
		pdf.Ln(8)
	}
	pdf.Ln(2)

	widths := []float64{10, 62, 30, 28, 26, 26}
	header(pdf, tr, widths, "#", "Nombre", "Matrícula", "Grupo", "Entrada", "Salida")
	pdf.SetFont("Helvetica", "", 10)
	for i, s := range cl.Students {
		fill := i%2 == 1
		pdf.CellFormat(widths[0], 7, strconv.Itoa(i+1), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(widths[1], 7, tr(s.FullName()), "1", 0, "L", fill, 0, "")
		pdf.CellFormat(widths[2], 7, tr(s.Matricula), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(widths[3], 7, tr(s.Group), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(widths[4], 7, attendance.TrimTime(s.CheckIn), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(widths[5], 7, attendance.TrimTime(s.CheckOut), "1", 1, "C", fill, 0, "")
	}
	if len(cl.Students) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.Cell(0, 10, "Sin alumnos registrados.")
		pdf.Ln(10)
	}
	footer(pdf)
	return pdf.Output(w)
}

func header(pdf *gofpdf.Fpdf, tr func(string) string, widths []float64, cols ...string) {
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(12, 167, 63)
	pdf.SetTextColor(255, 255, 255)
	for i, col := range cols {
		ln := 0
		if i == len(cols)-1 {
			ln = 1
		}
		pdf.CellFormat(widths[i], 8, tr(col), "1", ln, "C", true, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFillColor(245, 245, 245)
}

func footer(pdf *gofpdf.Fpdf) {
	pdf.Ln(8)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(100, 100, 100)
	pdf.Cell(0, 5, "Generado el "+time.Now().Format("02/01/2006 15:04"))
}
