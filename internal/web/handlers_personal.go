package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"classaccess/internal/attendance"
	"classaccess/internal/auth"
	"classaccess/internal/model"
	"classaccess/internal/paging"
	"classaccess/internal/report"
)

type profileData struct {
	User     model.User
	Form     StudentProfileForm
	Editable bool
}

func (s *Server) studentProfile(c *gin.Context) {
	sess := session(c)
	u, err := s.Backend.Student(c.Request.Context(), sess.Credential, sess.UserID)
	if err != nil {
		s.fail(c, err, "Mi perfil", "Error al cargar el perfil")
		return
	}
	c.HTML(http.StatusOK, "perfil", newView(c, "Mi perfil", profileData{User: u, Form: profileForm(u), Editable: true}))
}

func (s *Server) updateStudentProfile(c *gin.Context) {
	sess := session(c)
	var form StudentProfileForm
	_ = c.ShouldBind(&form)
	if errs := s.forms.Check(&form); errs != nil {
		v := newView(c, "Mi perfil", profileData{User: model.User{ID: sess.UserID, Privilege: sess.Privilege}, Form: form, Editable: true})
		v.Errors = errs
		c.HTML(http.StatusBadRequest, "perfil", v)
		return
	}
	if err := s.Backend.UpdateStudent(c.Request.Context(), sess.Credential, sess.UserID, form.Profile()); err != nil {
		s.fail(c, err, "Mi perfil", "Error al actualizar el perfil")
		return
	}
	redirectWith(c, "/alumno/perfil", "Perfil actualizado correctamente")
}

func (s *Server) teacherProfile(c *gin.Context) {
	sess := session(c)
	u, err := s.Backend.TeacherProfile(c.Request.Context(), sess.Credential, sess.UserID)
	if err != nil {
		s.fail(c, err, "Mi perfil", "Error al cargar el perfil")
		return
	}
	c.HTML(http.StatusOK, "perfil", newView(c, "Mi perfil", profileData{User: u}))
}

func (s *Server) adminProfile(c *gin.Context) {
	sess := session(c)
	u := model.User{
		ID:              sess.UserID,
		FirstName:       sess.FirstName,
		PaternalSurname: sess.PaternalSurname,
		MaternalSurname: sess.MaternalSurname,
		Email:           sess.Email,
		Privilege:       sess.Privilege,
		Status:          1,
	}
	c.HTML(http.StatusOK, "perfil", newView(c, "Mi perfil", profileData{User: u}))
}

func profileForm(u model.User) StudentProfileForm {
	return StudentProfileForm{
		FirstName:       u.FirstName,
		PaternalSurname: u.PaternalSurname,
		MaternalSurname: u.MaternalSurname,
		Email:           u.Email,
		Matricula:       u.Matricula,
		RFID:            u.RFID,
		Group:           u.Group,
	}
}

// ownRows turns the signed-in user's history into table rows, newest first.
func ownRows(sess auth.Session, records []model.Record) []attendance.Row {
	rows := make([]attendance.Row, len(records))
	for i, r := range records {
		r.UserID = sess.UserID
		rows[i] = attendance.Row{
			Record:          r,
			FirstName:       sess.FirstName,
			PaternalSurname: sess.PaternalSurname,
			MaternalSurname: sess.MaternalSurname,
			Email:           sess.Email,
			Privilege:       sess.Privilege,
		}
	}
	attendance.SortDescending(rows)
	return rows
}

func (s *Server) history(c *gin.Context) {
	sess := session(c)
	records, err := s.Backend.StudentHistory(c.Request.Context(), sess.Credential, sess.UserID)
	if err != nil {
		s.fail(c, err, "Historial", "Error al cargar el historial")
		return
	}
	page := paging.Slice(ownRows(sess, records), pageParam(c), paging.PageSize)
	c.HTML(http.StatusOK, "historial", newView(c, "Historial de asistencias", page))
}

type qrData struct {
	User  model.User
	Value string
	Label string
}

// qrValue is what the user's QR encodes: a student's matricula or a
// teacher's employee number.
func (s *Server) qrValue(ctx context.Context, sess auth.Session) (qrData, error) {
	if sess.Privilege == model.PrivilegeTeacher {
		u, err := s.Backend.TeacherProfile(ctx, sess.Credential, sess.UserID)
		return qrData{User: u, Value: u.EmployeeNumber, Label: "No. de empleado"}, err
	}
	u, err := s.Backend.Student(ctx, sess.Credential, sess.UserID)
	return qrData{User: u, Value: u.Matricula, Label: "Matrícula"}, err
}

func (s *Server) qrPage(c *gin.Context) {
	data, err := s.qrValue(c.Request.Context(), session(c))
	if err != nil {
		s.fail(c, err, "Código QR", "Error al cargar la información del usuario")
		return
	}
	c.HTML(http.StatusOK, "qr", newView(c, "Código QR de Identificación", data))
}

func (s *Server) qrImage(c *gin.Context) {
	data, err := s.qrValue(c.Request.Context(), session(c))
	if err != nil {
		s.fail(c, err, "Código QR", "Error al cargar la información del usuario")
		return
	}
	if data.Value == "" {
		c.Status(http.StatusNotFound)
		return
	}
	png, err := qrcode.Encode(data.Value, qrcode.Medium, 256)
	if err != nil {
		s.Log.Error("qr encode failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) notifications(c *gin.Context) {
	sess := session(c)
	list, err := s.Backend.UserNotifications(c.Request.Context(), sess.Credential, sess.UserID)
	if err != nil {
		s.fail(c, err, "Notificaciones", "Error al cargar las notificaciones")
		return
	}
	c.HTML(http.StatusOK, "notificaciones", newView(c, "Notificaciones", list))
}

type classListsData struct {
	Date  string
	Lists []model.ClassList
}

func (s *Server) loadClassLists(c *gin.Context) (string, []model.ClassList, error) {
	sess := session(c)
	date := attendance.NormalizeDate(c.Query("fecha"))
	if date == "" {
		return "", nil, nil
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return date, nil, errInvalidDate
	}
	lists, err := s.Backend.TeacherClassLists(c.Request.Context(), sess.Credential, sess.UserID, date)
	return date, lists, err
}

var errInvalidDate = errors.New("invalid date")

func (s *Server) classLists(c *gin.Context) {
	date, lists, err := s.loadClassLists(c)
	v := newView(c, "Listas de asistencia", classListsData{Date: date, Lists: lists})
	switch {
	case errors.Is(err, errInvalidDate):
		v.Error = "Fecha no válida"
	case err != nil:
		s.fail(c, err, "Listas de asistencia", "Error al cargar las listas")
		return
	case date != "" && len(lists) == 0:
		v.Error = "No se encontraron clases para esta fecha"
	}
	c.HTML(http.StatusOK, "listas", v)
}

func (s *Server) classListPDF(c *gin.Context) {
	date, lists, err := s.loadClassLists(c)
	if err != nil && !errors.Is(err, errInvalidDate) {
		s.fail(c, err, "Listas de asistencia", "Error al cargar las listas")
		return
	}
	idx, convErr := strconv.Atoi(c.Query("clase"))
	if err != nil || convErr != nil || idx < 0 || idx >= len(lists) {
		c.HTML(http.StatusNotFound, "error", newView(c, "Listas de asistencia", "No se encontró la clase solicitada."))
		return
	}
	cl := lists[idx]
	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `attachment; filename="`+report.ClassListFileName(cl, date)+`"`)
	if err := report.ClassListPDF(c.Writer, session(c).FullName(), date, cl); err != nil {
		s.Log.Error("class list pdf failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
	}
}
