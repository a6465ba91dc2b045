package web

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"classaccess/internal/attendance"
	"classaccess/internal/audit"
	"classaccess/internal/model"
	"classaccess/internal/notify"
	"classaccess/internal/paging"
	"classaccess/internal/report"
)

// campusPageSize is the page size of the device and classroom tables.
const campusPageSize = 5

// filterUsers keeps users of kind (a Privilege.Kind, or "todos") whose full
// name or email contains search, case-insensitively.
func filterUsers(users []model.User, kind, search string) []model.User {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]model.User, 0, len(users))
	for _, u := range users {
		if kind != "" && kind != "todos" && u.Privilege.Kind() != kind {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(u.FullName()), needle) &&
			!strings.Contains(strings.ToLower(u.Email), needle) {
			continue
		}
		out = append(out, u)
	}
	return out
}

type usersData struct {
	Kind   string
	Search string
	Page   paging.Page[model.User]
	Query  template.URL
}

func (s *Server) users(c *gin.Context) {
	sess := session(c)
	dir, err := s.Backend.ListUsers(c.Request.Context(), sess.Credential)
	if err != nil {
		s.fail(c, err, "Usuarios", "Error al cargar los usuarios")
		return
	}
	kind, search := c.DefaultQuery("tipo", "todos"), c.Query("q")
	data := usersData{
		Kind:   kind,
		Search: search,
		Page:   paging.Slice(filterUsers(dir.All(), kind, search), pageParam(c), paging.PageSize),
		Query:  template.URL(url.Values{"tipo": {kind}, "q": {search}}.Encode()),
	}
	c.HTML(http.StatusOK, "usuarios", newView(c, "Usuarios", data))
}

func statusForm(c *gin.Context) (int, bool) {
	switch c.PostForm("estatus") {
	case "0":
		return 0, true
	case "1":
		return 1, true
	}
	return 0, false
}

func (s *Server) setUserStatus(c *gin.Context) {
	id, ok := idParam(c)
	status, okStatus := statusForm(c)
	if !ok || !okStatus {
		c.HTML(http.StatusBadRequest, "error", newView(c, "Usuarios", "Solicitud no válida."))
		return
	}
	sess := session(c)
	if id == sess.UserID {
		redirectWith(c, "/admin/usuarios", "No puedes cambiar tu propio estatus")
		return
	}
	if err := s.Backend.SetUserStatus(c.Request.Context(), sess.Credential, id, status); err != nil {
		s.fail(c, err, "Usuarios", "No se pudo actualizar el estatus del usuario")
		return
	}
	s.record(c, audit.ActionUserStatus, "usuario:"+strconv.Itoa(id), "estatus="+strconv.Itoa(status))
	redirectWith(c, "/admin/usuarios", "Estatus actualizado")
}

type newUserData struct {
	Form UserForm
}

func (s *Server) newUserPage(c *gin.Context) {
	c.HTML(http.StatusOK, "usuario_nuevo", newView(c, "Registrar usuario", newUserData{Form: UserForm{Privilege: 1}}))
}

func (s *Server) createUser(c *gin.Context) {
	var form UserForm
	_ = c.ShouldBind(&form)
	v := newView(c, "Registrar usuario", nil)
	if v.Errors = s.forms.Check(&form); v.Errors != nil {
		form.Password = ""
		v.Data = newUserData{Form: form}
		c.HTML(http.StatusBadRequest, "usuario_nuevo", v)
		return
	}
	if err := s.Backend.Register(c.Request.Context(), session(c).Credential, form.Registration()); err != nil {
		s.fail(c, err, "Registrar usuario", "Error al registrar usuario")
		return
	}
	s.record(c, audit.ActionUserCreated, form.Email, model.Privilege(form.Privilege).Kind())
	redirectWith(c, "/admin/usuarios/nuevo", "Usuario registrado con éxito")
}

type attendanceData struct {
	attendance.Result
	View      attendance.ViewState
	PrevPage  int
	NextPage  int
	Query     template.URL
	FetchedAt string
}

// attendanceState reads the filter form. The form echoes the filter the
// current page was computed for, so a changed filter restarts at page one.
func attendanceState(c *gin.Context) attendance.ViewState {
	shown := attendance.ViewState{
		Filter: attendance.NewFilter(c.Query("fecha_actual"), c.Query("q_actual")),
		Page:   pageParam(c),
	}
	if _, submitted := c.GetQuery("fecha_actual"); !submitted {
		shown.Filter = attendance.NewFilter(c.Query("fecha"), c.Query("q"))
	}
	return shown.WithFilter(attendance.NewFilter(c.Query("fecha"), c.Query("q")))
}

func (s *Server) attendance(c *gin.Context) {
	sess := session(c)
	ds, err := s.Loader.Refresh(c.Request.Context(), s.Feed, sess.Credential, c.Query("recargar") == "1")
	if err != nil {
		s.fail(c, err, "Asistencias", "Error al cargar las asistencias")
		return
	}
	state := attendanceState(c)
	res := attendance.Derive(ds.Records, ds.Users, state.Filter, state.Page)
	state.Page = res.Number

	data := attendanceData{
		Result:    res,
		View:      state,
		PrevPage:  state.Prev().Page,
		NextPage:  state.Next(res.TotalPages).Page,
		Query:     template.URL(filterQuery(state.Filter)),
		FetchedAt: ds.FetchedAt.Format("02/01/2006 15:04"),
	}
	c.HTML(http.StatusOK, "asistencias", newView(c, "Asistencias", data))
}

func (s *Server) attendanceExport(c *gin.Context) {
	sess := session(c)
	ds, err := s.Loader.Refresh(c.Request.Context(), s.Feed, sess.Credential, false)
	if err != nil {
		s.fail(c, err, "Asistencias", "Error al cargar las asistencias")
		return
	}
	f := attendance.NewFilter(c.Query("fecha"), c.Query("q"))
	rows := attendance.Visible(ds.Records, ds.Users, f)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="`+report.AttendanceFileName(f)+`"`)
	if err := report.AttendanceXLSX(c.Writer, rows); err != nil {
		s.Log.Error("attendance export failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	s.record(c, audit.ActionReportExported, "asistencias", filterQuery(f))
}

func filterQuery(f attendance.Filter) string {
	return url.Values{"fecha": {f.Date}, "q": {f.Search}}.Encode()
}

type devicesData struct {
	Page paging.Page[model.Device]
	Name string
}

func (s *Server) devices(c *gin.Context) {
	s.renderDevices(c, http.StatusOK, "", nil)
}

func (s *Server) renderDevices(c *gin.Context, status int, name string, errs map[string]string) {
	list, err := s.Backend.Devices(c.Request.Context(), session(c).Credential)
	if err != nil {
		s.fail(c, err, "Dispositivos", "Error al cargar los dispositivos")
		return
	}
	v := newView(c, "Dispositivos", devicesData{Page: paging.Slice(list, pageParam(c), campusPageSize), Name: name})
	v.Errors = errs
	c.HTML(status, "dispositivos", v)
}

func (s *Server) createDevice(c *gin.Context) {
	var form DeviceForm
	_ = c.ShouldBind(&form)
	if errs := s.forms.Check(&form); errs != nil {
		errs["nombre_dis"] = "Por favor ingresa un nombre válido para el dispositivo"
		s.renderDevices(c, http.StatusBadRequest, form.Name, errs)
		return
	}
	if err := s.Backend.CreateDevice(c.Request.Context(), session(c).Credential, form.Name); err != nil {
		s.fail(c, err, "Dispositivos", "Error al agregar dispositivo")
		return
	}
	s.record(c, audit.ActionDeviceCreated, form.Name, "")
	redirectWith(c, "/admin/dispositivos", "Dispositivo agregado")
}

func (s *Server) setDeviceStatus(c *gin.Context) {
	id, ok := idParam(c)
	status, okStatus := statusForm(c)
	if !ok || !okStatus {
		c.HTML(http.StatusBadRequest, "error", newView(c, "Dispositivos", "Solicitud no válida."))
		return
	}
	if err := s.Backend.SetDeviceStatus(c.Request.Context(), session(c).Credential, id, status); err != nil {
		s.fail(c, err, "Dispositivos", "Error al cambiar el estatus")
		return
	}
	s.record(c, audit.ActionDeviceStatus, "dispositivo:"+strconv.Itoa(id), "estatus="+strconv.Itoa(status))
	redirectWith(c, "/admin/dispositivos", "Estatus actualizado")
}

var (
	errClassroomFields = errors.New("Completa todos los campos obligatorios")
	errDeviceInUse     = errors.New("Este dispositivo ya se encuentra asignado a otra aula")
)

// checkClassroom enforces that a device serves at most one classroom.
func checkClassroom(room model.Classroom, rooms []model.Classroom) error {
	if room.Name == "" || room.Building == "" {
		return errClassroomFields
	}
	if room.DeviceID == nil {
		return nil
	}
	for _, other := range rooms {
		if other.ID != room.ID && other.DeviceID != nil && *other.DeviceID == *room.DeviceID {
			return errDeviceInUse
		}
	}
	return nil
}

type classroomsData struct {
	Page    paging.Page[model.Classroom]
	Devices []model.Device
	Names   map[int]string
	Form    ClassroomForm
	Editing int
}

func (s *Server) classrooms(c *gin.Context) {
	editing, _ := strconv.Atoi(c.Query("editar"))
	s.renderClassrooms(c, http.StatusOK, editing, nil, "")
}

func (s *Server) renderClassrooms(c *gin.Context, status, editing int, form *ClassroomForm, msg string) {
	ctx, cred := c.Request.Context(), session(c).Credential
	rooms, err := s.Backend.Classrooms(ctx, cred)
	if err != nil {
		s.fail(c, err, "Aulas", "Error al cargar las aulas")
		return
	}
	devices, err := s.Backend.Devices(ctx, cred)
	if err != nil {
		s.fail(c, err, "Aulas", "Error al cargar los dispositivos")
		return
	}

	data := classroomsData{Page: paging.Slice(rooms, pageParam(c), campusPageSize), Names: map[int]string{}, Editing: editing}
	for _, d := range devices {
		data.Names[d.ID] = d.Name
		if d.Active() {
			data.Devices = append(data.Devices, d)
		}
	}
	switch {
	case form != nil:
		data.Form = *form
	case editing > 0:
		for _, r := range rooms {
			if r.ID == editing {
				data.Form = ClassroomForm{Name: r.Name, Building: r.Building}
				if r.DeviceID != nil {
					data.Form.DeviceID = strconv.Itoa(*r.DeviceID)
				}
			}
		}
	}
	v := newView(c, "Aulas", data)
	v.Error = msg
	c.HTML(status, "aulas", v)
}

func (s *Server) saveClassroom(c *gin.Context) {
	id := 0
	if c.Param("id") != "" {
		var ok bool
		if id, ok = idParam(c); !ok {
			c.HTML(http.StatusBadRequest, "error", newView(c, "Aulas", "Solicitud no válida."))
			return
		}
	}
	var form ClassroomForm
	_ = c.ShouldBind(&form)
	if errs := s.forms.Check(&form); errs != nil {
		s.renderClassrooms(c, http.StatusBadRequest, id, &form, errClassroomFields.Error())
		return
	}
	room, err := form.Classroom(id)
	if err != nil {
		s.renderClassrooms(c, http.StatusBadRequest, id, &form, "Dispositivo no válido")
		return
	}

	ctx, cred := c.Request.Context(), session(c).Credential
	rooms, err := s.Backend.Classrooms(ctx, cred)
	if err != nil {
		s.fail(c, err, "Aulas", "Error al cargar las aulas")
		return
	}
	if err := checkClassroom(room, rooms); err != nil {
		s.renderClassrooms(c, http.StatusConflict, id, &form, err.Error())
		return
	}

	if id > 0 {
		err = s.Backend.UpdateClassroom(ctx, cred, room)
	} else {
		err = s.Backend.CreateClassroom(ctx, cred, room)
	}
	if err != nil {
		s.fail(c, err, "Aulas", "Error al guardar aula")
		return
	}
	s.record(c, audit.ActionClassroomSaved, room.Building+"/"+room.Name, "")
	redirectWith(c, "/admin/aulas", "Aula guardada")
}

func (s *Server) notificationPage(c *gin.Context) {
	c.HTML(http.StatusOK, "enviar_notificacion", newView(c, "Enviar Notificación", NotificationForm{Target: int(model.TargetEveryone)}))
}

func (s *Server) sendNotification(c *gin.Context) {
	var form NotificationForm
	_ = c.ShouldBind(&form)
	if errs := s.forms.Check(&form); errs != nil {
		v := newView(c, "Enviar Notificación", form)
		v.Errors = errs
		c.HTML(http.StatusBadRequest, "enviar_notificacion", v)
		return
	}
	job := notify.Job{Message: form.Message, Target: model.NotificationTarget(form.Target), ActorID: session(c).UserID}
	id, err := notify.Enqueue(c.Request.Context(), s.Queue, job)
	if err != nil {
		s.Log.Error("notification enqueue failed", zap.Error(err))
		v := newView(c, "Enviar Notificación", form)
		v.Error = "Error al enviar notificación"
		c.HTML(http.StatusServiceUnavailable, "enviar_notificacion", v)
		return
	}
	s.record(c, audit.ActionNotificationQueued, "target:"+strconv.Itoa(form.Target), id)
	redirectWith(c, "/admin/notificaciones", "Notificación enviada")
}

type reportsData struct {
	Date   string
	Group  string
	Groups []string
	Bars   []report.Bar
	Query  template.URL
}

func (s *Server) loadRisk(c *gin.Context) (reportsData, []report.StudentRisk, error) {
	ctx, cred := c.Request.Context(), session(c).Credential
	data := reportsData{Date: attendance.NormalizeDate(c.Query("fecha")), Group: strings.TrimSpace(c.Query("grupo"))}
	entries, err := s.Backend.AttendanceReport(ctx, cred, data.Date, data.Group)
	if err != nil {
		return data, nil, err
	}
	risk := report.Risk(entries, report.RiskLimit)
	data.Bars = report.Chart(risk)
	data.Query = template.URL(url.Values{"fecha": {data.Date}, "grupo": {data.Group}}.Encode())
	return data, risk, nil
}

func (s *Server) reports(c *gin.Context) {
	data, _, err := s.loadRisk(c)
	if err != nil {
		s.fail(c, err, "Reportes", "Error al obtener asistencias")
		return
	}
	if groups, err := s.Backend.Groups(c.Request.Context(), session(c).Credential); err != nil {
		s.Log.Warn("groups load failed", zap.Error(err))
	} else {
		data.Groups = groups
	}
	c.HTML(http.StatusOK, "reportes", newView(c, "Alumnos en Riesgo de Reprobar", data))
}

func (s *Server) riskPDF(c *gin.Context) {
	data, risk, err := s.loadRisk(c)
	if err != nil {
		s.fail(c, err, "Reportes", "Error al obtener asistencias")
		return
	}
	if len(risk) == 0 {
		v := newView(c, "Alumnos en Riesgo de Reprobar", data)
		v.Error = "No hay alumnos para generar el PDF."
		c.HTML(http.StatusOK, "reportes", v)
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `attachment; filename="`+report.RiskFileName(data.Group, data.Date)+`"`)
	if err := report.RiskPDF(c.Writer, risk, data.Date, data.Group); err != nil {
		s.Log.Error("risk pdf failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	s.record(c, audit.ActionReportExported, "riesgo", string(data.Query))
}

type auditData struct {
	Action string
	Page   paging.Page[audit.Event]
	Query  template.URL
}

func (s *Server) auditLog(c *gin.Context) {
	if s.Audit == nil {
		c.HTML(http.StatusServiceUnavailable, "error", newView(c, "Auditoría", "La bitácora no está disponible."))
		return
	}
	ctx := c.Request.Context()
	action := c.Query("accion")
	total, err := s.Audit.Count(ctx, action)
	if err != nil {
		s.Log.Error("audit count failed", zap.Error(err))
		c.HTML(http.StatusInternalServerError, "error", newView(c, "Auditoría", "Error al cargar la bitácora."))
		return
	}
	pages := paging.TotalPages(total, paging.PageSize)
	number := paging.Clamp(pageParam(c), pages)
	events, err := s.Audit.List(ctx, action, paging.PageSize, (number-1)*paging.PageSize)
	if err != nil {
		s.Log.Error("audit list failed", zap.Error(err))
		c.HTML(http.StatusInternalServerError, "error", newView(c, "Auditoría", "Error al cargar la bitácora."))
		return
	}
	page := paging.Page[audit.Event]{Items: events, Number: number, Size: paging.PageSize, Total: total, TotalPages: pages}
	if len(events) > 0 {
		page.First = (number-1)*paging.PageSize + 1
		page.Last = page.First + len(events) - 1
	}
	c.HTML(http.StatusOK, "auditoria", newView(c, "Auditoría", auditData{Action: action, Page: page, Query: template.URL(url.Values{"accion": {action}}.Encode())}))
}
