// Package web serves the ClassAccess dashboard: server-rendered pages for
// students, teachers and administrators over the ClassAccess REST API.
package web

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"classaccess/internal/attendance"
	"classaccess/internal/audit"
	"classaccess/internal/auth"
	"classaccess/internal/backend"
	"classaccess/internal/httpmiddleware"
	"classaccess/internal/logging"
	"classaccess/internal/model"
	"classaccess/internal/queue"
)

// Backend is the part of the REST API the pages call.
type Backend interface {
	Login(ctx context.Context, email, password string) (backend.LoginResult, error)
	Register(ctx context.Context, cred backend.Credential, r backend.Registration) error
	ListUsers(ctx context.Context, cred backend.Credential) (model.Directory, error)
	SetUserStatus(ctx context.Context, cred backend.Credential, userID, status int) error
	Student(ctx context.Context, cred backend.Credential, userID int) (model.User, error)
	UpdateStudent(ctx context.Context, cred backend.Credential, userID int, p backend.StudentProfile) error
	StudentHistory(ctx context.Context, cred backend.Credential, userID int) ([]model.Record, error)
	TeacherProfile(ctx context.Context, cred backend.Credential, userID int) (model.User, error)
	TeacherClassLists(ctx context.Context, cred backend.Credential, userID int, date string) ([]model.ClassList, error)
	Devices(ctx context.Context, cred backend.Credential) ([]model.Device, error)
	CreateDevice(ctx context.Context, cred backend.Credential, name string) error
	SetDeviceStatus(ctx context.Context, cred backend.Credential, deviceID, status int) error
	Classrooms(ctx context.Context, cred backend.Credential) ([]model.Classroom, error)
	CreateClassroom(ctx context.Context, cred backend.Credential, room model.Classroom) error
	UpdateClassroom(ctx context.Context, cred backend.Credential, room model.Classroom) error
	Groups(ctx context.Context, cred backend.Credential) ([]string, error)
	AttendanceReport(ctx context.Context, cred backend.Credential, date, group string) ([]model.ReportEntry, error)
	UserNotifications(ctx context.Context, cred backend.Credential, userID int) ([]model.Notification, error)
}

// AuditLog records and lists administrative actions.
type AuditLog interface {
	Record(ctx context.Context, evt audit.Event) (audit.Event, error)
	List(ctx context.Context, action string, limit, offset int) ([]audit.Event, error)
	Count(ctx context.Context, action string) (int, error)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Deps is everything the router needs.
type Deps struct {
	Backend  Backend
	Loader   *attendance.Loader
	Feed     *attendance.Feed
	Sessions *auth.Manager
	Queue    queue.Queue
	Audit    AuditLog
	Checks   map[string]HealthCheck
	Log      *zap.Logger

	InstitutionalDomain string
	CalendarURL         string
	RateLimitPerMin     int
	LoginLimitPerMin    int
	AllowedOrigins      []string
	Production          bool
}

// Server holds the handlers' shared state.
type Server struct {
	Deps
	forms *Validator
}

// NewRouter builds the gin engine with every page, /healthz and /metrics.
func NewRouter(d Deps) (*gin.Engine, error) {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Feed == nil {
		d.Feed = attendance.NewFeed(nil)
	}
	rnd, err := newRenderer()
	if err != nil {
		return nil, err
	}
	s := &Server{Deps: d, forms: NewValidator(d.InstitutionalDomain)}

	r := gin.New()
	r.HTMLRender = rnd
	r.Use(gin.Recovery())
	r.Use(logging.Middleware(d.Log, "/healthz", "/metrics"))
	r.Use(cors.New(corsConfig(d.AllowedOrigins)))
	r.Use(securityHeaders(d.Production))
	if d.RateLimitPerMin > 0 {
		r.Use(httpmiddleware.NewSimpleTokenBucket("global", d.RateLimitPerMin, d.RateLimitPerMin).GinMiddleware())
	}
	r.Use(d.Sessions.Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", s.healthz)

	limitLogin := func(c *gin.Context) { c.Next() }
	if d.LoginLimitPerMin > 0 {
		limitLogin = httpmiddleware.NewSimpleTokenBucket("login", d.LoginLimitPerMin, d.LoginLimitPerMin).GinMiddleware()
	}
	r.GET("/", s.landing)
	r.GET("/login", s.loginPage)
	r.POST("/login", limitLogin, s.login)
	r.GET("/registro", s.registerPage)
	r.POST("/registro", limitLogin, s.register)
	r.POST("/logout", s.logout)
	r.GET("/logout", s.logout)

	student := r.Group("/alumno", auth.Require(model.PrivilegeStudent))
	{
		student.GET("", s.home)
		student.GET("/perfil", s.studentProfile)
		student.POST("/perfil", s.updateStudentProfile)
		student.GET("/historial", s.history)
		student.GET("/qr", s.qrPage)
		student.GET("/qr.png", s.qrImage)
		student.GET("/notificaciones", s.notifications)
		student.GET("/calendario", s.calendar)
	}

	teacher := r.Group("/maestro", auth.Require(model.PrivilegeTeacher))
	{
		teacher.GET("", s.home)
		teacher.GET("/perfil", s.teacherProfile)
		teacher.GET("/historial", s.history)
		teacher.GET("/qr", s.qrPage)
		teacher.GET("/qr.png", s.qrImage)
		teacher.GET("/listas", s.classLists)
		teacher.GET("/listas/pdf", s.classListPDF)
		teacher.GET("/notificaciones", s.notifications)
		teacher.GET("/calendario", s.calendar)
	}

	admin := r.Group("/admin", auth.Require(model.PrivilegeAdmin))
	{
		admin.GET("", s.home)
		admin.GET("/perfil", s.adminProfile)
		admin.GET("/usuarios", s.users)
		admin.POST("/usuarios/:id/estatus", s.setUserStatus)
		admin.GET("/usuarios/nuevo", s.newUserPage)
		admin.POST("/usuarios/nuevo", s.createUser)
		admin.GET("/asistencias", s.attendance)
		admin.GET("/asistencias.xlsx", s.attendanceExport)
		admin.GET("/dispositivos", s.devices)
		admin.POST("/dispositivos", s.createDevice)
		admin.POST("/dispositivos/:id/estatus", s.setDeviceStatus)
		admin.GET("/aulas", s.classrooms)
		admin.POST("/aulas", s.saveClassroom)
		admin.POST("/aulas/:id", s.saveClassroom)
		admin.GET("/notificaciones", s.notificationPage)
		admin.POST("/notificaciones", s.sendNotification)
		admin.GET("/reportes", s.reports)
		admin.GET("/reportes/riesgo.pdf", s.riskPDF)
		admin.GET("/auditoria", s.auditLog)
	}

	r.NoRoute(func(c *gin.Context) {
		c.HTML(http.StatusNotFound, "error", newView(c, "No encontrado", "La página que buscas no existe."))
	})
	return r, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func securityHeaders(production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if production {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

func (s *Server) healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range s.Checks {
		healthy := check(c.Request.Context())
		body[name] = healthy
		if !healthy {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// session returns the signed-in session; routes behind auth.Require always
// have one.
func session(c *gin.Context) auth.Session {
	s, _ := auth.FromContext(c)
	return s
}

// fail renders a backend failure. An expired backend session sends the user
// back to the login page.
func (s *Server) fail(c *gin.Context, err error, title, msg string) {
	if backend.IsUnauthorized(err) {
		s.Sessions.End(c)
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}
	s.Log.Error(title, zap.String("path", c.Request.URL.Path), zap.Error(err))
	if m := backend.MessageOf(err); m != "" && backend.StatusOf(err) < 500 {
		msg = m
	}
	status := http.StatusBadGateway
	if backend.IsForbidden(err) {
		status = http.StatusForbidden
	}
	c.HTML(status, "error", newView(c, title, msg))
}

func (s *Server) record(c *gin.Context, action, subject, detail string) {
	if s.Audit == nil {
		return
	}
	evt := audit.Event{ActorID: session(c).UserID, Action: action, Subject: subject, Detail: detail}
	if _, err := s.Audit.Record(c.Request.Context(), evt); err != nil {
		s.Log.Warn("audit record failed", zap.String("action", action), zap.Error(err))
	}
}

func pageParam(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("pagina"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func idParam(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("id"))
	return n, err == nil && n > 0
}

func redirectWith(c *gin.Context, path, flash string) {
	if flash != "" {
		path += "?ok=" + url.QueryEscape(flash)
	}
	c.Redirect(http.StatusSeeOther, path)
}
