package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"classaccess/internal/auth"
	"classaccess/internal/backend"
)

type loginData struct {
	Email string
}

func (s *Server) landing(c *gin.Context) {
	c.HTML(http.StatusOK, "landing", newView(c, "ClassAccess", nil))
}

func (s *Server) loginPage(c *gin.Context) {
	if sess, ok := auth.FromContext(c); ok {
		if home := auth.HomePath(sess.Privilege); home != "" {
			c.Redirect(http.StatusSeeOther, home)
			return
		}
	}
	c.HTML(http.StatusOK, "login", newView(c, "Iniciar sesión", loginData{}))
}

func (s *Server) login(c *gin.Context) {
	var form LoginForm
	_ = c.ShouldBind(&form)
	v := newView(c, "Iniciar sesión", loginData{Email: form.Email})
	if v.Errors = s.forms.Check(&form); v.Errors != nil {
		c.HTML(http.StatusBadRequest, "login", v)
		return
	}

	res, err := s.Backend.Login(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		status := http.StatusUnauthorized
		switch {
		case errors.Is(err, backend.ErrNoUserData):
			v.Error = "No se recibieron datos del usuario"
		case backend.StatusOf(err) != 0 && backend.StatusOf(err) < 500:
			v.Error = backend.MessageOf(err)
			if v.Error == "" {
				v.Error = "Credenciales incorrectas"
			}
		default:
			s.Log.Error("login failed", zap.Error(err))
			v.Error = "Error al conectar con el servidor"
			status = http.StatusBadGateway
		}
		c.HTML(status, "login", v)
		return
	}

	home := auth.HomePath(res.User.Privilege)
	if home == "" {
		v.Error = "Tipo de usuario desconocido"
		c.HTML(http.StatusForbidden, "login", v)
		return
	}
	if err := s.Sessions.Start(c, auth.FromUser(res.User, res.Credential)); err != nil {
		s.Log.Error("session issue failed", zap.Error(err))
		v.Error = "No se pudo iniciar la sesión"
		c.HTML(http.StatusInternalServerError, "login", v)
		return
	}
	c.Redirect(http.StatusSeeOther, home)
}

func (s *Server) registerPage(c *gin.Context) {
	c.HTML(http.StatusOK, "registro", newView(c, "Registro", registerData{Domain: s.InstitutionalDomain}))
}

type registerData struct {
	Form   RegisterForm
	Domain string
}

func (s *Server) register(c *gin.Context) {
	var form RegisterForm
	_ = c.ShouldBind(&form)
	v := newView(c, "Registro", nil)
	if v.Errors = s.forms.Check(&form); v.Errors != nil {
		form.Password, form.Confirm = "", ""
		v.Data = registerData{Form: form, Domain: s.InstitutionalDomain}
		c.HTML(http.StatusBadRequest, "registro", v)
		return
	}

	if err := s.Backend.Register(c.Request.Context(), backend.Credential{}, form.Registration()); err != nil {
		form.Password, form.Confirm = "", ""
		v.Data = registerData{Form: form, Domain: s.InstitutionalDomain}
		v.Error = backend.MessageOf(err)
		if v.Error == "" || backend.StatusOf(err) >= 500 {
			s.Log.Error("registration failed", zap.Error(err))
			v.Error = "Error al registrar usuario"
		}
		c.HTML(http.StatusBadRequest, "registro", v)
		return
	}
	redirectWith(c, "/login", "Registro exitoso, ya puedes iniciar sesión")
}

func (s *Server) logout(c *gin.Context) {
	s.Sessions.End(c)
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) home(c *gin.Context) {
	c.HTML(http.StatusOK, "home", newView(c, "Inicio", nil))
}

func (s *Server) calendar(c *gin.Context) {
	c.HTML(http.StatusOK, "calendario", newView(c, "Calendario Escolar", s.CalendarURL))
}
