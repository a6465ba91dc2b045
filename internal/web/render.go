package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/gorilla/csrf"

	"classaccess/internal/auth"
	"classaccess/internal/model"
)

//go:embed templates
var templateFS embed.FS

// renderer parses every page together with the shared layout once at
// start-up and satisfies gin's render.HTMLRender.
type renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"inc":  func(i int) int { return i + 1 },
	"list": func(xs ...string) []string { return xs },
	"deviceName": func(names map[int]string, id *int) string {
		if id == nil {
			return "Sin dispositivo"
		}
		if n, ok := names[*id]; ok {
			return n
		}
		return "#" + strconv.Itoa(*id)
	},
}

func newRenderer() (*renderer, error) {
	entries, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	r := &renderer{pages: make(map[string]*template.Template, len(entries))}
	for _, entry := range entries {
		name := strings.TrimSuffix(path.Base(entry), ".html")
		tpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", entry)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", entry, err)
		}
		r.pages[name] = tpl
	}
	return r, nil
}

// Instance implements render.HTMLRender.
func (r *renderer) Instance(name string, data any) render.Render {
	tpl, ok := r.pages[name]
	if !ok {
		panic("web: unknown page " + name)
	}
	return render.HTML{Template: tpl, Name: "layout.html", Data: data}
}

// MenuItem is one entry of the side menu.
type MenuItem struct {
	Label string
	Path  string
}

var menus = map[model.Privilege][]MenuItem{
	model.PrivilegeStudent: {
		{"Inicio", "/alumno"},
		{"Mi perfil", "/alumno/perfil"},
		{"Historial", "/alumno/historial"},
		{"Código QR", "/alumno/qr"},
		{"Notificaciones", "/alumno/notificaciones"},
		{"Calendario", "/alumno/calendario"},
	},
	model.PrivilegeTeacher: {
		{"Inicio", "/maestro"},
		{"Mi perfil", "/maestro/perfil"},
		{"Historial", "/maestro/historial"},
		{"Código QR", "/maestro/qr"},
		{"Listas", "/maestro/listas"},
		{"Notificaciones", "/maestro/notificaciones"},
		{"Calendario", "/maestro/calendario"},
	},
	model.PrivilegeAdmin: {
		{"Inicio", "/admin"},
		{"Mi perfil", "/admin/perfil"},
		{"Usuarios", "/admin/usuarios"},
		{"Registrar usuario", "/admin/usuarios/nuevo"},
		{"Asistencias", "/admin/asistencias"},
		{"Dispositivos", "/admin/dispositivos"},
		{"Aulas", "/admin/aulas"},
		{"Notificaciones", "/admin/notificaciones"},
		{"Reportes", "/admin/reportes"},
		{"Auditoría", "/admin/auditoria"},
	},
}

// view is the data every page template receives.
type view struct {
	Title    string
	Path     string
	Session  auth.Session
	LoggedIn bool
	Menu     []MenuItem
	CSRF     template.HTML
	Flash    string
	Error    string
	Errors   map[string]string
	Data     any
}

func newView(c *gin.Context, title string, data any) *view {
	v := &view{
		Title: title,
		Path:  c.Request.URL.Path,
		CSRF:  csrf.TemplateField(c.Request),
		Flash: c.Query("ok"),
		Data:  data,
	}
	if s, ok := auth.FromContext(c); ok {
		v.Session = s
		v.LoggedIn = true
		v.Menu = menus[s.Privilege]
	}
	return v
}
