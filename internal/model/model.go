package model

import "strings"

// Privilege is the role tag the backend assigns to every account.
type Privilege int

const (
	PrivilegeStudent Privilege = 1
	PrivilegeTeacher Privilege = 2
	PrivilegeAdmin   Privilege = 3
)

// Valid reports whether p is one of the known roles.
func (p Privilege) Valid() bool {
	return p >= PrivilegeStudent && p <= PrivilegeAdmin
}

// Kind is the lower-case role name used by filters and badges.
func (p Privilege) Kind() string {
	switch p {
	case PrivilegeStudent:
		return "alumno"
	case PrivilegeTeacher:
		return "maestro"
	case PrivilegeAdmin:
		return "administrador"
	}
	return "desconocido"
}

// Label is the capitalised role name shown in tables.
func (p Privilege) Label() string {
	k := p.Kind()
	return strings.ToUpper(k[:1]) + k[1:]
}

// User is the profile summary the backend returns for every account.
type User struct {
	ID              int       `json:"id_usu"`
	FirstName       string    `json:"nombre_usu"`
	PaternalSurname string    `json:"ap_usu"`
	MaternalSurname string    `json:"am_usu"`
	Email           string    `json:"correo_usu"`
	Privilege       Privilege `json:"priv_usu"`
	Status          int       `json:"estatus_usu"`
	Matricula       string    `json:"matricula,omitempty"`
	RFID            string    `json:"cod_rfid,omitempty"`
	Group           string    `json:"grupo,omitempty"`
	EmployeeNumber  string    `json:"no_empleado,omitempty"`
}

// FullName joins the given name and both surnames, skipping blanks.
func (u User) FullName() string {
	return JoinName(u.FirstName, u.PaternalSurname, u.MaternalSurname)
}

// Active reports whether the account is enabled.
func (u User) Active() bool { return u.Status == 1 }

// JoinName joins non-empty name parts with single spaces.
func JoinName(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// Directory is the grouped user listing returned by GET /api/users.
type Directory struct {
	Students []User `json:"alumnos"`
	Teachers []User `json:"maestros"`
	Admins   []User `json:"administradores"`
}

// All flattens the directory, students first.
func (d Directory) All() []User {
	out := make([]User, 0, len(d.Students)+len(d.Teachers)+len(d.Admins))
	out = append(out, d.Students...)
	out = append(out, d.Teachers...)
	out = append(out, d.Admins...)
	return out
}

// Record is one attendance entry: a check-in (and optional check-out) at a
// classroom on a date. Date and times are kept as the backend sends them.
type Record struct {
	ID        int    `json:"id_registro"`
	UserID    int    `json:"id_usu"`
	Date      string `json:"fecha"`
	CheckIn   string `json:"hora_entrada"`
	CheckOut  string `json:"hora_salida"`
	Classroom string `json:"nombre_aula"`
	Building  string `json:"edificio"`
	Group     string `json:"grupo"`
}

// ReportEntry is one row of the attendance report endpoint: a record that
// already carries its owner's profile fields.
type ReportEntry struct {
	UserID          int       `json:"id_usu"`
	FirstName       string    `json:"nombre_usu"`
	PaternalSurname string    `json:"ap_usu"`
	MaternalSurname string    `json:"am_usu"`
	Matricula       string    `json:"matricula"`
	Privilege       Privilege `json:"priv_usu"`
	Group           string    `json:"grupo"`
	Date            string    `json:"fecha"`
	CheckIn         string    `json:"hora_entrada"`
}

// Device is an RFID/QR reader registered with the backend.
type Device struct {
	ID     int    `json:"id_dispositivo"`
	Name   string `json:"nombre_dis"`
	Status int    `json:"estatus_dis"`
}

// Active reports whether the device is enabled.
func (d Device) Active() bool { return d.Status == 1 }

// Classroom binds a room in a building to at most one device.
type Classroom struct {
	ID       int    `json:"id_aula,omitempty"`
	Name     string `json:"nombre_aula"`
	Building string `json:"edificio"`
	DeviceID *int   `json:"id_dispositivo"`
}

// Notification is a message addressed to a user.
type Notification struct {
	ID      int    `json:"id_notificacion"`
	Message string `json:"mensaje"`
	Date    string `json:"fecha"`
}

// NotificationTarget selects the audience of a broadcast.
type NotificationTarget int

const (
	TargetStudents NotificationTarget = 1
	TargetTeachers NotificationTarget = 2
	TargetEveryone NotificationTarget = 3
)

// Valid reports whether t is a known audience.
func (t NotificationTarget) Valid() bool {
	return t >= TargetStudents && t <= TargetEveryone
}

// ClassList is one class a teacher gave on a date, with its attendees.
type ClassList struct {
	Building string      `json:"edificio"`
	Room     string      `json:"aula"`
	CheckIn  string      `json:"hora_entrada"`
	CheckOut string      `json:"hora_salida"`
	Students []ClassSeat `json:"alumnos"`
}

// ClassSeat is a student's attendance within a ClassList.
type ClassSeat struct {
	FirstName       string `json:"nombre_usu"`
	PaternalSurname string `json:"ap_usu"`
	MaternalSurname string `json:"am_usu"`
	Matricula       string `json:"matricula"`
	Group           string `json:"grupo"`
	CheckIn         string `json:"hora_entrada"`
	CheckOut        string `json:"hora_salida"`
}

// FullName joins the seat's given name and surnames.
func (s ClassSeat) FullName() string {
	return JoinName(s.FirstName, s.PaternalSurname, s.MaternalSurname)
}

// Group is a student cohort known to the backend.
type Group struct {
	Name string `json:"grupo"`
}
