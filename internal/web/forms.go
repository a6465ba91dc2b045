package web

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"classaccess/internal/backend"
	"classaccess/internal/model"
)

const passwordSpecials = "!@#$%^&*()_-+={}[];:'\",.<>?/\\|`~"

// Validator checks submitted forms and reports errors in Spanish, keyed by
// form field name.
type Validator struct {
	v      *validator.Validate
	domain string
}

// NewValidator builds a validator that accepts only addresses under domain
// for the "institucional" tag.
func NewValidator(domain string) *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	email := regexp.MustCompile(`(?i)^[a-z0-9._%+-]+@` + regexp.QuoteMeta(domain) + `$`)
	_ = v.RegisterValidation("institucional", func(fl validator.FieldLevel) bool {
		return email.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("segura", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
	return &Validator{v: v, domain: domain}
}

// StrongPassword requires 8+ characters with an upper-case letter, a digit
// and a special character.
func StrongPassword(pwd string) bool {
	if len([]rune(pwd)) < 8 {
		return false
	}
	var upper, digit, special bool
	for _, r := range pwd {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	return upper && digit && special
}

// Check trims every string field of form (a struct pointer) and validates
// it. The result is nil when the form is valid.
func (val *Validator) Check(form any) map[string]string {
	trimStrings(form)
	err := val.v.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"": "Datos inválidos"}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = val.message(fe)
		}
	}
	return out
}

func (val *Validator) message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Este campo es obligatorio"
	case "email":
		return "Correo electrónico no válido"
	case "institucional":
		return "Solo se permiten correos institucionales @" + val.domain
	case "segura":
		return "La contraseña debe tener al menos 8 caracteres, una mayúscula, un número y un carácter especial"
	case "eqfield":
		return "Las contraseñas no coinciden"
	case "oneof":
		return "Opción no válida"
	case "max":
		return "Máximo " + fe.Param() + " caracteres"
	}
	return "Valor no válido"
}

func trimStrings(ptr any) {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return
	}
	v = v.Elem()
	for i := 0; i < v.NumField(); i++ {
		if f := v.Field(i); f.Kind() == reflect.String && f.CanSet() {
			f.SetString(strings.TrimSpace(f.String()))
		}
	}
}

// LoginForm is the sign-in form.
type LoginForm struct {
	Email    string `form:"correo" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

// RegisterForm is public self-registration. Accounts created here are
// always students.
type RegisterForm struct {
	FirstName       string `form:"nombre" validate:"required,max=60"`
	PaternalSurname string `form:"ap" validate:"required,max=60"`
	MaternalSurname string `form:"am" validate:"max=60"`
	Email           string `form:"correo" validate:"required,institucional"`
	Password        string `form:"password" validate:"required,segura"`
	Confirm         string `form:"confirmar" validate:"required,eqfield=Password"`
	Matricula       string `form:"matricula" validate:"required,max=20"`
	RFID            string `form:"cod_rfid" validate:"max=40"`
	Group           string `form:"grupo" validate:"max=20"`
}

// Registration converts the form into the backend payload.
func (f RegisterForm) Registration() backend.Registration {
	return backend.Registration{
		FirstName:       f.FirstName,
		PaternalSurname: f.PaternalSurname,
		MaternalSurname: f.MaternalSurname,
		Email:           f.Email,
		Password:        f.Password,
		Privilege:       model.PrivilegeStudent,
		Matricula:       f.Matricula,
		RFID:            optional(f.RFID),
		Group:           f.Group,
	}
}

// UserForm is the admin form for creating an account of any role.
type UserForm struct {
	FirstName       string `form:"nombre" validate:"required,max=60"`
	PaternalSurname string `form:"ap" validate:"required,max=60"`
	MaternalSurname string `form:"am" validate:"max=60"`
	Email           string `form:"correo" validate:"required,email"`
	Password        string `form:"password" validate:"required,segura"`
	Privilege       int    `form:"priv" validate:"required,oneof=1 2 3"`
	Matricula       string `form:"matricula" validate:"max=20"`
	RFID            string `form:"cod_rfid" validate:"max=40"`
	Group           string `form:"grupo" validate:"max=20"`
	EmployeeNumber  string `form:"no_empleado" validate:"max=20"`
}

// Registration converts the form into the backend payload, keeping only the
// fields that apply to the chosen role.
func (f UserForm) Registration() backend.Registration {
	r := backend.Registration{
		FirstName:       f.FirstName,
		PaternalSurname: f.PaternalSurname,
		MaternalSurname: f.MaternalSurname,
		Email:           f.Email,
		Password:        f.Password,
		Privilege:       model.Privilege(f.Privilege),
	}
	switch r.Privilege {
	case model.PrivilegeStudent:
		r.Matricula = f.Matricula
		r.RFID = optional(f.RFID)
		r.Group = f.Group
	case model.PrivilegeTeacher:
		r.EmployeeNumber = f.EmployeeNumber
		r.RFID = optional(f.RFID)
	}
	return r
}

// DeviceForm adds a reader.
type DeviceForm struct {
	Name string `form:"nombre_dis" validate:"required,max=60"`
}

// ClassroomForm creates or edits a classroom.
type ClassroomForm struct {
	Name     string `form:"nombre_aula" validate:"required,max=60"`
	Building string `form:"edificio" validate:"required,max=60"`
	DeviceID string `form:"id_dispositivo"`
}

// Classroom converts the form. An empty device means none.
func (f ClassroomForm) Classroom(id int) (model.Classroom, error) {
	room := model.Classroom{ID: id, Name: f.Name, Building: f.Building}
	if f.DeviceID != "" {
		dev, err := strconv.Atoi(f.DeviceID)
		if err != nil {
			return model.Classroom{}, errors.New("dispositivo no válido")
		}
		room.DeviceID = &dev
	}
	return room, nil
}

// NotificationForm is the admin broadcast form.
type NotificationForm struct {
	Message string `form:"mensaje" validate:"required,max=500"`
	Target  int    `form:"destino" validate:"required,oneof=1 2 3"`
}

// StudentProfileForm is the student's own profile form.
type StudentProfileForm struct {
	FirstName       string `form:"nombre_usu" validate:"required,max=60"`
	PaternalSurname string `form:"ap_usu" validate:"required,max=60"`
	MaternalSurname string `form:"am_usu" validate:"max=60"`
	Email           string `form:"correo_usu" validate:"required,institucional"`
	Matricula       string `form:"matricula" validate:"max=20"`
	RFID            string `form:"cod_rfid" validate:"max=40"`
	Group           string `form:"grupo" validate:"max=20"`
}

// Profile converts the form into the backend payload.
func (f StudentProfileForm) Profile() backend.StudentProfile {
	return backend.StudentProfile{
		FirstName:       f.FirstName,
		PaternalSurname: f.PaternalSurname,
		MaternalSurname: f.MaternalSurname,
		Email:           f.Email,
		Matricula:       f.Matricula,
		RFID:            f.RFID,
		Group:           f.Group,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
