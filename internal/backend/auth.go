package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"classaccess/internal/model"
)

// ErrNoUserData is returned when a successful login carries no profile.
var ErrNoUserData = errors.New("login response carried no user data")

// LoginResult is the signed-in profile plus the credential for later calls.
type LoginResult struct {
	User       model.User
	Credential Credential
}

// Login exchanges email and password for a backend session. The profile is
// read from the userData cookie when the backend sets one, otherwise from
// the response body.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	in := map[string]string{"correo": email, "password": password}
	var out struct {
		User  *model.User `json:"user"`
		Token string      `json:"token"`
	}
	cookies, err := c.do(ctx, Credential{}, http.MethodPost, "/api/auth/login", "auth.login", in, &out)
	if err != nil {
		return LoginResult{}, err
	}

	res := LoginResult{Credential: Credential{Cookie: cookieHeader(cookies), Token: out.Token}}
	if u, ok := userFromCookies(cookies); ok {
		res.User = u
		return res, nil
	}
	if out.User == nil {
		return LoginResult{}, ErrNoUserData
	}
	res.User = *out.User
	return res, nil
}

// Registration is the payload for creating an account.
type Registration struct {
	FirstName       string          `json:"nombre"`
	PaternalSurname string          `json:"ap"`
	MaternalSurname string          `json:"am"`
	Email           string          `json:"correo"`
	Password        string          `json:"password"`
	Privilege       model.Privilege `json:"priv"`
	Matricula       string          `json:"matricula,omitempty"`
	RFID            *string         `json:"cod_rfid"`
	Group           string          `json:"grupo,omitempty"`
	EmployeeNumber  string          `json:"no_empleado,omitempty"`
}

// Register creates an account. Self-registration passes a zero credential.
func (c *Client) Register(ctx context.Context, cred Credential, r Registration) error {
	_, err := c.do(ctx, cred, http.MethodPost, "/api/users/register", "users.register", r, nil)
	return err
}

func cookieHeader(cookies []*http.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, ck := range cookies {
		if ck.Name == "" || ck.MaxAge < 0 {
			continue
		}
		parts = append(parts, ck.Name+"="+ck.Value)
	}
	return strings.Join(parts, "; ")
}

func userFromCookies(cookies []*http.Cookie) (model.User, bool) {
	for _, ck := range cookies {
		if ck.Name != "userData" {
			continue
		}
		raw, err := url.QueryUnescape(ck.Value)
		if err != nil {
			return model.User{}, false
		}
		var u model.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil || u.ID == 0 {
			return model.User{}, false
		}
		return u, true
	}
	return model.User{}, false
}
