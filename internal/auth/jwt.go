package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"classaccess/internal/backend"
	"classaccess/internal/model"
)

// Session is the signed-in user as remembered between requests. The backend
// credential never leaves the server: tokens carry Ref and the manager's
// vault resolves it back into Credential.
type Session struct {
	UserID          int                `json:"uid"`
	Privilege       model.Privilege    `json:"priv"`
	FirstName       string             `json:"nombre,omitempty"`
	PaternalSurname string             `json:"ap,omitempty"`
	MaternalSurname string             `json:"am,omitempty"`
	Email           string             `json:"correo,omitempty"`
	Ref             string             `json:"ref,omitempty"`
	Credential      backend.Credential `json:"-"`
}

// FromUser builds a session for a backend profile.
func FromUser(u model.User, cred backend.Credential) Session {
	return Session{
		UserID:          u.ID,
		Privilege:       u.Privilege,
		FirstName:       u.FirstName,
		PaternalSurname: u.PaternalSurname,
		MaternalSurname: u.MaternalSurname,
		Email:           u.Email,
		Credential:      cred,
	}
}

// FullName joins the session user's names.
func (s Session) FullName() string {
	return model.JoinName(s.FirstName, s.PaternalSurname, s.MaternalSurname)
}

// Claims represents JWT payload.
type Claims struct {
	Session Session `json:"ses"`
	jwt.RegisteredClaims
}

// Issue signs a session token valid for ttl.
func Issue(s Session, issuer, key string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims := Claims{
		Session: s,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.Itoa(s.UserID),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// Parse validates a token and returns claims.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, errors.New("issuer mismatch")
	}
	return *claims, nil
}
