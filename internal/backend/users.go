package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"classaccess/internal/model"
)

// ListUsers returns every account grouped by role.
func (c *Client) ListUsers(ctx context.Context, cred Credential) (model.Directory, error) {
	var dir model.Directory
	_, err := c.do(ctx, cred, http.MethodGet, "/api/users", "users.list", nil, &dir)
	return dir, err
}

// SetUserStatus enables (1) or disables (0) an account.
func (c *Client) SetUserStatus(ctx context.Context, cred Credential, userID, status int) error {
	path := fmt.Sprintf("/api/users/%d/estatus", userID)
	_, err := c.do(ctx, cred, http.MethodPut, path, "users.status", map[string]int{"estatus": status}, nil)
	return err
}

// Student returns a student's profile.
func (c *Client) Student(ctx context.Context, cred Credential, userID int) (model.User, error) {
	var u model.User
	_, err := c.do(ctx, cred, http.MethodGet, fmt.Sprintf("/api/students/%d", userID), "students.get", nil, &u)
	return u, err
}

// StudentProfile is the editable part of a student's profile.
type StudentProfile struct {
	FirstName       string `json:"nombre_usu"`
	PaternalSurname string `json:"ap_usu"`
	MaternalSurname string `json:"am_usu"`
	Email           string `json:"correo_usu"`
	Matricula       string `json:"matricula"`
	RFID            string `json:"cod_rfid"`
	Group           string `json:"grupo"`
}

// UpdateStudent saves a student's profile.
func (c *Client) UpdateStudent(ctx context.Context, cred Credential, userID int, p StudentProfile) error {
	_, err := c.do(ctx, cred, http.MethodPut, fmt.Sprintf("/api/students/%d", userID), "students.update", p, nil)
	return err
}

// StudentHistory returns the attendance records of any user. The endpoint
// lives under /students but serves teachers and admins as well.
func (c *Client) StudentHistory(ctx context.Context, cred Credential, userID int) ([]model.Record, error) {
	var recs []model.Record
	path := fmt.Sprintf("/api/students/%d/history", userID)
	if _, err := c.do(ctx, cred, http.MethodGet, path, "students.history", nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// TeacherProfile returns a teacher's profile including the employee number.
func (c *Client) TeacherProfile(ctx context.Context, cred Credential, userID int) (model.User, error) {
	var u model.User
	path := fmt.Sprintf("/api/teachers/%d/profile", userID)
	_, err := c.do(ctx, cred, http.MethodGet, path, "teachers.profile", nil, &u)
	return u, err
}

// TeacherClassLists returns the classes a teacher gave on date (YYYY-MM-DD).
func (c *Client) TeacherClassLists(ctx context.Context, cred Credential, userID int, date string) ([]model.ClassList, error) {
	var lists []model.ClassList
	path := fmt.Sprintf("/api/listas-maestro/%d?fecha=%s", userID, url.QueryEscape(date))
	if _, err := c.do(ctx, cred, http.MethodGet, path, "teachers.lists", nil, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}
