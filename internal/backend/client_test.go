package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classaccess/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second)
}

func TestLogin_ReadsUserDataCookie(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ana@uteq.edu.mx", body["correo"])
		assert.Equal(t, "Secreta#1", body["password"])

		profile, _ := json.Marshal(model.User{ID: 7, FirstName: "Ana", Privilege: model.PrivilegeTeacher})
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "abc"})
		http.SetCookie(w, &http.Cookie{Name: "userData", Value: url.QueryEscape(string(profile))})
		_, _ = io.WriteString(w, `{"success":true,"message":"ok"}`)
	})

	res, err := c.Login(context.Background(), "ana@uteq.edu.mx", "Secreta#1")
	require.NoError(t, err)
	assert.Equal(t, 7, res.User.ID)
	assert.Equal(t, model.PrivilegeTeacher, res.User.Privilege)
	assert.Contains(t, res.Credential.Cookie, "token=abc")
}

func TestLogin_FallsBackToResponseBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":{"user":{"id_usu":3,"priv_usu":3},"token":"jwt"}}`)
	})

	res, err := c.Login(context.Background(), "a@b.c", "x")
	require.NoError(t, err)
	assert.Equal(t, 3, res.User.ID)
	assert.Equal(t, "jwt", res.Credential.Token)
}

func TestLogin_RejectedCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"success":false,"message":"Credenciales incorrectas"}`)
	})

	_, err := c.Login(context.Background(), "a@b.c", "x")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "Credenciales incorrectas", MessageOf(err))
}

func TestLogin_NoUserData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true}`)
	})

	_, err := c.Login(context.Background(), "a@b.c", "x")
	assert.ErrorIs(t, err, ErrNoUserData)
}

func TestDecode_BareArrayAndEnvelope(t *testing.T) {
	var devices []model.Device
	require.NoError(t, decode([]byte(`[{"id_dispositivo":1,"nombre_dis":"A","estatus_dis":1}]`), &devices))
	require.Len(t, devices, 1)
	assert.True(t, devices[0].Active())

	var recs []model.Record
	require.NoError(t, decode([]byte(`{"success":true,"data":[{"id_registro":9,"fecha":"2024-01-10"}]}`), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, 9, recs[0].ID)

	err := decode([]byte(`{"success":false,"message":"nope"}`), &recs)
	assert.Equal(t, "nope", MessageOf(err))
}

func TestStudentHistory_ForwardsCredential(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/students/12/history", r.URL.Path)
		assert.Equal(t, "token=abc", r.Header.Get("Cookie"))
		assert.Equal(t, "Bearer svc", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"success":true,"data":[{"id_registro":1,"fecha":"2024-01-10","hora_entrada":"08:00:00"}]}`)
	})

	recs, err := c.StudentHistory(context.Background(), Credential{Cookie: "token=abc", Token: "svc"}, 12)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "08:00:00", recs[0].CheckIn)
}

func TestListUsers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":{
			"alumnos":[{"id_usu":1,"priv_usu":1}],
			"maestros":[{"id_usu":2,"priv_usu":2}],
			"administradores":[{"id_usu":3,"priv_usu":3}]}}`)
	})

	dir, err := c.ListUsers(context.Background(), Credential{})
	require.NoError(t, err)
	all := dir.All()
	require.Len(t, all, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{all[0].ID, all[1].ID, all[2].ID})
}

func TestGroups_AcceptsStringsAndObjects(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `["IDGS-81",{"grupo":"IDGS-82"},""]`)
	})

	groups, err := c.Groups(context.Background(), Credential{})
	require.NoError(t, err)
	assert.Equal(t, []string{"IDGS-81", "IDGS-82"}, groups)
}

func TestAttendanceReport_Query(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-01-10", r.URL.Query().Get("fecha"))
		assert.Equal(t, "IDGS-81", r.URL.Query().Get("grupo"))
		_, _ = io.WriteString(w, `[]`)
	})

	_, err := c.AttendanceReport(context.Background(), Credential{}, "2024-01-10", "IDGS-81")
	require.NoError(t, err)
}

func TestSendNotification_Payload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Clases suspendidas", body["message"])
		assert.EqualValues(t, 2, body["target"])
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"success":true}`)
	})

	require.NoError(t, c.SendNotification(context.Background(), Credential{Token: "svc"}, "Clases suspendidas", model.TargetTeachers))
}

func TestUserNotifications(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":{"notificaciones":[{"id_notificacion":4,"mensaje":"Hola","fecha":"2024-01-10"}]}}`)
	})

	ns, err := c.UserNotifications(context.Background(), Credential{}, 5)
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, "Hola", ns[0].Message)
}

func TestServerErrorMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database down", http.StatusBadGateway)
	})

	_, err := c.Devices(context.Background(), Credential{})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))
	assert.Equal(t, "database down", MessageOf(err))
}
