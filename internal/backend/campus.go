package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"classaccess/internal/model"
)

// Devices lists every registered reader.
func (c *Client) Devices(ctx context.Context, cred Credential) ([]model.Device, error) {
	var out []model.Device
	if _, err := c.do(ctx, cred, http.MethodGet, "/api/dispositivos", "devices.list", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateDevice registers a reader by name.
func (c *Client) CreateDevice(ctx context.Context, cred Credential, name string) error {
	_, err := c.do(ctx, cred, http.MethodPost, "/api/dispositivos", "devices.create", map[string]string{"nombre_dis": name}, nil)
	return err
}

// SetDeviceStatus enables (1) or disables (0) a reader.
func (c *Client) SetDeviceStatus(ctx context.Context, cred Credential, deviceID, status int) error {
	path := fmt.Sprintf("/api/dispositivos/%d/estatus", deviceID)
	_, err := c.do(ctx, cred, http.MethodPut, path, "devices.status", map[string]int{"estatus": status}, nil)
	return err
}

// Classrooms lists every classroom.
func (c *Client) Classrooms(ctx context.Context, cred Credential) ([]model.Classroom, error) {
	var out []model.Classroom
	if _, err := c.do(ctx, cred, http.MethodGet, "/api/aulas", "classrooms.list", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateClassroom adds a classroom.
func (c *Client) CreateClassroom(ctx context.Context, cred Credential, room model.Classroom) error {
	room.ID = 0
	_, err := c.do(ctx, cred, http.MethodPost, "/api/aulas", "classrooms.create", room, nil)
	return err
}

// UpdateClassroom replaces a classroom's name, building and device.
func (c *Client) UpdateClassroom(ctx context.Context, cred Credential, room model.Classroom) error {
	path := fmt.Sprintf("/api/aulas/%d", room.ID)
	body := model.Classroom{Name: room.Name, Building: room.Building, DeviceID: room.DeviceID}
	_, err := c.do(ctx, cred, http.MethodPut, path, "classrooms.update", body, nil)
	return err
}

// Groups lists the student groups. The endpoint returns either plain
// strings or {grupo} objects depending on the backend version.
func (c *Client) Groups(ctx context.Context, cred Credential) ([]string, error) {
	var raw []json.RawMessage
	if _, err := c.do(ctx, cred, http.MethodGet, "/api/grupos", "groups.list", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		var name string
		if err := json.Unmarshal(r, &name); err == nil {
			if name != "" {
				out = append(out, name)
			}
			continue
		}
		var g model.Group
		if err := json.Unmarshal(r, &g); err == nil && g.Name != "" {
			out = append(out, g.Name)
		}
	}
	return out, nil
}

// AttendanceReport returns report rows, optionally narrowed to a date and a
// group.
func (c *Client) AttendanceReport(ctx context.Context, cred Credential, date, group string) ([]model.ReportEntry, error) {
	q := url.Values{}
	if date != "" {
		q.Set("fecha", date)
	}
	if group != "" {
		q.Set("grupo", group)
	}
	path := "/api/asistencias/reportes"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []model.ReportEntry
	if _, err := c.do(ctx, cred, http.MethodGet, path, "reports.attendance", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendNotification broadcasts message to target.
func (c *Client) SendNotification(ctx context.Context, cred Credential, message string, target model.NotificationTarget) error {
	in := struct {
		Message string                   `json:"message"`
		Target  model.NotificationTarget `json:"target"`
	}{message, target}
	_, err := c.do(ctx, cred, http.MethodPost, "/api/notifications/send", "notifications.send", in, nil)
	return err
}

// UserNotifications returns the notifications addressed to userID.
func (c *Client) UserNotifications(ctx context.Context, cred Credential, userID int) ([]model.Notification, error) {
	var out struct {
		Notifications []model.Notification `json:"notificaciones"`
	}
	in := map[string]int{"studentId": userID}
	if _, err := c.do(ctx, cred, http.MethodPost, "/api/notifications/student", "notifications.user", in, &out); err != nil {
		return nil, err
	}
	return out.Notifications, nil
}
