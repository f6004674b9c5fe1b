package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/99minutos/account-service/internal/api/middleware"
	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

type stubUserService struct {
	users     []*domain.User
	updated   ports.UpdateUserInput
	deleted   string
	actor     string
	updateErr error
	deleteErr error
}

func (s *stubUserService) List(context.Context) ([]*domain.User, error) {
	return s.users, nil
}

func (s *stubUserService) Get(_ context.Context, id string) (*domain.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *stubUserService) Update(_ context.Context, actorID string, in ports.UpdateUserInput) (*domain.User, error) {
	s.actor, s.updated = actorID, in
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return &domain.User{ID: in.ID, Email: in.Email, FirstName: in.FirstName, LastName: in.LastName, Role: domain.RoleUser}, nil
}

func (s *stubUserService) Delete(_ context.Context, actorID, id string) error {
	s.actor, s.deleted = actorID, id
	return s.deleteErr
}

func TestUserHandler_List(t *testing.T) {
	e := newTestEcho()
	stub := &stubUserService{users: []*domain.User{
		{ID: "u1", Email: "admin@example.com", Role: domain.RoleAdmin},
		{ID: "u2", Email: "user@example.com", Role: domain.RoleUser},
	}}
	c, rec := newJSONContext(e, http.MethodGet, "/users", "")

	if err := NewUserHandler(stub).List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp struct {
		Data  []map[string]any `json:"data"`
		Total int              `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Total != 2 || len(resp.Data) != 2 || resp.Data[0]["id"] != "u1" {
		t.Fatalf("unexpected list: %+v", resp)
	}
}

func TestUserHandler_List_EmptyIsArray(t *testing.T) {
	e := newTestEcho()
	c, rec := newJSONContext(e, http.MethodGet, "/users", "")

	if err := NewUserHandler(&stubUserService{}).List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got := rec.Body.String(); got != "{\"data\":[],\"total\":0}\n" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestUserHandler_Get_NotFound(t *testing.T) {
	e := newTestEcho()
	c, _ := newJSONContext(e, http.MethodGet, "/users/missing", "")
	c.SetParamNames("id")
	c.SetParamValues("missing")

	if err := NewUserHandler(&stubUserService{}).Get(c); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserHandler_Update(t *testing.T) {
	e := newTestEcho()
	stub := &stubUserService{}
	c, rec := newJSONContext(e, http.MethodPut, "/users/u2",
		`{"email":"new@example.com","first_name":"New","last_name":"Name"}`)
	c.SetParamNames("id")
	c.SetParamValues("u2")
	c.Set(middleware.CtxUserID, "admin-1")

	if err := NewUserHandler(stub).Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	want := ports.UpdateUserInput{ID: "u2", Email: "new@example.com", FirstName: "New", LastName: "Name"}
	if stub.updated != want || stub.actor != "admin-1" {
		t.Fatalf("unexpected update call: %+v by %q", stub.updated, stub.actor)
	}
}

func TestUserHandler_Update_Validation(t *testing.T) {
	cases := map[string]string{
		"missing last name": `{"email":"a@b.com","first_name":"A"}`,
		"invalid email":     `{"email":"nope","first_name":"A","last_name":"B"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			e := newTestEcho()
			stub := &stubUserService{}
			c, _ := newJSONContext(e, http.MethodPut, "/users/u2", body)
			c.SetParamNames("id")
			c.SetParamValues("u2")
			c.Set(middleware.CtxUserID, "admin-1")

			assertHTTPError(t, NewUserHandler(stub).Update(c), http.StatusBadRequest)
			if stub.updated.ID != "" {
				t.Fatalf("service must not be called")
			}
		})
	}
}

func TestUserHandler_Delete(t *testing.T) {
	e := newTestEcho()
	stub := &stubUserService{}
	c, rec := newJSONContext(e, http.MethodDelete, "/users/u2", "")
	c.SetParamNames("id")
	c.SetParamValues("u2")
	c.Set(middleware.CtxUserID, "admin-1")

	if err := NewUserHandler(stub).Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if stub.deleted != "u2" || stub.actor != "admin-1" {
		t.Fatalf("unexpected delete call: %q by %q", stub.deleted, stub.actor)
	}
}

func TestUserHandler_Delete_Forbidden(t *testing.T) {
	e := newTestEcho()
	stub := &stubUserService{deleteErr: domain.ErrForbidden}
	c, _ := newJSONContext(e, http.MethodDelete, "/users/admin-1", "")
	c.SetParamNames("id")
	c.SetParamValues("admin-1")
	c.Set(middleware.CtxUserID, "admin-1")

	if err := NewUserHandler(stub).Delete(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
