package services

import (
	"context"
	"testing"

	"github.com/quarry-bi/quarry-core/internal/core/domain"
	"github.com/quarry-bi/quarry-core/internal/core/ports/driven/mocks"
	"github.com/quarry-bi/quarry-core/internal/core/ports/driving"
)

func newTestUserService() (*mocks.MockUserStore, *mocks.MockSessionStore, *userService) {
	userStore := mocks.NewMockUserStore()
	sessionStore := mocks.NewMockSessionStore()
	authAdapter := mocks.NewMockAuthAdapter()
	svc := NewUserService(userStore, sessionStore, authAdapter).(*userService)
	return userStore, sessionStore, svc
}

func TestUserService_Setup(t *testing.T) {
	_, _, svc := newTestUserService()

	resp, err := svc.Setup(context.Background(), driving.SetupRequest{
		Email:    "admin@example.com",
		Password: "password123",
		Name:     "Admin",
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if resp.User.Role != domain.RoleAdmin {
		t.Errorf("expected admin role, got %s", resp.User.Role)
	}

	// Second setup attempt is rejected
	_, err = svc.Setup(context.Background(), driving.SetupRequest{
		Email:    "other@example.com",
		Password: "password123",
		Name:     "Other",
	})
	if err != domain.ErrForbidden {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestUserService_Setup_InvalidInput(t *testing.T) {
	_, _, svc := newTestUserService()

	_, err := svc.Setup(context.Background(), driving.SetupRequest{
		Email: "admin@example.com",
	})
	if err != domain.ErrInvalidInput {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUserService_Create(t *testing.T) {
	_, _, svc := newTestUserService()

	user, err := svc.Create(context.Background(), driving.CreateUserRequest{
		Email:    "  Analyst@Example.COM  ",
		Password: "password123",
		Name:     "  Analyst  ",
		Role:     domain.RoleAnalyst,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.Email != "analyst@example.com" {
		t.Errorf("expected normalized email, got %s", user.Email)
	}
	if user.Name != "Analyst" {
		t.Errorf("expected trimmed name, got %q", user.Name)
	}
	if !user.Active {
		t.Error("expected new user to be active")
	}
}

func TestUserService_Create_Validation(t *testing.T) {
	_, _, svc := newTestUserService()

	tests := []struct {
		name string
		req  driving.CreateUserRequest
	}{
		{"missing email", driving.CreateUserRequest{Password: "p", Name: "n", Role: domain.RoleViewer}},
		{"missing password", driving.CreateUserRequest{Email: "e@x.com", Name: "n", Role: domain.RoleViewer}},
		{"missing name", driving.CreateUserRequest{Email: "e@x.com", Password: "p", Role: domain.RoleViewer}},
		{"bad role", driving.CreateUserRequest{Email: "e@x.com", Password: "p", Name: "n", Role: domain.Role("superuser")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tt.req); err != domain.ErrInvalidInput {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestUserService_Create_DuplicateEmail(t *testing.T) {
	_, _, svc := newTestUserService()

	req := driving.CreateUserRequest{
		Email:    "dupe@example.com",
		Password: "password123",
		Name:     "Dupe",
		Role:     domain.RoleViewer,
	}
	if _, err := svc.Create(context.Background(), req); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(context.Background(), req); err != domain.ErrAlreadyExists {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestUserService_Update(t *testing.T) {
	_, sessionStore, svc := newTestUserService()

	user, _ := svc.Create(context.Background(), driving.CreateUserRequest{
		Email:    "user@example.com",
		Password: "password123",
		Name:     "User",
		Role:     domain.RoleAnalyst,
	})

	// Simulate an active session
	_ = sessionStore.Save(context.Background(), &domain.Session{
		ID:     "sess-1",
		UserID: user.ID,
		Token:  "tok-1",
	})

	newName := "Renamed"
	inactive := false
	updated, err := svc.Update(context.Background(), user.ID, driving.UpdateUserRequest{
		Name:   &newName,
		Active: &inactive,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Renamed" {
		t.Errorf("expected renamed user, got %s", updated.Name)
	}
	if updated.Active {
		t.Error("expected user to be deactivated")
	}

	// Deactivation invalidates sessions
	if sessionStore.Count() != 0 {
		t.Errorf("expected sessions to be deleted, got %d", sessionStore.Count())
	}
}

func TestUserService_Delete(t *testing.T) {
	userStore, _, svc := newTestUserService()

	user, _ := svc.Create(context.Background(), driving.CreateUserRequest{
		Email:    "user@example.com",
		Password: "password123",
		Name:     "User",
		Role:     domain.RoleViewer,
	})

	if err := svc.Delete(context.Background(), user.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := userStore.Get(context.Background(), user.ID); err != domain.ErrNotFound {
		t.Errorf("expected user to be gone, got %v", err)
	}

	if err := svc.Delete(context.Background(), "missing"); err != domain.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
