package task

import (
	"context"
	"net/mail"
	"strings"

	"studiodesk/pkg/errutil"

	"go.uber.org/zap"
)

type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var v errutil.Validator
	v.Check(strings.TrimSpace(req.Name) != "", "name", "is required")
	_, mailErr := mail.ParseAddress(email)
	v.Check(email != "" && mailErr == nil, "email", "must be a valid address")
	if err := v.Err(); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindUserByEmail(ctx, email); err == nil {
		return nil, errutil.Conflict("email already registered", nil,
			errutil.WithDetails(errutil.Detail{Field: "email", Message: "already registered"}))
	} else if !isNotFound(err) {
		return nil, errutil.Internal("failed to check email", err)
	}

	u := &User{
		ID:    s.node.Generate().String(),
		Name:  strings.TrimSpace(req.Name),
		Email: email,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, errutil.Internal("failed to create user", err)
	}
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, errutil.NotFound("user not found", err)
		}
		return nil, errutil.Internal("failed to load user", err)
	}
	return u, nil
}

// SetCapacity flips the at-capacity flag and rescores in the background.
func (s *Service) SetCapacity(ctx context.Context, id string, atCapacity bool) (*User, error) {
	if err := s.repo.SetCapacity(ctx, id, atCapacity); err != nil {
		if isNotFound(err) {
			return nil, errutil.NotFound("user not found", err)
		}
		return nil, errutil.Internal("failed to update capacity", err)
	}

	logger(ctx).Info("user capacity changed", zap.String("user_id", id), zap.Bool("at_capacity", atCapacity))
	s.TriggerRecalculation(ctx)
	return s.GetUser(ctx, id)
}
