package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"pokeguide-backend/internal/model"
	"pokeguide-backend/internal/repository"

	"go.uber.org/zap"
)

type Hub interface {
	UserNotifier
	Broadcast(event *model.WSEvent)
	OnlineCount() int
}

// AuditNotifier records privileged changes somewhere humans read them.
type AuditNotifier interface {
	RoleChanged(actor, target *model.User, from model.Role)
}

type AdminService struct {
	users    UserStore
	sessions RefreshTokenStore
	hub      Hub
	audit    AuditNotifier
	log      *zap.Logger
}

func NewAdminService(users UserStore, sessions RefreshTokenStore, hub Hub, audit AuditNotifier, log *zap.Logger) *AdminService {
	return &AdminService{users: users, sessions: sessions, hub: hub, audit: audit, log: log}
}

func (s *AdminService) Stats(ctx context.Context) (*model.AdminStats, error) {
	total, err := s.users.CountTotal(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	active, err := s.sessions.CountActive(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	return &model.AdminStats{UsersTotal: total, SessionsActive: active, Online: s.hub.OnlineCount()}, nil
}

// ChangeRole sets the role of userID. The new role reaches the user's access
// token on its next refresh; open sockets are told to refresh now.
func (s *AdminService) ChangeRole(ctx context.Context, actor *model.Principal, userID, role string) (*model.User, error) {
	newRole, err := model.ParseRole(strings.ToLower(strings.TrimSpace(role)))
	if err != nil {
		return nil, invalid("role must be player or admin")
	}
	if actor.UserID == userID {
		return nil, invalid("admins cannot change their own role")
	}

	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	previous := target.Role
	if previous == newRole {
		return target, nil
	}

	updated, err := s.users.UpdateRole(ctx, userID, newRole)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update role: %w", err)
	}

	s.log.Info("role changed",
		zap.String("actor_id", actor.UserID),
		zap.String("user_id", userID),
		zap.String("from", string(previous)),
		zap.String("to", string(newRole)),
	)

	data, _ := json.Marshal(model.WSRoleChanged{Role: newRole})
	s.hub.SendToUser(userID, &model.WSEvent{Type: model.WSEventRoleChanged, Data: data})

	if s.audit != nil {
		if actorUser, err := s.users.GetByID(ctx, actor.UserID); err == nil {
			s.audit.RoleChanged(actorUser, updated, previous)
		}
	}
	return updated, nil
}

func (s *AdminService) Announce(message string) (int, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return 0, invalid("message is required")
	}
	data, _ := json.Marshal(model.WSAnnounce{Message: message})
	s.hub.Broadcast(&model.WSEvent{Type: model.WSEventAnnounce, Data: data})
	return s.hub.OnlineCount(), nil
}
