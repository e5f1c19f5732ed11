package services

import (
	"context"
	"fmt"
)

// CleanupResult counts the rows purged by one maintenance run.
type CleanupResult struct {
	Sessions    int64 `json:"sessions"`
	Invitations int64 `json:"invitations"`
}

// MaintenanceService purges expired sessions and invitations. It backs the
// cron endpoint and the ops gRPC PurgeExpired call.
type MaintenanceService struct {
	sessions    *SessionService
	invitations *InvitationService
}

func NewMaintenanceService(sessions *SessionService, invitations *InvitationService) *MaintenanceService {
	return &MaintenanceService{sessions: sessions, invitations: invitations}
}

func (s *MaintenanceService) Cleanup(ctx context.Context) (*CleanupResult, error) {
	sessions, err := s.sessions.CleanupExpired(ctx)
	if err != nil {
		return nil, fmt.Errorf("cleanup sessions: %w", err)
	}
	invitations, err := s.invitations.CleanupExpired(ctx)
	if err != nil {
		return nil, fmt.Errorf("cleanup invitations: %w", err)
	}
	return &CleanupResult{Sessions: sessions, Invitations: invitations}, nil
}
