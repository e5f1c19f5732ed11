package grpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/npremz/astrobackoffice/internal/server/audit"
	"github.com/npremz/astrobackoffice/internal/server/models"
)

func (s *GRPCServer) PurgeExpired(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	res, err := s.cleaner.Cleanup(ctx)
	if err != nil {
		s.logger.Error(ctx, "purge failed", "error", err)
		s.sink.Record(ctx, &models.AuditLog{
			Action:       audit.ActionCleanup,
			ResourceType: audit.ResourceSystem,
			ResourceName: "grpc",
			Status:       models.AuditFailed,
			ErrorMessage: "cleanup failed",
		})
		return nil, status.Error(codes.Internal, "internal error")
	}

	s.sink.Record(ctx, &models.AuditLog{
		Action:       audit.ActionCleanup,
		ResourceType: audit.ResourceSystem,
		ResourceName: "grpc",
		Status:       models.AuditSuccess,
		Changes:      map[string]any{"sessions": res.Sessions, "invitations": res.Invitations},
	})
	s.logger.Info(ctx, "purged expired rows", "sessions", res.Sessions, "invitations", res.Invitations)

	return structpb.NewStruct(map[string]any{
		"sessions":    res.Sessions,
		"invitations": res.Invitations,
	})
}
