package grpc

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dmitrijs2005/teamboard/internal/common"
	"github.com/dmitrijs2005/teamboard/internal/server/models"
)

// InviteAPI is the part of the invite service exposed to internal callers.
type InviteAPI interface {
	InviteUserToBoard(ctx context.Context, requesterID, email, boardID string) (string, error)
	AcceptInvite(ctx context.Context, userID, token string) (*models.Board, error)
}

// InviteUser invites req.email to req.board_id on behalf of the caller and
// returns the invite token.
func (s *GRPCServer) InviteUser(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	fields := req.GetFields()
	email := fields["email"].GetStringValue()
	boardID := fields["board_id"].GetStringValue()
	if email == "" || boardID == "" {
		return nil, status.Error(codes.InvalidArgument, "email and board_id are required")
	}

	token, err := s.invites.InviteUserToBoard(ctx, userID, email, boardID)
	if err != nil {
		return nil, s.statusFromError(ctx, "invite", err)
	}

	s.logger.Info(ctx, "Invite issued", "board_id", boardID)
	return wrapperspb.String(token), nil
}

// AcceptInvite redeems the invite token in req for the caller and returns
// the joined board.
func (s *GRPCServer) AcceptInvite(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "token is required")
	}

	board, err := s.invites.AcceptInvite(ctx, userID, req.GetValue())
	if err != nil {
		return nil, s.statusFromError(ctx, "accept invite", err)
	}

	out, err := boardToStruct(board)
	if err != nil {
		s.logger.Error(ctx, err.Error())
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func boardToStruct(b *models.Board) (*structpb.Struct, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// statusFromError maps service error kinds to gRPC codes. Internal errors
// are logged and returned without details.
func (s *GRPCServer) statusFromError(ctx context.Context, op string, err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, common.ErrorValidation), errors.Is(err, common.ErrorBadRequest):
		code = codes.InvalidArgument
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrDecryption):
		code = codes.Unauthenticated
	case errors.Is(err, common.ErrorForbidden):
		code = codes.PermissionDenied
	case errors.Is(err, common.ErrorNotFound):
		code = codes.NotFound
	case errors.Is(err, common.ErrorConflict):
		code = codes.AlreadyExists
	default:
		s.logger.Error(ctx, op+" failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}
