package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/application"
	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/domain"
)

// ConsentInternalService is the internal consent verification surface other
// services call before acting on a consent reference. Raw ServiceDesc with
// structpb payloads keeps the adapter free of generated contracts.
type ConsentInternalService interface {
	VerifyConsent(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type ConsentInternalServer struct {
	service *application.Service
}

func NewConsentInternalServer(service *application.Service) *ConsentInternalServer {
	return &ConsentInternalServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc ConsentInternalService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: "openfinance.consent.v1.ConsentInternalService",
		HandlerType: (*ConsentInternalService)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "VerifyConsent",
				Handler:    verifyConsentHandler(svc),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "contracts/proto/consent/v1/consent_internal.proto",
	}, svc)
}

func (s *ConsentInternalServer) VerifyConsent(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	consentID := fields["consent_id"].GetStringValue()
	participantID := fields["participant_id"].GetStringValue()
	permission := fields["permission"].GetStringValue()
	resourceID := fields["resource_id"].GetStringValue()
	if consentID == "" || participantID == "" || permission == "" {
		return nil, status.Error(codes.InvalidArgument, "consent_id, participant_id and permission are required")
	}

	verification, err := s.service.VerifyConsent(ctx, consentID, participantID, permission, resourceID)
	if err != nil {
		return nil, mapDomainError(err)
	}

	scopes := make([]any, 0, len(verification.Scopes))
	for _, scope := range verification.Scopes {
		scopes = append(scopes, scope)
	}
	resp, err := structpb.NewStruct(map[string]any{
		"active":     verification.Active,
		"status":     verification.Status,
		"scopes":     scopes,
		"expires_at": verification.ExpiresAt.Unix(),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func mapDomainError(err error) error {
	switch {
	case errors.Is(err, domain.ErrRequestValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrIdempotencyConflict):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func verifyConsentHandler(svc ConsentInternalService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.VerifyConsent(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/openfinance.consent.v1.ConsentInternalService/VerifyConsent",
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return svc.VerifyConsent(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}
