// Package services implements the gRPC services. Messages are the well-known
// wrapper and struct types, so no generated stubs are needed: the response
// Struct carries the same JSON document the HTTP API returns.
package services

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/turtacn/helmkit/internal/application/notation"
	"github.com/turtacn/helmkit/internal/domain/helm"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/internal/interfaces/wire"
	"github.com/turtacn/helmkit/pkg/errors"
)

const NotationServiceName = "helmkit.v1.NotationService"

// NotationServiceServer is the server API of helmkit.v1.NotationService.
type NotationServiceServer interface {
	Validate(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Analyze(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Canonicalize(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

// NotationService adapts notation.Service to gRPC.
type NotationService struct {
	svc    notation.Service
	logger logging.Logger
}

var _ NotationServiceServer = (*NotationService)(nil)

func NewNotationService(svc notation.Service, logger logging.Logger) *NotationService {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &NotationService{svc: svc, logger: logger}
}

// Validate returns {valid, version, violations}. Unparseable input is an
// InvalidArgument error.
func (s *NotationService) Validate(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	text, err := notationText(req)
	if err != nil {
		return nil, err
	}
	res, err := s.svc.Validate(ctx, text)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(wire.ToValidateResponse(res))
}

// Analyze returns the full analysis report; failed operations are listed
// under errors rather than failing the call.
func (s *NotationService) Analyze(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	text, err := notationText(req)
	if err != nil {
		return nil, err
	}
	report, err := s.svc.Analyze(ctx, text, notation.AnalyzeOptions{})
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(wire.ToReport(report))
}

// Canonicalize returns {canonical_helm, canonical_helm2}.
func (s *NotationService) Canonicalize(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	text, err := notationText(req)
	if err != nil {
		return nil, err
	}
	h1, err := s.svc.Canonical(ctx, text, helm.HELM1)
	if err != nil {
		return nil, toStatus(err)
	}
	h2, err := s.svc.Canonical(ctx, text, helm.HELM2)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(map[string]string{"canonical_helm": h1, "canonical_helm2": h2})
}

func notationText(req *wrapperspb.StringValue) (string, error) {
	text := strings.TrimSpace(req.GetValue())
	if text == "" {
		return "", status.Error(codes.InvalidArgument, "notation is required")
	}
	return text, nil
}

func toStruct(v interface{}) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// toStatus maps an application error to a gRPC status. The flattened error
// (code, section, offset, violations) is attached as a Struct detail.
func toStatus(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	if stderrors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, err.Error())
	}

	var code codes.Code
	switch errors.HTTPStatus(err) {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		code = codes.InvalidArgument
	case http.StatusNotFound:
		code = codes.NotFound
	case http.StatusServiceUnavailable:
		code = codes.Unavailable
	case http.StatusGatewayTimeout:
		code = codes.DeadlineExceeded
	default:
		return status.Error(codes.Internal, "internal error")
	}

	resp := wire.ToErrorResponse(err)
	st := status.New(code, resp.Error())
	detail, derr := toStruct(resp)
	if derr != nil {
		return st.Err()
	}
	if withDetail, werr := st.WithDetails(detail); werr == nil {
		st = withDetail
	}
	return st.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Service descriptor
// ─────────────────────────────────────────────────────────────────────────────

func unaryHandler(call func(NotationServiceServer, context.Context, *wrapperspb.StringValue) (*structpb.Struct, error), method string) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(wrapperspb.StringValue)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(NotationServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + NotationServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(NotationServiceServer), ctx, req.(*wrapperspb.StringValue))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// NotationServiceDesc describes helmkit.v1.NotationService for
// grpc.Server.RegisterService.
var NotationServiceDesc = grpc.ServiceDesc{
	ServiceName: NotationServiceName,
	HandlerType: (*NotationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Validate", Handler: unaryHandler(NotationServiceServer.Validate, "Validate")},
		{MethodName: "Analyze", Handler: unaryHandler(NotationServiceServer.Analyze, "Analyze")},
		{MethodName: "Canonicalize", Handler: unaryHandler(NotationServiceServer.Canonicalize, "Canonicalize")},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "helmkit/v1/notation.proto",
}

// NotationServiceClient is the client API of helmkit.v1.NotationService.
type NotationServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewNotationServiceClient(cc grpc.ClientConnInterface) *NotationServiceClient {
	return &NotationServiceClient{cc: cc}
}

func (c *NotationServiceClient) Validate(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Validate", in, opts...)
}

func (c *NotationServiceClient) Analyze(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Analyze", in, opts...)
}

func (c *NotationServiceClient) Canonicalize(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Canonicalize", in, opts...)
}

func (c *NotationServiceClient) invoke(ctx context.Context, method string, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+NotationServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
