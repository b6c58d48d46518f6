package server

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	corev3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	authv3 "github.com/envoyproxy/go-control-plane/envoy/service/auth/v3"
	typev3 "github.com/envoyproxy/go-control-plane/envoy/type/v3"
	"github.com/google/uuid"
	"google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alechenninger/readgate/internal/attributes"
	"github.com/alechenninger/readgate/internal/metrics"
	"github.com/alechenninger/readgate/internal/policy"
	"github.com/alechenninger/readgate/internal/probe"
	"github.com/alechenninger/readgate/internal/route"
)

const (
	// DefaultTokenHeader is the header the bearer token is read from.
	// Envoy lowercases header names in CheckRequests.
	DefaultTokenHeader = "authorization"

	// DefaultHeaderPrefix prefixes the attribute headers sent upstream
	DefaultHeaderPrefix = "x-readgate-"
)

// AuthzConfig configures how Check requests map onto attributes
type AuthzConfig struct {
	// BasePath is removed from the request path to form proxy.pathsuffix
	BasePath string

	// TokenHeader names the header carrying the bearer token
	TokenHeader string

	// HeaderPrefix prefixes attribute headers added to allowed requests
	HeaderPrefix string

	// StripCredentials removes the token header before forwarding upstream
	StripCredentials bool

	// Policy decides whether the request is admitted. Nil admits everything.
	Policy policy.Policy

	Logger *slog.Logger
}

// AuthzServer implements Envoy's ext_authz Authorization service
type AuthzServer struct {
	authv3.UnimplementedAuthorizationServer

	pipeline *Pipeline
	policy   policy.Policy
	logger   *slog.Logger

	basePath         string
	tokenHeader      string
	headerPrefix     string
	stripCredentials bool
}

// NewAuthzServer creates a new ext_authz server
func NewAuthzServer(pipeline *Pipeline, cfg AuthzConfig) *AuthzServer {
	if pipeline == nil {
		pipeline = NewPipeline(nil, nil)
	}
	if cfg.TokenHeader == "" {
		cfg.TokenHeader = DefaultTokenHeader
	}
	if cfg.HeaderPrefix == "" {
		cfg.HeaderPrefix = DefaultHeaderPrefix
	}
	if cfg.Policy == nil {
		cfg.Policy = policy.AllowAll{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &AuthzServer{
		pipeline:         pipeline,
		policy:           cfg.Policy,
		logger:           cfg.Logger,
		basePath:         cfg.BasePath,
		tokenHeader:      strings.ToLower(cfg.TokenHeader),
		headerPrefix:     strings.ToLower(cfg.HeaderPrefix),
		stripCredentials: cfg.StripCredentials,
	}
}

// Check implements the ext_authz check endpoint
func (s *AuthzServer) Check(ctx context.Context, req *authv3.CheckRequest) (*authv3.CheckResponse, error) {
	httpReq := req.GetAttributes().GetRequest().GetHttp()
	if httpReq == nil {
		metrics.AdmissionDecisionsTotal.WithLabelValues("denied").Inc()
		return s.denyResponse(codes.InvalidArgument, typev3.StatusCode_BadRequest, "no HTTP request attributes"), nil
	}

	requestID := httpReq.GetId()
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx = probe.ContextWithRequestID(ctx, requestID)

	// 1. Build the request attributes the gateway would have
	store := s.buildAttributes(httpReq)

	// 2. Classify and introspect
	result := s.pipeline.Run(ctx, store)
	snapshot := attributes.Snapshot(store)

	// 3. Admission
	decision := s.policy.Evaluate(ctx, snapshot)
	if !decision.Allowed {
		if decision.Err != nil {
			metrics.AdmissionDecisionsTotal.WithLabelValues("error").Inc()
			s.logger.LogAttrs(ctx, slog.LevelWarn, "Admission policy failed",
				slog.String("request_id", requestID),
				slog.String("error", decision.Err.Error()),
			)
		} else {
			metrics.AdmissionDecisionsTotal.WithLabelValues("denied").Inc()
			s.logger.LogAttrs(ctx, slog.LevelInfo, "Request denied",
				slog.String("request_id", requestID),
				slog.String("reason", decision.Reason),
			)
		}
		if !result.Claims.Valid {
			return s.denyResponse(codes.Unauthenticated, typev3.StatusCode_Unauthorized, result.Claims.ErrorMessage()), nil
		}
		return s.denyResponse(codes.PermissionDenied, typev3.StatusCode_Forbidden, decision.Reason), nil
	}

	metadata, err := structpb.NewStruct(snapshot)
	if err != nil {
		metrics.AdmissionDecisionsTotal.WithLabelValues("error").Inc()
		return s.denyResponse(codes.Internal, typev3.StatusCode_InternalServerError, fmt.Sprintf("failed to encode attributes: %v", err)), nil
	}

	metrics.AdmissionDecisionsTotal.WithLabelValues("allowed").Inc()

	// 4. Return OK with attributes in headers and metadata
	return &authv3.CheckResponse{
		Status: &status.Status{
			Code: int32(codes.OK),
		},
		HttpResponse: &authv3.CheckResponse_OkResponse{
			OkResponse: &authv3.OkHttpResponse{
				Headers:         s.attributeHeaders(snapshot),
				HeadersToRemove: s.headersToRemove(snapshot),
			},
		},
		DynamicMetadata: metadata,
	}, nil
}

// buildAttributes seeds a store with the gateway's input attributes
func (s *AuthzServer) buildAttributes(httpReq *authv3.AttributeContext_HttpRequest) attributes.Map {
	path := route.TrimBasePath(s.basePath, httpReq.GetPath())
	tok := tokenFromHeader(s.tokenHeader, httpReq.GetHeaders()[s.tokenHeader])
	return attributes.NewMap(httpReq.GetMethod(), path, tok)
}

// AttributeHeader returns the header name an attribute key is forwarded under
func AttributeHeader(prefix, key string) string {
	return prefix + strings.ReplaceAll(key, ".", "-")
}

func (s *AuthzServer) attributeHeaders(snapshot map[string]any) []*corev3.HeaderValueOption {
	headers := make([]*corev3.HeaderValueOption, 0, len(snapshot))
	for _, key := range attributes.OutputKeys {
		value, ok := snapshot[key]
		if !ok {
			continue
		}
		headers = append(headers, &corev3.HeaderValueOption{
			Header: &corev3.HeaderValue{
				Key:   AttributeHeader(s.headerPrefix, key),
				Value: headerValue(value),
			},
			AppendAction: corev3.HeaderValueOption_OVERWRITE_IF_EXISTS_OR_ADD,
		})
	}
	return headers
}

// headersToRemove drops attribute headers the client may have forged for
// keys this request did not produce
func (s *AuthzServer) headersToRemove(snapshot map[string]any) []string {
	var remove []string
	for _, key := range attributes.OutputKeys {
		if _, ok := snapshot[key]; !ok {
			remove = append(remove, AttributeHeader(s.headerPrefix, key))
		}
	}
	if s.stripCredentials {
		remove = append(remove, s.tokenHeader)
	}
	return remove
}

func headerValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

// denyResponse creates a denial response
func (s *AuthzServer) denyResponse(code codes.Code, httpStatus typev3.StatusCode, message string) *authv3.CheckResponse {
	return &authv3.CheckResponse{
		Status: &status.Status{
			Code:    int32(code),
			Message: message,
		},
		HttpResponse: &authv3.CheckResponse_DeniedResponse{
			DeniedResponse: &authv3.DeniedHttpResponse{
				Status: &typev3.HttpStatus{Code: httpStatus},
				Body:   message,
			},
		},
	}
}
