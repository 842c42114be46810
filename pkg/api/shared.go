package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const (
	// SharedServiceName is the fully-qualified name of the SharedService service.
	SharedServiceName = "emergencyclick.v1.SharedService"

	SharedServiceUpdateFieldsProcedure = "/emergencyclick.v1.SharedService/UpdateFields"
	SharedServiceGetFieldsProcedure    = "/emergencyclick.v1.SharedService/GetFields"
)

type UpdateFieldsRequest struct {
	Path string `json:"path"`
	// Fields maps field names to values; a null value deletes the field.
	Fields map[string]*string `json:"fields"`
}

type UpdateFieldsResponse struct{}

type GetFieldsRequest struct {
	Path string `json:"path"`
}

type GetFieldsResponse struct {
	Fields map[string]string `json:"fields"`
}

// SharedServiceHandler is implemented by the server side of SharedService.
type SharedServiceHandler interface {
	UpdateFields(context.Context, *connect.Request[UpdateFieldsRequest]) (*connect.Response[UpdateFieldsResponse], error)
	GetFields(context.Context, *connect.Request[GetFieldsRequest]) (*connect.Response[GetFieldsResponse], error)
}

// NewSharedServiceHandler builds an HTTP handler from the service implementation.
func NewSharedServiceHandler(svc SharedServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	update := connect.NewUnaryHandler(SharedServiceUpdateFieldsProcedure, svc.UpdateFields, opts...)
	get := connect.NewUnaryHandler(SharedServiceGetFieldsProcedure, svc.GetFields, opts...)
	return "/" + SharedServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case SharedServiceUpdateFieldsProcedure:
			update.ServeHTTP(w, r)
		case SharedServiceGetFieldsProcedure:
			get.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// SharedServiceClient is a client for SharedService.
type SharedServiceClient interface {
	UpdateFields(context.Context, *connect.Request[UpdateFieldsRequest]) (*connect.Response[UpdateFieldsResponse], error)
	GetFields(context.Context, *connect.Request[GetFieldsRequest]) (*connect.Response[GetFieldsResponse], error)
}

// NewSharedServiceClient constructs a client for SharedService.
func NewSharedServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) SharedServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &sharedServiceClient{
		update: connect.NewClient[UpdateFieldsRequest, UpdateFieldsResponse](httpClient, baseURL+SharedServiceUpdateFieldsProcedure, opts...),
		get:    connect.NewClient[GetFieldsRequest, GetFieldsResponse](httpClient, baseURL+SharedServiceGetFieldsProcedure, opts...),
	}
}

type sharedServiceClient struct {
	update *connect.Client[UpdateFieldsRequest, UpdateFieldsResponse]
	get    *connect.Client[GetFieldsRequest, GetFieldsResponse]
}

func (c *sharedServiceClient) UpdateFields(ctx context.Context, req *connect.Request[UpdateFieldsRequest]) (*connect.Response[UpdateFieldsResponse], error) {
	return c.update.CallUnary(ctx, req)
}

func (c *sharedServiceClient) GetFields(ctx context.Context, req *connect.Request[GetFieldsRequest]) (*connect.Response[GetFieldsResponse], error) {
	return c.get.CallUnary(ctx, req)
}
