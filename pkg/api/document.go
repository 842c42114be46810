package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const (
	// DocumentServiceName is the fully-qualified name of the DocumentService service.
	DocumentServiceName = "emergencyclick.v1.DocumentService"

	DocumentServiceGetDocumentProcedure        = "/emergencyclick.v1.DocumentService/GetDocument"
	DocumentServiceSetContactFieldProcedure    = "/emergencyclick.v1.DocumentService/SetContactField"
	DocumentServiceDeleteContactFieldProcedure = "/emergencyclick.v1.DocumentService/DeleteContactField"
)

// ContactEntry is one field of a user document's emails mapping.
type ContactEntry struct {
	Key   string `json:"key"`
	Email string `json:"email"`
}

// GetDocumentRequest reads the caller's own document.
type GetDocumentRequest struct{}

type GetDocumentResponse struct {
	// Found is false when the caller has no document yet.
	Found    bool           `json:"found"`
	Email    string         `json:"email,omitempty"`
	Username string         `json:"username,omitempty"`
	Emails   []ContactEntry `json:"emails,omitempty"`
}

type SetContactFieldRequest struct {
	Key   string `json:"key"`
	Email string `json:"email"`
}

type SetContactFieldResponse struct{}

type DeleteContactFieldRequest struct {
	Key string `json:"key"`
}

type DeleteContactFieldResponse struct{}

// DocumentServiceHandler is implemented by the server side of DocumentService.
type DocumentServiceHandler interface {
	GetDocument(context.Context, *connect.Request[GetDocumentRequest]) (*connect.Response[GetDocumentResponse], error)
	SetContactField(context.Context, *connect.Request[SetContactFieldRequest]) (*connect.Response[SetContactFieldResponse], error)
	DeleteContactField(context.Context, *connect.Request[DeleteContactFieldRequest]) (*connect.Response[DeleteContactFieldResponse], error)
}

// NewDocumentServiceHandler builds an HTTP handler from the service implementation.
func NewDocumentServiceHandler(svc DocumentServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	get := connect.NewUnaryHandler(DocumentServiceGetDocumentProcedure, svc.GetDocument, opts...)
	set := connect.NewUnaryHandler(DocumentServiceSetContactFieldProcedure, svc.SetContactField, opts...)
	del := connect.NewUnaryHandler(DocumentServiceDeleteContactFieldProcedure, svc.DeleteContactField, opts...)
	return "/" + DocumentServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case DocumentServiceGetDocumentProcedure:
			get.ServeHTTP(w, r)
		case DocumentServiceSetContactFieldProcedure:
			set.ServeHTTP(w, r)
		case DocumentServiceDeleteContactFieldProcedure:
			del.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// DocumentServiceClient is a client for DocumentService.
type DocumentServiceClient interface {
	GetDocument(context.Context, *connect.Request[GetDocumentRequest]) (*connect.Response[GetDocumentResponse], error)
	SetContactField(context.Context, *connect.Request[SetContactFieldRequest]) (*connect.Response[SetContactFieldResponse], error)
	DeleteContactField(context.Context, *connect.Request[DeleteContactFieldRequest]) (*connect.Response[DeleteContactFieldResponse], error)
}

// NewDocumentServiceClient constructs a client for DocumentService.
func NewDocumentServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) DocumentServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &documentServiceClient{
		get: connect.NewClient[GetDocumentRequest, GetDocumentResponse](httpClient, baseURL+DocumentServiceGetDocumentProcedure, opts...),
		set: connect.NewClient[SetContactFieldRequest, SetContactFieldResponse](httpClient, baseURL+DocumentServiceSetContactFieldProcedure, opts...),
		del: connect.NewClient[DeleteContactFieldRequest, DeleteContactFieldResponse](httpClient, baseURL+DocumentServiceDeleteContactFieldProcedure, opts...),
	}
}

type documentServiceClient struct {
	get *connect.Client[GetDocumentRequest, GetDocumentResponse]
	set *connect.Client[SetContactFieldRequest, SetContactFieldResponse]
	del *connect.Client[DeleteContactFieldRequest, DeleteContactFieldResponse]
}

func (c *documentServiceClient) GetDocument(ctx context.Context, req *connect.Request[GetDocumentRequest]) (*connect.Response[GetDocumentResponse], error) {
	return c.get.CallUnary(ctx, req)
}

func (c *documentServiceClient) SetContactField(ctx context.Context, req *connect.Request[SetContactFieldRequest]) (*connect.Response[SetContactFieldResponse], error) {
	return c.set.CallUnary(ctx, req)
}

func (c *documentServiceClient) DeleteContactField(ctx context.Context, req *connect.Request[DeleteContactFieldRequest]) (*connect.Response[DeleteContactFieldResponse], error) {
	return c.del.CallUnary(ctx, req)
}
