package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const (
	// ClickServiceName is the fully-qualified name of the ClickService service.
	ClickServiceName = "emergencyclick.v1.ClickService"

	ClickServiceRecordClickProcedure = "/emergencyclick.v1.ClickService/RecordClick"
	ClickServiceListClicksProcedure  = "/emergencyclick.v1.ClickService/ListClicks"
)

// Click is one recorded press of the emergency button.
type Click struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	// CapturedAt is Unix milliseconds.
	CapturedAt int64 `json:"capturedAt"`
}

type RecordClickRequest struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	CapturedAt int64   `json:"capturedAt"`
}

type RecordClickResponse struct {
	Click *Click `json:"click"`
}

type ListClicksRequest struct {
	Limit int `json:"limit,omitempty"`
}

type ListClicksResponse struct {
	Clicks []*Click `json:"clicks"`
}

// ClickServiceHandler is implemented by the server side of ClickService.
type ClickServiceHandler interface {
	RecordClick(context.Context, *connect.Request[RecordClickRequest]) (*connect.Response[RecordClickResponse], error)
	ListClicks(context.Context, *connect.Request[ListClicksRequest]) (*connect.Response[ListClicksResponse], error)
}

// NewClickServiceHandler builds an HTTP handler from the service implementation.
func NewClickServiceHandler(svc ClickServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	record := connect.NewUnaryHandler(ClickServiceRecordClickProcedure, svc.RecordClick, opts...)
	list := connect.NewUnaryHandler(ClickServiceListClicksProcedure, svc.ListClicks, opts...)
	return "/" + ClickServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ClickServiceRecordClickProcedure:
			record.ServeHTTP(w, r)
		case ClickServiceListClicksProcedure:
			list.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// ClickServiceClient is a client for ClickService.
type ClickServiceClient interface {
	RecordClick(context.Context, *connect.Request[RecordClickRequest]) (*connect.Response[RecordClickResponse], error)
	ListClicks(context.Context, *connect.Request[ListClicksRequest]) (*connect.Response[ListClicksResponse], error)
}

// NewClickServiceClient constructs a client for ClickService.
func NewClickServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) ClickServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &clickServiceClient{
		record: connect.NewClient[RecordClickRequest, RecordClickResponse](httpClient, baseURL+ClickServiceRecordClickProcedure, opts...),
		list:   connect.NewClient[ListClicksRequest, ListClicksResponse](httpClient, baseURL+ClickServiceListClicksProcedure, opts...),
	}
}

type clickServiceClient struct {
	record *connect.Client[RecordClickRequest, RecordClickResponse]
	list   *connect.Client[ListClicksRequest, ListClicksResponse]
}

func (c *clickServiceClient) RecordClick(ctx context.Context, req *connect.Request[RecordClickRequest]) (*connect.Response[RecordClickResponse], error) {
	return c.record.CallUnary(ctx, req)
}

func (c *clickServiceClient) ListClicks(ctx context.Context, req *connect.Request[ListClicksRequest]) (*connect.Response[ListClicksResponse], error) {
	return c.list.CallUnary(ctx, req)
}
