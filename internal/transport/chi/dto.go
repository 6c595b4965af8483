package chi

import (
	"encoding/json"
	"time"

	"github.com/kailas-cloud/metarepo/internal/domain/record"
	"github.com/kailas-cloud/metarepo/internal/domain/search/result"
)

// Error codes returned in error response bodies.
const (
	codeBadRequest       = "bad_request"
	codeUnauthorized     = "unauthorized"
	codeNotFound         = "not_found"
	codeAlreadyExists    = "already_exists"
	codeValidationFailed = "validation_failed"
	codeInternalError    = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type resourceRequest struct {
	ID           string `json:"id,omitempty"`
	URI          string `json:"uri"`
	ResourceType string `json:"resource_type"`
	Title        string `json:"title,omitempty"`
	Content      string `json:"content"`
	Language     string `json:"language,omitempty"`
	UserID       string `json:"user_id,omitempty"`
}

type attachmentRequest struct {
	ID       string          `json:"id,omitempty"`
	Value    json.RawMessage `json:"value"`
	Language string          `json:"language,omitempty"`
	UserID   string          `json:"user_id,omitempty"`
}

type resourceResponse struct {
	ID           string    `json:"id"`
	URI          string    `json:"uri"`
	ResourceType string    `json:"resource_type"`
	Title        string    `json:"title,omitempty"`
	Content      string    `json:"content"`
	Language     string    `json:"language,omitempty"`
	Highlight    *string   `json:"highlight,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type attachmentResponse struct {
	ID        string          `json:"id"`
	Value     json.RawMessage `json:"value"`
	Language  string          `json:"language,omitempty"`
	Highlight *string         `json:"highlight,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type resourceListResponse struct {
	Items      []resourceResponse `json:"items"`
	TotalCount int                `json:"total_count"`
	Page       int                `json:"page"`
	PerPage    int                `json:"per_page"`
}

type attachmentListResponse struct {
	Items      []attachmentResponse `json:"items"`
	TotalCount int                  `json:"total_count"`
	Page       int                  `json:"page"`
	PerPage    int                  `json:"per_page"`
}

func resourceToDTO(rec *record.Record) resourceResponse {
	resp := resourceResponse{
		ID:           rec.UUID(),
		URI:          rec.URI(),
		ResourceType: rec.ResourceType(),
		Title:        rec.Title(),
		Content:      rec.Content(),
		Language:     rec.Language(),
		CreatedAt:    rec.CreatedAt(),
		UpdatedAt:    rec.UpdatedAt(),
	}
	if h, ok := rec.Highlight(); ok {
		resp.Highlight = &h
	}
	return resp
}

func attachmentToDTO(rec *record.Record) attachmentResponse {
	resp := attachmentResponse{
		ID:        rec.UUID(),
		Value:     rec.Value(),
		Language:  rec.Language(),
		CreatedAt: rec.CreatedAt(),
		UpdatedAt: rec.UpdatedAt(),
	}
	if h, ok := rec.Highlight(); ok {
		resp.Highlight = &h
	}
	return resp
}

func resourceListToDTO(res result.Result) resourceListResponse {
	recs := res.Records()
	items := make([]resourceResponse, len(recs))
	for i := range recs {
		items[i] = resourceToDTO(&recs[i])
	}
	return resourceListResponse{
		Items:      items,
		TotalCount: res.TotalCount(),
		Page:       res.Page(),
		PerPage:    res.PerPage(),
	}
}

func attachmentListToDTO(res result.Result) attachmentListResponse {
	recs := res.Records()
	items := make([]attachmentResponse, len(recs))
	for i := range recs {
		items[i] = attachmentToDTO(&recs[i])
	}
	return attachmentListResponse{
		Items:      items,
		TotalCount: res.TotalCount(),
		Page:       res.Page(),
		PerPage:    res.PerPage(),
	}
}
