package types

import (
	"net/url"
	"strconv"

	"github.com/monocle-dev/workspace/internal/models"
)

type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func NewUserResponse(u models.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ProjectQuery is the list endpoint's filter. Zero values mean "no filter".
type ProjectQuery struct {
	Page   int
	Limit  int
	Status string
	Search string
}

// Values encodes the query the way the list endpoint expects it: status only when it
// is not "all", search only when non-empty.
func (q ProjectQuery) Values() url.Values {
	v := url.Values{}
	page := q.Page
	if page < 1 {
		page = DefaultPage
	}
	limit := q.Limit
	if limit < 1 {
		limit = DefaultPageLimit
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(limit))
	if q.Status != "" && q.Status != StatusFilterAll {
		v.Set("status", q.Status)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	return v
}

type Pagination struct {
	CurrentPage int `json:"currentPage"`
	Limit       int `json:"limit"`
	Total       int `json:"total"`
	TotalPages  int `json:"totalPages"`
}

// NewPagination computes totalPages as ceil(total/limit).
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{CurrentPage: page, Limit: limit, Total: total, TotalPages: totalPages}
}

type ProjectListResponse struct {
	Data       []models.Project `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

type ProjectDetailResponse struct {
	Project    models.Project    `json:"project"`
	Members    []models.Member   `json:"members"`
	Activities []models.Activity `json:"activities"`
}

type ProjectUpdateResponse struct {
	Project models.Project `json:"project"`
	Message string         `json:"message"`
}

type BillingListResponse struct {
	Data []models.BillingRecord `json:"data"`
}

type BillingSaveResponse struct {
	Message string               `json:"message"`
	Data    models.BillingRecord `json:"data"`
}

type RemovePaymentMethodRequest struct {
	ID string `json:"id" binding:"required"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

const (
	EventConnected = "connected"
	EventRefresh   = "refresh"
)

// ProjectEvent is pushed to websocket subscribers of a project.
type ProjectEvent struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	ProjectID string `json:"projectId"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}
