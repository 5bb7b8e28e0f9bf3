package audit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Entry merepresentasikan satu baris jejak audit.
type Entry struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// Filters membatasi hasil timeline audit.
type Filters struct {
	Actor    string
	Action   string
	Entity   string
	Page     int
	PageSize int
}

// Result membungkus hasil timeline dengan informasi paging.
type Result struct {
	Rows     []Entry
	Page     int
	PageSize int
	HasNext  bool
}

// Repository menyediakan akses baca dan retensi ke audit_logs.
type Repository interface {
	ListEntries(ctx context.Context, filters Filters, limit, offset int) ([]Entry, error)
	DeleteEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service mengoordinasikan pengambilan data audit.
type Service struct {
	repo Repository
}

// NewService membuat service audit baru.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline mengambil jejak audit dengan paging.
func (s *Service) Timeline(ctx context.Context, filters Filters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	filters.Actor = strings.TrimSpace(filters.Actor)
	filters.Action = strings.TrimSpace(filters.Action)
	filters.Entity = strings.TrimSpace(filters.Entity)

	rows, err := s.repo.ListEntries(ctx, filters, pageSize+1, (page-1)*pageSize)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	return Result{Rows: rows, Page: page, PageSize: pageSize, HasNext: hasNext}, nil
}

// Prune menghapus jejak audit yang melewati masa retensi.
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if s.repo == nil {
		return 0, fmt.Errorf("audit: repository not configured")
	}
	if retention <= 0 {
		retention = 365 * 24 * time.Hour
	}
	return s.repo.DeleteEntriesBefore(ctx, time.Now().Add(-retention))
}
