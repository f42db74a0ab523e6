package service

import (
	"context"
	"strings"

	"order-portal/internal/models"
)

// DashboardPageSize is the number of rows per dashboard page.
const DashboardPageSize = 10

// StatusFilterAll disables status filtering.
const StatusFilterAll = "all"

// DashboardQuery selects one page of the dashboard
type DashboardQuery struct {
	Search string `form:"search"`
	Status string `form:"status"`
	Page   int    `form:"page"`
}

// DashboardPage is one page of filtered dashboard rows
type DashboardPage struct {
	Orders      []models.OrderSummary `json:"orders"`
	Page        int                   `json:"page"`
	PageSize    int                   `json:"pageSize"`
	TotalPages  int                   `json:"totalPages"`
	TotalOrders int                   `json:"totalOrders"`
}

// Dashboard returns the page of cached orders matching q
func (s *OrderService) Dashboard(ctx context.Context, q DashboardQuery) (*DashboardPage, error) {
	orders, err := s.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	return Paginate(FilterOrders(orders, q), q.Page), nil
}

// FilterOrders keeps rows whose display id, customer name or description
// contains q.Search, ignoring case, and whose status matches q.Status.
func FilterOrders(orders []models.OrderSummary, q DashboardQuery) []models.OrderSummary {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	status := q.Status
	if status == "" {
		status = StatusFilterAll
	}

	filtered := make([]models.OrderSummary, 0, len(orders))
	for _, order := range orders {
		if status != StatusFilterAll && string(order.Status) != status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(order.DisplayID), search) &&
			!strings.Contains(strings.ToLower(order.UserName), search) &&
			!strings.Contains(strings.ToLower(order.OrderDescription), search) {
			continue
		}
		filtered = append(filtered, order)
	}
	return filtered
}

// Paginate slices orders into the 1-based page. Out of range pages are
// clamped.
func Paginate(orders []models.OrderSummary, page int) *DashboardPage {
	totalPages := (len(orders) + DashboardPageSize - 1) / DashboardPageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * DashboardPageSize
	end := start + DashboardPageSize
	if end > len(orders) {
		end = len(orders)
	}

	return &DashboardPage{
		Orders:      orders[start:end],
		Page:        page,
		PageSize:    DashboardPageSize,
		TotalPages:  totalPages,
		TotalOrders: len(orders),
	}
}
