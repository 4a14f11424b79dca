package api

import (
	"net/http"
	"strconv"

	"hostbook/internal/repository"
)

type AdminHandler struct {
	Users    *repository.UserRepository
	Bookings *repository.BookingRepository
}

func NewAdminHandler(users *repository.UserRepository, bookings *repository.BookingRepository) *AdminHandler {
	return &AdminHandler{Users: users, Bookings: bookings}
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	totalUsers, err := h.Users.CountAll()
	if err != nil {
		writeErr(w, err)
		return
	}
	totalHosts, err := h.Users.CountByRole("host")
	if err != nil {
		writeErr(w, err)
		return
	}
	totalBookings, err := h.Bookings.CountAll()
	if err != nil {
		writeErr(w, err)
		return
	}
	revenue, err := h.Bookings.ConfirmedRevenue()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_users":    totalUsers,
		"total_hosts":    totalHosts,
		"total_bookings": totalBookings,
		"total_revenue":  revenue,
	})
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	users, err := h.Users.ListByRole(role)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	bookings, err := h.Bookings.ListByStatus(status, limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}
