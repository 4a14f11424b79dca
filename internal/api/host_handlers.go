package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"hostbook/internal/auth"
	"hostbook/internal/db"
	"hostbook/internal/entities"
	apperrors "hostbook/internal/errors"
	"hostbook/internal/repository"
	"hostbook/internal/service"

	"github.com/gorilla/mux"
)

type HostHandler struct {
	Availability *service.AvailabilityService
	Analytics    *service.AnalyticsService
	Insights     *service.InsightsService
	Notify       *service.NotifyService
	Users        *repository.UserRepository
	Bookings     *repository.BookingRepository
}

func NewHostHandler(availability *service.AvailabilityService, analytics *service.AnalyticsService,
	insights *service.InsightsService, notify *service.NotifyService,
	users *repository.UserRepository, bookings *repository.BookingRepository) *HostHandler {
	return &HostHandler{
		Availability: availability,
		Analytics:    analytics,
		Insights:     insights,
		Notify:       notify,
		Users:        users,
		Bookings:     bookings,
	}
}

// --- authenticated host endpoints ---

func (h *HostHandler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	rule := db.AvailabilityRule{
		HostID:        auth.UserID(r.Context()),
		DayOfWeek:     req.DayOfWeek,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		SlotDuration:  req.SlotDuration,
		BufferMinutes: req.BufferMinutes,
		IsFree:        req.IsFree,
		Price:         req.Price,
		PriceUSD:      req.PriceUSD,
	}
	if req.SpecificDate != "" {
		date, err := time.Parse("2006-01-02", req.SpecificDate)
		if err != nil {
			writeErr(w, apperrors.ErrValidation("specific_date must be YYYY-MM-DD"))
			return
		}
		rule.SpecificDate = &date
	}
	if err := h.Availability.CreateRule(&rule); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

func (h *HostHandler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	if err := h.Availability.DeleteRule(id, auth.UserID(r.Context())); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Rule deleted"})
}

func (h *HostHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Availability.Rules(auth.UserID(r.Context()))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

func (h *HostHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	hostID := auth.UserID(r.Context())

	recent, err := h.Bookings.ListRecentByHost(hostID, 20)
	if err != nil {
		writeErr(w, err)
		return
	}
	confirmed, err := h.Bookings.CountConfirmedByHost(hostID)
	if err != nil {
		writeErr(w, err)
		return
	}
	earnings, err := h.Bookings.ConfirmedEarnings(hostID)
	if err != nil {
		writeErr(w, err)
		return
	}
	funnel, err := h.Analytics.Funnel(hostID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"recent_bookings":    recent,
		"confirmed_bookings": confirmed,
		"total_earnings":     earnings,
		"funnel":             funnel,
	})
}

func (h *HostHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	insights, err := h.Insights.Generate(auth.UserID(r.Context()))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, insights)
}

func (h *HostHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req SendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.To == "" || req.Subject == "" {
		writeErr(w, apperrors.ErrValidation("to and subject are required"))
		return
	}
	host, err := h.Users.GetByID(auth.UserID(r.Context()))
	if err != nil || host == nil {
		writeErr(w, apperrors.ErrNotFound("host not found"))
		return
	}
	if err := h.Notify.SendCustomEmail(req.To, req.Subject, req.Body, host.Name); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Email sent"})
}

// --- public endpoints ---

func (h *HostHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	host, err := h.Users.GetByUsername(username)
	if err != nil {
		writeErr(w, err)
		return
	}
	if host == nil || host.Role != "host" {
		writeErr(w, apperrors.ErrNotFound("host not found"))
		return
	}
	h.Analytics.Record(host.ID, service.EventProfileView, r.Header.Get("X-Session-ID"), map[string]interface{}{
		"referrer": r.Header.Get("Referer"),
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":       host.ID,
		"name":     host.Name,
		"username": host.Username,
	})
}

func (h *HostHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	hostID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	dateStr := r.URL.Query().Get("date")
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		writeErr(w, apperrors.ErrValidation("date must be YYYY-MM-DD"))
		return
	}
	slots, err := h.Availability.AvailableSlots(hostID, date)
	if err != nil {
		writeErr(w, err)
		return
	}
	resp := entities.DayAvailability{Date: dateStr, HostID: hostID, Slots: slots}
	if len(slots) == 0 {
		resp.Message = "No slots available for this date"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HostHandler) GetMonthAvailability(w http.ResponseWriter, r *http.Request) {
	hostID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		writeErr(w, apperrors.ErrValidation("year is required"))
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		writeErr(w, apperrors.ErrValidation("month must be 1-12"))
		return
	}
	summary, err := h.Availability.MonthAvailability(hostID, year, time.Month(month))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *HostHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	hostID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}
	schedule, err := h.Availability.Schedule(hostID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}
