package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/expohall/expohall-api/internal/availability"
	"github.com/expohall/expohall-api/internal/domain"
	"github.com/expohall/expohall-api/internal/http/response"
	"github.com/expohall/expohall-api/internal/repo/postgres"
	"github.com/expohall/expohall-api/pkg/events"
	"github.com/expohall/expohall-api/pkg/logger"
)

// defaultVisitHour is assumed when a visitor picks a date but no time; most
// venues open at nine.
const defaultVisitHour = 9

// VisitorHandler is the public surface: event search with availability
// snapshots, event detail, aggregate stats, and survey responses.
type VisitorHandler struct {
	Events  postgres.EventRepo
	Surveys postgres.SurveyRepo
	Bus     events.EventBus
}

func NewVisitorHandler(eventRepo postgres.EventRepo, surveyRepo postgres.SurveyRepo, bus events.EventBus) *VisitorHandler {
	return &VisitorHandler{Events: eventRepo, Surveys: surveyRepo, Bus: bus}
}

func (h *VisitorHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/events", h.searchEvents)
	r.Get("/events/stats", h.eventStats)
	r.Get("/events/{id}", h.eventDetail)
	r.Get("/surveys/{id}", h.surveyDetail)
	r.Post("/surveys/{id}/responses", h.submitSurveyResponse)
	return r
}

// visitorEvent is an event row decorated with its availability snapshot at the
// requested visit instant.
type visitorEvent struct {
	domain.EventDetail
	availability.Snapshot
	ActiveSurveyID *int64          `json:"active_survey_id,omitempty"`
	Surveys        []domain.Survey `json:"surveys,omitempty"`
}

func decorate(d domain.EventDetail, at time.Time) visitorEvent {
	snap := availability.ComputeSnapshot(d.Window(), at)
	// visitors always see a concrete end date
	if d.EndDate == nil {
		end := d.StartDate
		d.EndDate = &end
	}
	d.ImageURL = d.DisplayImageURL()
	return visitorEvent{EventDetail: d, Snapshot: snap}
}

func (h *VisitorHandler) searchEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	target, err := resolveVisitInstant(q.Get("visit_date"), q.Get("visit_time"))
	if err != nil {
		response.BadRequest(w, "visit_date must be YYYY-MM-DD and visit_time HH:MM")
		return
	}

	onlyAvailable := true
	if v := q.Get("only_available"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			onlyAvailable = b
		}
	}

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	var venueID int64
	if v := q.Get("venue_id"); v != "" {
		venueID, _ = strconv.ParseInt(v, 10, 64)
	}

	filter := postgres.EventSearchFilter{
		TargetDate:    time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, target.Location()),
		OnlyAvailable: onlyAvailable,
		EventType:     q.Get("event_type"),
		Location:      q.Get("location"),
		VenueName:     q.Get("venue_name"),
		VenueID:       venueID,
		CompanyName:   q.Get("company_name"),
		Keyword:       q.Get("keyword"),
		SortDesc:      q.Get("sort_by") == "date_desc",
		Limit:         limit,
		Offset:        offset,
	}

	details, _, err := h.Events.Search(r.Context(), filter)
	if err != nil {
		response.InternalError(w, "Failed to search events")
		return
	}

	ids := make([]int64, 0, len(details))
	for i := range details {
		ids = append(ids, details[i].ID)
	}
	activeSurveys, err := h.Surveys.ActiveSurveyIDs(r.Context(), ids)
	if err != nil {
		logger.WarnContext(r.Context(), "Failed to resolve active surveys", "error", err)
		activeSurveys = map[int64]int64{}
	}

	out := make([]visitorEvent, 0, len(details))
	availableCount := 0
	upcomingCount := 0
	for i := range details {
		ev := decorate(details[i], target)
		if sid, ok := activeSurveys[ev.ID]; ok {
			sid := sid
			ev.ActiveSurveyID = &sid
		}

		if ev.IsAvailableNow {
			availableCount++
		}
		if ev.DaysUntilStart > 0 {
			upcomingCount++
		}
		// availability depends on the clock, so the final cut happens here
		// rather than in SQL
		if onlyAvailable && !ev.IsAvailableNow {
			continue
		}
		out = append(out, ev)
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"total":           len(out),
		"available_count": availableCount,
		"upcoming_count":  upcomingCount,
		"events":          out,
		"filter_info": map[string]interface{}{
			"target_date": target.Format("2006-01-02"),
			"target_time": target.Format("15:04"),
			"filters_applied": map[string]interface{}{
				"event_type":     filter.EventType,
				"location":       filter.Location,
				"venue_name":     filter.VenueName,
				"venue_id":       filter.VenueID,
				"company_name":   filter.CompanyName,
				"keyword":        filter.Keyword,
				"only_available": onlyAvailable,
			},
		},
	})
}

// resolveVisitInstant turns the optional visit_date/visit_time pair into the
// instant availability is judged against.
func resolveVisitInstant(visitDate, visitTime string) (time.Time, error) {
	switch {
	case visitDate != "" && visitTime != "":
		return time.ParseInLocation("2006-01-02 15:04", visitDate+" "+visitTime, time.Local)
	case visitDate != "":
		d, err := time.ParseInLocation("2006-01-02", visitDate, time.Local)
		if err != nil {
			return time.Time{}, err
		}
		return d.Add(defaultVisitHour * time.Hour), nil
	default:
		return time.Now(), nil
	}
}

func (h *VisitorHandler) eventDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid event ID")
		return
	}

	target := time.Now()
	if v := r.URL.Query().Get("visit_time"); v != "" {
		target, err = time.ParseInLocation("2006-01-02 15:04", v, time.Local)
		if err != nil {
			response.BadRequest(w, "visit_time must be YYYY-MM-DD HH:MM")
			return
		}
	}

	detail, err := h.Events.FindDetail(r.Context(), id)
	if err != nil {
		response.InternalError(w, "Failed to load event")
		return
	}
	if detail == nil {
		response.NotFound(w, "Event not found")
		return
	}

	ev := decorate(*detail, target)
	surveys, err := h.Surveys.ListSummariesByEvent(r.Context(), ev.ID)
	if err != nil {
		logger.WarnContext(r.Context(), "Failed to load surveys", "error", err, "event_id", ev.ID)
	}
	ev.Surveys = surveys
	for i := range surveys {
		if surveys[i].IsActive {
			ev.ActiveSurveyID = &surveys[i].ID
			break
		}
	}

	response.WriteJSON(w, http.StatusOK, ev)
}

func (h *VisitorHandler) eventStats(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	stats, err := h.Events.Stats(r.Context(), today)
	if err != nil {
		response.InternalError(w, "Failed to load stats")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"total_events":    stats.TotalEvents,
		"ongoing_events":  stats.OngoingEvents,
		"upcoming_events": stats.UpcomingEvents,
		"event_types":     stats.EventTypes,
		"timestamp":       now.Format(time.RFC3339),
	})
}

func (h *VisitorHandler) surveyDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid survey ID")
		return
	}

	detail, err := h.Surveys.FindDetail(r.Context(), id)
	if err != nil {
		response.InternalError(w, "Failed to load survey")
		return
	}
	if detail == nil {
		response.NotFound(w, "Survey not found")
		return
	}

	response.WriteJSON(w, http.StatusOK, detail)
}

func (h *VisitorHandler) submitSurveyResponse(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid survey ID")
		return
	}

	var req domain.SurveyResponseCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	survey, err := h.Surveys.FindDetail(r.Context(), id)
	if err != nil {
		response.InternalError(w, "Failed to load survey")
		return
	}
	if survey == nil {
		response.NotFound(w, "Survey not found")
		return
	}
	if !survey.IsActive {
		response.WriteError(w, http.StatusBadRequest, "Survey is not accepting responses", response.CodeSurveyClosed)
		return
	}
	if survey.RequireEmail && req.RespondentEmail == "" {
		response.BadRequest(w, "respondent_email is required for this survey")
		return
	}
	if survey.RequirePhone && req.RespondentPhone == "" {
		response.BadRequest(w, "respondent_phone is required for this survey")
		return
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		response.BadRequest(w, "rating must be between 1 and 5")
		return
	}
	if err := domain.ValidateAnswers(survey.Questions, req.Answers); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	resp := &domain.SurveyResponse{
		SurveyID:          id,
		RespondentName:    req.RespondentName,
		RespondentEmail:   req.RespondentEmail,
		RespondentCompany: req.RespondentCompany,
		RespondentPhone:   req.RespondentPhone,
		BoothNumber:       req.BoothNumber,
		Answers:           req.Answers,
		Rating:            req.Rating,
		Review:            req.Review,
	}
	created, err := h.Surveys.CreateResponse(r.Context(), resp)
	if err != nil {
		response.InternalError(w, "Failed to save response")
		return
	}

	if err := h.Bus.Publish(r.Context(), events.SurveyResponseCreated, events.SurveyResponseCreatedEvent{
		SurveyID:    id,
		ResponseID:  created.ID,
		EventID:     survey.EventID,
		SubmittedAt: created.SubmittedAt,
	}); err != nil {
		logger.WarnContext(r.Context(), "Failed to publish survey response event", "error", err, "survey_id", id)
	}

	response.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success":      true,
		"survey_id":    id,
		"response_id":  created.ID,
		"submitted_at": created.SubmittedAt,
	})
}
