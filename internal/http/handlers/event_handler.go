package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/expohall/expohall-api/internal/domain"
	httpmw "github.com/expohall/expohall-api/internal/http/middleware"
	"github.com/expohall/expohall-api/internal/http/response"
	"github.com/expohall/expohall-api/internal/platform/unsplash"
	"github.com/expohall/expohall-api/internal/repo/postgres"
	"github.com/expohall/expohall-api/internal/timeparse"
	"github.com/expohall/expohall-api/pkg/config"
	"github.com/expohall/expohall-api/pkg/events"
	"github.com/expohall/expohall-api/pkg/logger"
)

// regionKeywords maps a Korean region label to venue-name fragments that
// betray it. Matching is case-insensitive substring search.
var regionKeywords = map[string][]string{
	"서울": {"서울", "coex", "코엑스", "세텍", "ddp", "송파", "강남", "잠실", "마곡"},
	"경기": {"경기", "킨텍스", "일산", "수원", "고양"},
	"부산": {"부산", "벡스코"},
	"대구": {"대구", "엑스코"},
	"광주": {"광주", "김대중"},
	"인천": {"인천", "송도", "컨벤시아"},
}

const regionUnknown = "기타"

func guessRegion(name string) string {
	if name == "" {
		return regionUnknown
	}
	lowered := strings.ToLower(name)
	for region, keywords := range regionKeywords {
		for _, kw := range keywords {
			if strings.Contains(lowered, kw) {
				return region
			}
		}
	}
	return regionUnknown
}

// EventHandler is the exhibitor surface: creating events from analyzed form
// data and listing a company's own events.
type EventHandler struct {
	Events   postgres.EventRepo
	Unsplash *unsplash.Client
	Bus      events.EventBus
	Config   *config.Config
}

func NewEventHandler(eventRepo postgres.EventRepo, unsplashClient *unsplash.Client, bus events.EventBus, cfg *config.Config) *EventHandler {
	return &EventHandler{Events: eventRepo, Unsplash: unsplashClient, Bus: bus, Config: cfg}
}

func (h *EventHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(httpmw.RequireJWT(h.Config.Auth.JWTSecret))
	r.Use(httpmw.RequireRole("company"))
	r.Post("/", h.create)
	r.Get("/", h.listMine)
	return r
}

func (h *EventHandler) create(w http.ResponseWriter, r *http.Request) {
	claims := httpmw.Claims(r)

	var req domain.EventCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	form := req.FormData
	form.EventName = strings.TrimSpace(form.EventName)
	if form.EventName == "" {
		response.BadRequest(w, "eventName is required")
		return
	}

	startDate, endDate := resolveDates(form)
	if startDate == nil {
		response.BadRequest(w, "A valid start date is required")
		return
	}
	startTime, endTime := resolveTimes(form)

	// Every event gets a venue and an exhibition, even when the form left the
	// location blank.
	venueName := strings.TrimSpace(form.Location)
	if venueName == "" {
		venueName = form.EventName
	}
	venue, err := h.Events.EnsureVenue(r.Context(), venueName, guessRegion(venueName))
	if err != nil {
		response.InternalError(w, "Failed to resolve venue")
		return
	}

	exhibitionTitle := strings.TrimSpace(form.Location)
	if exhibitionTitle == "" {
		exhibitionTitle = form.EventName
	}
	exhibitionEnd := *startDate
	if endDate != nil {
		exhibitionEnd = *endDate
	}
	subtitle := ""
	if exhibitionTitle != form.EventName {
		subtitle = form.EventName
	}
	exhibition, err := h.Events.EnsureExhibition(r.Context(), &domain.Exhibition{
		VenueID:      venue.ID,
		Title:        exhibitionTitle,
		Subtitle:     subtitle,
		HallLocation: strings.TrimSpace(form.Venue),
		Description:  form.Description,
		StartDate:    *startDate,
		EndDate:      exhibitionEnd,
	})
	if err != nil {
		response.InternalError(w, "Failed to resolve exhibition")
		return
	}

	location := strings.TrimSpace(form.Location)
	if location == "" {
		location = venue.VenueName
	}

	event := &domain.Event{
		CompanyID:           claims.Sub,
		ExhibitionID:        exhibition.ID,
		EventName:           form.EventName,
		BoothNumber:         strings.TrimSpace(form.BoothNumber),
		Location:            location,
		StartDate:           *startDate,
		EndDate:             endDate,
		StartTime:           startTime,
		EndTime:             endTime,
		Description:         form.Description,
		ParticipationMethod: form.ParticipationMethod,
		Benefits:            form.Benefits,
		ImageURL:            req.ImageURL,
		HasCustomImage:      req.ImageURL != "",
		Tags:                cleanList(req.Tags),
		Categories:          cleanList(req.Categories),
	}

	created, err := h.Events.Create(r.Context(), event)
	if err != nil {
		response.InternalError(w, "Failed to create event")
		return
	}

	// No upload: try a stock image in the background
	if !created.HasCustomImage && h.Unsplash != nil && h.Unsplash.Enabled() {
		go h.backfillImage(created.ID, created.EventName, created.Tags)
	}

	if err := h.Bus.Publish(r.Context(), events.EventCreated, events.EventCreatedEvent{
		EventID:   created.ID,
		CompanyID: created.CompanyID,
		EventName: created.EventName,
		StartDate: created.StartDate,
		CreatedAt: created.CreatedAt,
	}); err != nil {
		logger.WarnContext(r.Context(), "Failed to publish event created", "error", err, "event_id", created.ID)
	}

	response.WriteJSON(w, http.StatusCreated, eventPayload(created))
}

func (h *EventHandler) backfillImage(eventID int64, eventName string, tags []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	photo, err := h.Unsplash.SearchEventImage(ctx, eventName, tags)
	if err != nil {
		logger.WarnContext(ctx, "No stock image found", "error", err, "event_id", eventID)
		return
	}
	if err := h.Events.SetUnsplashImage(ctx, eventID, photo.URLRegular); err != nil {
		logger.ErrorContext(ctx, "Failed to store stock image", "error", err, "event_id", eventID)
	}
}

func (h *EventHandler) listMine(w http.ResponseWriter, r *http.Request) {
	claims := httpmw.Claims(r)

	list, err := h.Events.ListByCompany(r.Context(), claims.Sub)
	if err != nil {
		response.InternalError(w, "Failed to list events")
		return
	}

	payload := make([]map[string]interface{}, 0, len(list))
	for i := range list {
		payload = append(payload, eventPayload(&list[i]))
	}
	response.WriteJSON(w, http.StatusOK, payload)
}

// resolveDates prefers the split startDate/endDate fields and falls back to
// the combined date field kept for older payloads.
func resolveDates(form domain.EventFormData) (start, end *time.Time) {
	if form.StartDate != "" {
		if d, ok := timeparse.ParseDate(form.StartDate); ok {
			start = &d
		}
		if form.EndDate != "" {
			if d, ok := timeparse.ParseDate(form.EndDate); ok {
				end = &d
			}
		}
		return start, end
	}
	return timeparse.ParseDateRange(form.Date)
}

func resolveTimes(form domain.EventFormData) (start, end string) {
	if form.StartTime != "" {
		start = timeparse.ParseTime(form.StartTime)
		if form.EndTime != "" {
			end = timeparse.ParseTime(form.EndTime)
		}
		return start, end
	}
	return timeparse.ParseTimeRange(form.Time)
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// eventPayload mirrors the event row back with the combined date/time display
// strings the frontend form uses.
func eventPayload(e *domain.Event) map[string]interface{} {
	return map[string]interface{}{
		"id":                  e.ID,
		"eventName":           e.EventName,
		"boothNumber":         e.BoothNumber,
		"location":            e.Location,
		"date":                timeparse.FormatDateRange(e.StartDate, e.EndDate),
		"time":                timeparse.FormatTimeRange(e.StartTime, e.EndTime),
		"description":         e.Description,
		"participationMethod": e.ParticipationMethod,
		"benefits":            e.Benefits,
		"tags":                e.Tags,
		"categories":          e.Categories,
		"company_id":          e.CompanyID,
		"image_url":           e.DisplayImageURL(),
		"created_at":          e.CreatedAt,
	}
}
