package domain

import (
	"strings"
	"time"

	"github.com/expohall/expohall-api/internal/availability"
)

type Venue struct {
	ID        int64     `json:"id"`
	VenueName string    `json:"venue_name"`
	Location  string    `json:"location"`
	Address   string    `json:"address,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type Exhibition struct {
	ID           int64     `json:"id"`
	VenueID      int64     `json:"venue_id"`
	Title        string    `json:"title"`
	Subtitle     string    `json:"subtitle,omitempty"`
	HallLocation string    `json:"hall_location,omitempty"`
	Description  string    `json:"description,omitempty"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	Category     string    `json:"category,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Event is a booth event inside an exhibition. StartTime/EndTime are canonical
// "HH:MM" strings or empty (open all day).
type Event struct {
	ID                  int64      `json:"id"`
	CompanyID           int64      `json:"company_id"`
	ExhibitionID        int64      `json:"exhibition_id"`
	EventName           string     `json:"event_name"`
	EventType           string     `json:"event_type,omitempty"`
	BoothNumber         string     `json:"booth_number,omitempty"`
	Location            string     `json:"location,omitempty"`
	Latitude            string     `json:"latitude,omitempty"`
	Longitude           string     `json:"longitude,omitempty"`
	StartDate           time.Time  `json:"start_date"`
	EndDate             *time.Time `json:"end_date,omitempty"`
	StartTime           string     `json:"start_time,omitempty"`
	EndTime             string     `json:"end_time,omitempty"`
	Description         string     `json:"description,omitempty"`
	ParticipationMethod string     `json:"participation_method,omitempty"`
	Benefits            string     `json:"benefits,omitempty"`
	ImageURL            string     `json:"image_url,omitempty"`
	UnsplashImageURL    string     `json:"-"`
	HasCustomImage      bool       `json:"has_custom_image"`
	Tags                []string   `json:"tags"`
	Categories          []string   `json:"categories"`
	IsActive            bool       `json:"is_active"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Window resolves the event's availability window.
func (e *Event) Window() availability.Window {
	return availability.Window{
		StartDate: e.StartDate,
		EndDate:   e.EndDate,
		StartTime: e.StartTime,
		EndTime:   e.EndTime,
	}
}

// DisplayImageURL picks the image shown to visitors: a custom upload wins,
// then the auto-fetched stock image. Placeholder-service URLs are treated as
// absent so the frontend falls back to its own art.
func (e *Event) DisplayImageURL() string {
	if e.HasCustomImage && e.ImageURL != "" && !isPlaceholderURL(e.ImageURL) {
		return e.ImageURL
	}
	if e.UnsplashImageURL != "" {
		return e.UnsplashImageURL
	}
	if e.ImageURL != "" && !isPlaceholderURL(e.ImageURL) {
		return e.ImageURL
	}
	return ""
}

func isPlaceholderURL(u string) bool {
	return strings.Contains(u, "placeholder.com") || strings.Contains(u, "placehold.co")
}

// EventDetail joins an event with its company, exhibition and venue rows for
// visitor-facing responses.
type EventDetail struct {
	Event
	CompanyName         string    `json:"company_name"`
	ExhibitionTitle     string    `json:"exhibition_title"`
	ExhibitionSubtitle  string    `json:"exhibition_subtitle,omitempty"`
	ExhibitionStartDate time.Time `json:"exhibition_start_date"`
	ExhibitionEndDate   time.Time `json:"exhibition_end_date"`
	ExhibitionHall      string    `json:"exhibition_hall,omitempty"`
	ExhibitionCategory  string    `json:"exhibition_category,omitempty"`
	VenueID             *int64    `json:"venue_id,omitempty"`
	VenueName           string    `json:"venue_name,omitempty"`
	VenueLocation       string    `json:"venue_location,omitempty"`
	VenueAddress        string    `json:"venue_address,omitempty"`
}

// EventFormData is the form content produced by image analysis or manual
// entry. Dates and times arrive as free-form strings and are canonicalized by
// the timeparse package; the combined Date/Time fields are kept for payloads
// produced before the fields were split.
type EventFormData struct {
	EventName           string `json:"eventName"`
	BoothNumber         string `json:"boothNumber"`
	Location            string `json:"location"`
	Venue               string `json:"venue"`
	StartDate           string `json:"startDate"`
	EndDate             string `json:"endDate"`
	Date                string `json:"date"`
	StartTime           string `json:"startTime"`
	EndTime             string `json:"endTime"`
	Time                string `json:"time"`
	Description         string `json:"description"`
	ParticipationMethod string `json:"participationMethod"`
	Benefits            string `json:"benefits"`
}

type EventCreateRequest struct {
	FormData   EventFormData `json:"form_data"`
	Tags       []string      `json:"tags"`
	Categories []string      `json:"categories"`
	ImageURL   string        `json:"image_url,omitempty"`
}

type EventStats struct {
	TotalEvents    int            `json:"total_events"`
	OngoingEvents  int            `json:"ongoing_events"`
	UpcomingEvents int            `json:"upcoming_events"`
	EventTypes     map[string]int `json:"event_types"`
}
