package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expohall/expohall-api/internal/domain"
)

// EventSearchFilter carries the visitor search parameters. TargetDate bounds
// the date filters; text filters are case-insensitive substring matches.
type EventSearchFilter struct {
	TargetDate    time.Time
	OnlyAvailable bool
	EventType     string
	Location      string
	VenueName     string
	VenueID       int64
	CompanyName   string
	Keyword       string
	SortDesc      bool
	Limit         int
	Offset        int
}

type EventRepo interface {
	Create(ctx context.Context, e *domain.Event) (*domain.Event, error)
	ListByCompany(ctx context.Context, companyID int64) ([]domain.Event, error)
	FindDetail(ctx context.Context, id int64) (*domain.EventDetail, error)
	Search(ctx context.Context, f EventSearchFilter) ([]domain.EventDetail, int, error)
	Stats(ctx context.Context, today time.Time) (*domain.EventStats, error)
	SetUnsplashImage(ctx context.Context, eventID int64, url string) error

	EnsureVenue(ctx context.Context, name, region string) (*domain.Venue, error)
	EnsureExhibition(ctx context.Context, x *domain.Exhibition) (*domain.Exhibition, error)
}

type EventRepoImpl struct{ pool *pgxpool.Pool }

func NewEventRepo(pool *pgxpool.Pool) *EventRepoImpl { return &EventRepoImpl{pool: pool} }

const eventCols = `e.id, e.company_id, e.exhibition_id, e.event_name,
COALESCE(e.event_type,''), COALESCE(e.booth_number,''), COALESCE(e.location,''),
COALESCE(e.latitude,''), COALESCE(e.longitude,''),
e.start_date, e.end_date, COALESCE(e.start_time,''), COALESCE(e.end_time,''),
COALESCE(e.description,''), COALESCE(e.participation_method,''), COALESCE(e.benefits,''),
COALESCE(e.image_url,''), COALESCE(e.unsplash_image_url,''), e.has_custom_image,
COALESCE(e.tags,'[]'::jsonb), COALESCE(e.categories,'[]'::jsonb),
e.is_active, e.created_at, e.updated_at`

const detailCols = eventCols + `,
c.company_name,
x.title, COALESCE(x.subtitle,''), x.start_date, x.end_date,
COALESCE(x.hall_location,''), COALESCE(x.category,''),
v.id, COALESCE(v.venue_name,''), COALESCE(v.location,''), COALESCE(v.address,'')`

const detailJoins = `
FROM events e
JOIN companies c ON e.company_id = c.id
JOIN exhibitions x ON e.exhibition_id = x.id
LEFT JOIN venues v ON x.venue_id = v.id`

func scanEvent(row pgx.Row, e *domain.Event) error {
	return row.Scan(
		&e.ID, &e.CompanyID, &e.ExhibitionID, &e.EventName,
		&e.EventType, &e.BoothNumber, &e.Location,
		&e.Latitude, &e.Longitude,
		&e.StartDate, &e.EndDate, &e.StartTime, &e.EndTime,
		&e.Description, &e.ParticipationMethod, &e.Benefits,
		&e.ImageURL, &e.UnsplashImageURL, &e.HasCustomImage,
		&e.Tags, &e.Categories,
		&e.IsActive, &e.CreatedAt, &e.UpdatedAt,
	)
}

func scanDetail(rows pgx.Rows) (*domain.EventDetail, error) {
	var d domain.EventDetail
	err := rows.Scan(
		&d.ID, &d.CompanyID, &d.ExhibitionID, &d.EventName,
		&d.EventType, &d.BoothNumber, &d.Location,
		&d.Latitude, &d.Longitude,
		&d.StartDate, &d.EndDate, &d.StartTime, &d.EndTime,
		&d.Description, &d.ParticipationMethod, &d.Benefits,
		&d.ImageURL, &d.UnsplashImageURL, &d.HasCustomImage,
		&d.Tags, &d.Categories,
		&d.IsActive, &d.CreatedAt, &d.UpdatedAt,
		&d.CompanyName,
		&d.ExhibitionTitle, &d.ExhibitionSubtitle, &d.ExhibitionStartDate, &d.ExhibitionEndDate,
		&d.ExhibitionHall, &d.ExhibitionCategory,
		&d.VenueID, &d.VenueName, &d.VenueLocation, &d.VenueAddress,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *EventRepoImpl) Create(ctx context.Context, e *domain.Event) (*domain.Event, error) {
	const q = `
INSERT INTO events AS e (company_id, exhibition_id, event_name, event_type, booth_number, location,
                    latitude, longitude, start_date, end_date, start_time, end_time,
                    description, participation_method, benefits, image_url, has_custom_image,
                    tags, categories, is_active)
VALUES ($1,$2,$3,NULLIF($4,''),NULLIF($5,''),NULLIF($6,''),
        NULLIF($7,''),NULLIF($8,''),$9,$10,NULLIF($11,''),NULLIF($12,''),
        NULLIF($13,''),NULLIF($14,''),NULLIF($15,''),NULLIF($16,''),$17,
        $18,$19,true)
RETURNING ` + eventCols + `
`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	cats := e.Categories
	if cats == nil {
		cats = []string{}
	}

	var out domain.Event
	row := r.pool.QueryRow(ctx, q,
		e.CompanyID, e.ExhibitionID, e.EventName, e.EventType, e.BoothNumber, e.Location,
		e.Latitude, e.Longitude, e.StartDate, e.EndDate, e.StartTime, e.EndTime,
		e.Description, e.ParticipationMethod, e.Benefits, e.ImageURL, e.HasCustomImage,
		tags, cats,
	)
	if err := scanEvent(row, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *EventRepoImpl) ListByCompany(ctx context.Context, companyID int64) ([]domain.Event, error) {
	const q = `SELECT ` + eventCols + ` FROM events e WHERE e.company_id=$1 ORDER BY e.start_date DESC, e.id DESC`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *EventRepoImpl) FindDetail(ctx context.Context, id int64) (*domain.EventDetail, error) {
	const q = `SELECT ` + detailCols + detailJoins + ` WHERE e.id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanDetail(rows)
}

func (r *EventRepoImpl) Search(ctx context.Context, f EventSearchFilter) ([]domain.EventDetail, int, error) {
	args := []any{f.TargetDate}
	where := []string{
		"e.is_active",
		// ended events drop out entirely
		"COALESCE(e.end_date, e.start_date) >= $1",
	}

	if f.OnlyAvailable {
		where = append(where, "e.start_date <= $1")
	}
	add := func(cond string, val any) {
		args = append(args, val)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.EventType != "" {
		add("e.event_type = $%d", f.EventType)
	}
	if f.Location != "" {
		add("(e.location ILIKE $%d OR x.hall_location ILIKE $%[1]d OR v.venue_name ILIKE $%[1]d OR v.location ILIKE $%[1]d)", like(f.Location))
	}
	if f.VenueID != 0 {
		add("x.venue_id = $%d", f.VenueID)
	}
	if f.VenueName != "" {
		add("(v.venue_name ILIKE $%d OR e.location ILIKE $%[1]d)", like(f.VenueName))
	}
	if f.CompanyName != "" {
		add("c.company_name ILIKE $%d", like(f.CompanyName))
	}
	if f.Keyword != "" {
		add("(e.event_name ILIKE $%d OR e.description ILIKE $%[1]d OR c.company_name ILIKE $%[1]d)", like(f.Keyword))
	}

	clause := " WHERE " + strings.Join(where, " AND ")

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var total int
	countQ := `SELECT count(*)` + detailJoins + clause
	if err := r.pool.QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := " ORDER BY e.start_date ASC, e.start_time ASC NULLS FIRST"
	if f.SortDesc {
		order = " ORDER BY e.start_date DESC, e.start_time DESC NULLS LAST"
	}

	args = append(args, f.Limit, f.Offset)
	pageQ := `SELECT ` + detailCols + detailJoins + clause + order +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, pageQ, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.EventDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *d)
	}
	return out, total, rows.Err()
}

func like(v string) string { return "%" + v + "%" }

func (r *EventRepoImpl) Stats(ctx context.Context, today time.Time) (*domain.EventStats, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	s := &domain.EventStats{EventTypes: map[string]int{}}

	const countsQ = `
SELECT count(*),
       count(*) FILTER (WHERE start_date <= $1 AND COALESCE(end_date, start_date) >= $1),
       count(*) FILTER (WHERE start_date > $1)
FROM events WHERE is_active`
	if err := r.pool.QueryRow(ctx, countsQ, today).Scan(&s.TotalEvents, &s.OngoingEvents, &s.UpcomingEvents); err != nil {
		return nil, err
	}

	const typesQ = `SELECT COALESCE(event_type,'unknown'), count(*) FROM events WHERE is_active GROUP BY 1`
	rows, err := r.pool.Query(ctx, typesQ)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		s.EventTypes[t] = n
	}
	return s, rows.Err()
}

func (r *EventRepoImpl) SetUnsplashImage(ctx context.Context, eventID int64, url string) error {
	const q = `UPDATE events SET unsplash_image_url=$2, updated_at=now() WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.pool.Exec(ctx, q, eventID, url)
	return err
}

func (r *EventRepoImpl) EnsureVenue(ctx context.Context, name, region string) (*domain.Venue, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	const findQ = `SELECT id, venue_name, location, COALESCE(address,''), is_active, created_at
FROM venues WHERE lower(venue_name)=lower($1)`
	var v domain.Venue
	err := r.pool.QueryRow(ctx, findQ, name).Scan(&v.ID, &v.VenueName, &v.Location, &v.Address, &v.IsActive, &v.CreatedAt)
	if err == nil {
		return &v, nil
	}
	if err != pgx.ErrNoRows {
		return nil, err
	}

	const insertQ = `
INSERT INTO venues (venue_name, location, is_active)
VALUES ($1,$2,true)
RETURNING id, venue_name, location, COALESCE(address,''), is_active, created_at`
	err = r.pool.QueryRow(ctx, insertQ, name, region).Scan(&v.ID, &v.VenueName, &v.Location, &v.Address, &v.IsActive, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *EventRepoImpl) EnsureExhibition(ctx context.Context, x *domain.Exhibition) (*domain.Exhibition, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	const cols = `id, venue_id, title, COALESCE(subtitle,''), COALESCE(hall_location,''),
COALESCE(description,''), start_date, end_date, COALESCE(category,''), is_active, created_at`

	const findQ = `SELECT ` + cols + ` FROM exhibitions
WHERE venue_id=$1 AND lower(title)=lower($2) AND start_date=$3 AND end_date=$4`
	var out domain.Exhibition
	err := r.pool.QueryRow(ctx, findQ, x.VenueID, x.Title, x.StartDate, x.EndDate).Scan(
		&out.ID, &out.VenueID, &out.Title, &out.Subtitle, &out.HallLocation,
		&out.Description, &out.StartDate, &out.EndDate, &out.Category, &out.IsActive, &out.CreatedAt,
	)
	if err == nil {
		return &out, nil
	}
	if err != pgx.ErrNoRows {
		return nil, err
	}

	const insertQ = `
INSERT INTO exhibitions (venue_id, title, subtitle, hall_location, description, start_date, end_date, is_active)
VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),NULLIF($5,''),$6,$7,true)
RETURNING ` + cols
	err = r.pool.QueryRow(ctx, insertQ, x.VenueID, x.Title, x.Subtitle, x.HallLocation, x.Description, x.StartDate, x.EndDate).Scan(
		&out.ID, &out.VenueID, &out.Title, &out.Subtitle, &out.HallLocation,
		&out.Description, &out.StartDate, &out.EndDate, &out.Category, &out.IsActive, &out.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
