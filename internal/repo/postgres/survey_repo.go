package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expohall/expohall-api/internal/domain"
)

// SurveyDetail joins a survey with its event and company names for the
// visitor-facing detail response.
type SurveyDetail struct {
	domain.Survey
	EventName   string `json:"event_name"`
	CompanyName string `json:"company_name"`
}

// SurveyStat is one row of the daily report: responses collected per survey.
type SurveyStat struct {
	SurveyID  int64
	Title     string
	EventName string
	Responses int
	AvgRating *float64
}

type SurveyRepo interface {
	FindDetail(ctx context.Context, id int64) (*SurveyDetail, error)
	// CreateResponse inserts the response and bumps the survey counter in one
	// transaction.
	CreateResponse(ctx context.Context, resp *domain.SurveyResponse) (*domain.SurveyResponse, error)
	ListSummariesByEvent(ctx context.Context, eventID int64) ([]domain.Survey, error)
	// ActiveSurveyIDs resolves the lowest active survey id per event for a page
	// of search results in one round trip.
	ActiveSurveyIDs(ctx context.Context, eventIDs []int64) (map[int64]int64, error)
	CompanyStats(ctx context.Context, companyID int64, since time.Time) ([]SurveyStat, error)
	CompaniesWithActiveSurveys(ctx context.Context) ([]domain.Company, error)
}

type SurveyRepoImpl struct{ pool *pgxpool.Pool }

func NewSurveyRepo(pool *pgxpool.Pool) *SurveyRepoImpl { return &SurveyRepoImpl{pool: pool} }

const surveyCols = `s.id, s.event_id, s.title, COALESCE(s.description,''),
COALESCE(s.questions,'[]'::jsonb), s.is_active, s.require_email, s.require_phone,
COALESCE(s.current_responses,0), s.start_date, s.end_date, s.created_at`

func scanSurvey(row pgx.Row, s *domain.Survey) error {
	return row.Scan(
		&s.ID, &s.EventID, &s.Title, &s.Description,
		&s.Questions, &s.IsActive, &s.RequireEmail, &s.RequirePhone,
		&s.CurrentResponses, &s.StartDate, &s.EndDate, &s.CreatedAt,
	)
}

func (r *SurveyRepoImpl) FindDetail(ctx context.Context, id int64) (*SurveyDetail, error) {
	const q = `SELECT ` + surveyCols + `, e.event_name, c.company_name
FROM surveys s
JOIN events e ON s.event_id = e.id
JOIN companies c ON e.company_id = c.id
WHERE s.id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var d SurveyDetail
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&d.ID, &d.EventID, &d.Title, &d.Description,
		&d.Questions, &d.IsActive, &d.RequireEmail, &d.RequirePhone,
		&d.CurrentResponses, &d.StartDate, &d.EndDate, &d.CreatedAt,
		&d.EventName, &d.CompanyName,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *SurveyRepoImpl) CreateResponse(ctx context.Context, resp *domain.SurveyResponse) (*domain.SurveyResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const insertQ = `
INSERT INTO survey_responses (survey_id, respondent_name, respondent_email, respondent_phone,
                              respondent_company, booth_number, answers, rating, review)
VALUES ($1,NULLIF($2,''),NULLIF($3,''),NULLIF($4,''),NULLIF($5,''),NULLIF($6,''),$7,$8,NULLIF($9,''))
RETURNING id, submitted_at`
	if err := tx.QueryRow(ctx, insertQ,
		resp.SurveyID, resp.RespondentName, resp.RespondentEmail, resp.RespondentPhone,
		resp.RespondentCompany, resp.BoothNumber, resp.Answers, resp.Rating, resp.Review,
	).Scan(&resp.ID, &resp.SubmittedAt); err != nil {
		return nil, err
	}

	const bumpQ = `UPDATE surveys SET current_responses = COALESCE(current_responses,0) + 1 WHERE id=$1`
	if _, err := tx.Exec(ctx, bumpQ, resp.SurveyID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return resp, nil
}

func (r *SurveyRepoImpl) ListSummariesByEvent(ctx context.Context, eventID int64) ([]domain.Survey, error) {
	const q = `SELECT ` + surveyCols + ` FROM surveys s WHERE s.event_id=$1 ORDER BY s.id`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Survey
	for rows.Next() {
		var s domain.Survey
		if err := scanSurvey(rows, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SurveyRepoImpl) ActiveSurveyIDs(ctx context.Context, eventIDs []int64) (map[int64]int64, error) {
	if len(eventIDs) == 0 {
		return map[int64]int64{}, nil
	}
	const q = `SELECT event_id, min(id) FROM surveys WHERE is_active AND event_id = ANY($1) GROUP BY event_id`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, eventIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]int64, len(eventIDs))
	for rows.Next() {
		var eventID, surveyID int64
		if err := rows.Scan(&eventID, &surveyID); err != nil {
			return nil, err
		}
		out[eventID] = surveyID
	}
	return out, rows.Err()
}

func (r *SurveyRepoImpl) CompanyStats(ctx context.Context, companyID int64, since time.Time) ([]SurveyStat, error) {
	const q = `
SELECT s.id, s.title, e.event_name,
       count(sr.id),
       avg(sr.rating)
FROM surveys s
JOIN events e ON s.event_id = e.id
LEFT JOIN survey_responses sr ON sr.survey_id = s.id AND sr.submitted_at >= $2
WHERE e.company_id = $1 AND s.is_active
GROUP BY s.id, s.title, e.event_name
ORDER BY s.id`
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, companyID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SurveyStat
	for rows.Next() {
		var st SurveyStat
		if err := rows.Scan(&st.SurveyID, &st.Title, &st.EventName, &st.Responses, &st.AvgRating); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (r *SurveyRepoImpl) CompaniesWithActiveSurveys(ctx context.Context) ([]domain.Company, error) {
	const q = `
SELECT DISTINCT ` + companyCols2 + `
FROM companies co
JOIN events e ON e.company_id = co.id
JOIN surveys s ON s.event_id = e.id
WHERE s.is_active AND co.is_active AND co.email IS NOT NULL`
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// companyCols with the co alias used by the active-surveys join.
const companyCols2 = `co.id, co.company_name, co.username, co.password_hash,
COALESCE(co.business_number,''), COALESCE(co.email,''), COALESCE(co.phone,''),
COALESCE(co.address,''), COALESCE(co.website_url,''),
co.magic_token, co.token_expires_at, co.is_active, co.last_login_at, co.login_count,
co.created_by, co.created_at, co.updated_at`
