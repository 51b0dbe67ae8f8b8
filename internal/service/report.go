package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/expohall/expohall-api/internal/platform/mailer"
	"github.com/expohall/expohall-api/internal/repo/postgres"
	"github.com/expohall/expohall-api/pkg/events"
	"github.com/expohall/expohall-api/pkg/logger"
)

// reportConcurrency bounds parallel report emails so a long company list
// doesn't hammer the mail provider.
const reportConcurrency = 5

// ReportService mails each company a daily summary of survey responses
// collected across its events.
type ReportService interface {
	SendDailyReports(ctx context.Context) error
}

type reportService struct {
	surveyRepo postgres.SurveyRepo
	mailer     mailer.Service
	eventBus   events.EventBus
}

func NewReportService(surveyRepo postgres.SurveyRepo, mailer mailer.Service, eventBus events.EventBus) ReportService {
	return &reportService{
		surveyRepo: surveyRepo,
		mailer:     mailer,
		eventBus:   eventBus,
	}
}

func (s *reportService) SendDailyReports(ctx context.Context) error {
	companies, err := s.surveyRepo.CompaniesWithActiveSurveys(ctx)
	if err != nil {
		return fmt.Errorf("failed to list companies with active surveys: %w", err)
	}
	if len(companies) == 0 {
		logger.InfoContext(ctx, "No active surveys, skipping daily reports")
		return nil
	}

	since := time.Now().UTC().Add(-24 * time.Hour)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(reportConcurrency)
	for _, company := range companies {
		company := company
		g.Go(func() error {
			sent, err := s.sendOne(ctx, company.ID, company.CompanyName, company.Email, since)
			if err != nil {
				// One failed report shouldn't abort the rest
				logger.ErrorContext(ctx, "Failed to send survey report", "error", err, "company_id", company.ID)
			}
			if pubErr := s.eventBus.Publish(ctx, events.ReportCompleted, events.ReportCompletedEvent{
				CompanyID: company.ID,
				Sent:      sent,
				At:        time.Now().UTC(),
			}); pubErr != nil {
				logger.WarnContext(ctx, "Failed to publish report event", "error", pubErr, "company_id", company.ID)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *reportService) sendOne(ctx context.Context, companyID int64, companyName, email string, since time.Time) (bool, error) {
	stats, err := s.surveyRepo.CompanyStats(ctx, companyID, since)
	if err != nil {
		return false, fmt.Errorf("failed to load survey stats: %w", err)
	}

	total := 0
	for _, st := range stats {
		total += st.Responses
	}
	if total == 0 {
		// Nothing new today; don't send an empty report
		return false, nil
	}

	subject := fmt.Sprintf("Daily survey report: %d new responses", total)
	text, html := reportBodies(companyName, stats, total)
	if _, err := s.mailer.Send(email, companyName, subject, text, html); err != nil {
		return false, fmt.Errorf("failed to send report email: %w", err)
	}
	return true, nil
}

func reportBodies(companyName string, stats []postgres.SurveyStat, total int) (text, html string) {
	var tb, hb strings.Builder

	fmt.Fprintf(&tb, "Hello %s,\n\nYour events collected %d survey responses in the last 24 hours.\n\n", companyName, total)
	fmt.Fprintf(&hb, "<p>Hello %s,</p><p>Your events collected <strong>%d</strong> survey responses in the last 24 hours.</p><ul>", companyName, total)

	for _, st := range stats {
		rating := "n/a"
		if st.AvgRating != nil {
			rating = fmt.Sprintf("%.1f/5", *st.AvgRating)
		}
		fmt.Fprintf(&tb, "- %s (%s): %d responses, avg rating %s\n", st.Title, st.EventName, st.Responses, rating)
		fmt.Fprintf(&hb, "<li>%s (%s): %d responses, avg rating %s</li>", st.Title, st.EventName, st.Responses, rating)
	}

	tb.WriteString("\nSign in to your dashboard for the full breakdown.\n")
	hb.WriteString("</ul><p>Sign in to your dashboard for the full breakdown.</p>")
	return tb.String(), hb.String()
}
