package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// QuestionKind is the closed set of survey question types. Answers are
// validated against the kind instead of type-sniffing an open JSON blob.
type QuestionKind string

const (
	QuestionRating QuestionKind = "rating"
	QuestionChoice QuestionKind = "choice"
	QuestionText   QuestionKind = "text"
)

type SurveyQuestion struct {
	ID       string       `json:"id"`
	Kind     QuestionKind `json:"kind"`
	Label    string       `json:"label"`
	Options  []string     `json:"options,omitempty"`  // choice only
	Multiple bool         `json:"multiple,omitempty"` // choice only
	Required bool         `json:"required"`
}

type Survey struct {
	ID               int64            `json:"id"`
	EventID          int64            `json:"event_id"`
	Title            string           `json:"title"`
	Description      string           `json:"description,omitempty"`
	Questions        []SurveyQuestion `json:"questions"`
	IsActive         bool             `json:"is_active"`
	RequireEmail     bool             `json:"require_email"`
	RequirePhone     bool             `json:"require_phone"`
	CurrentResponses int              `json:"current_responses"`
	StartDate        *time.Time       `json:"start_date,omitempty"`
	EndDate          *time.Time       `json:"end_date,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

// AnswerSet maps question IDs to raw submitted answers; ValidateAnswers
// decodes each one against its question's kind.
type AnswerSet map[string]json.RawMessage

type SurveyResponseCreate struct {
	Answers           AnswerSet `json:"answers"`
	RespondentName    string    `json:"respondent_name,omitempty"`
	RespondentEmail   string    `json:"respondent_email,omitempty"`
	RespondentCompany string    `json:"respondent_company,omitempty"`
	RespondentPhone   string    `json:"respondent_phone,omitempty"`
	BoothNumber       string    `json:"booth_number,omitempty"`
	Rating            *int      `json:"rating,omitempty"`
	Review            string    `json:"review,omitempty"`
}

type SurveyResponse struct {
	ID                int64     `json:"id"`
	SurveyID          int64     `json:"survey_id"`
	RespondentName    string    `json:"respondent_name,omitempty"`
	RespondentEmail   string    `json:"respondent_email,omitempty"`
	RespondentCompany string    `json:"respondent_company,omitempty"`
	RespondentPhone   string    `json:"respondent_phone,omitempty"`
	BoothNumber       string    `json:"booth_number,omitempty"`
	Answers           AnswerSet `json:"answers"`
	Rating            *int      `json:"rating,omitempty"`
	Review            string    `json:"review,omitempty"`
	SubmittedAt       time.Time `json:"submitted_at"`
}

// ValidateAnswers checks a submitted answer set against the survey's
// questions: required questions must be answered, ratings must be 1-5,
// choices must come from the question's options, unknown question IDs are
// rejected.
func ValidateAnswers(questions []SurveyQuestion, answers AnswerSet) error {
	byID := make(map[string]SurveyQuestion, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	for id := range answers {
		if _, ok := byID[id]; !ok {
			return fmt.Errorf("answer references unknown question %q", id)
		}
	}

	for _, q := range questions {
		raw, ok := answers[q.ID]
		if !ok || len(raw) == 0 {
			if q.Required {
				return fmt.Errorf("question %q requires an answer", q.ID)
			}
			continue
		}
		if err := validateAnswer(q, raw); err != nil {
			return err
		}
	}
	return nil
}

func validateAnswer(q SurveyQuestion, raw json.RawMessage) error {
	switch q.Kind {
	case QuestionRating:
		var rating int
		if err := json.Unmarshal(raw, &rating); err != nil {
			return fmt.Errorf("question %q expects a numeric rating", q.ID)
		}
		if rating < 1 || rating > 5 {
			return fmt.Errorf("question %q rating must be between 1 and 5", q.ID)
		}
	case QuestionChoice:
		selected, err := decodeChoices(raw)
		if err != nil {
			return fmt.Errorf("question %q expects a choice selection", q.ID)
		}
		if len(selected) == 0 {
			if q.Required {
				return fmt.Errorf("question %q requires a selection", q.ID)
			}
			return nil
		}
		if !q.Multiple && len(selected) > 1 {
			return fmt.Errorf("question %q allows a single selection", q.ID)
		}
		for _, s := range selected {
			if !contains(q.Options, s) {
				return fmt.Errorf("question %q has no option %q", q.ID, s)
			}
		}
	case QuestionText:
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return fmt.Errorf("question %q expects free text", q.ID)
		}
		if q.Required && text == "" {
			return fmt.Errorf("question %q requires an answer", q.ID)
		}
	default:
		return fmt.Errorf("question %q has unsupported kind %q", q.ID, q.Kind)
	}
	return nil
}

func decodeChoices(raw json.RawMessage) ([]string, error) {
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many, nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, err
	}
	if one == "" {
		return nil, nil
	}
	return []string{one}, nil
}

func contains(opts []string, v string) bool {
	for _, o := range opts {
		if o == v {
			return true
		}
	}
	return false
}
