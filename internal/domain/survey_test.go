package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/expohall/expohall-api/internal/domain"
)

func questions() []domain.SurveyQuestion {
	return []domain.SurveyQuestion{
		{ID: "q1", Kind: domain.QuestionRating, Label: "Overall", Required: true},
		{ID: "q2", Kind: domain.QuestionChoice, Label: "Visit reason", Options: []string{"demo", "talk", "swag"}},
		{ID: "q3", Kind: domain.QuestionChoice, Label: "Topics", Options: []string{"ai", "robotics"}, Multiple: true},
		{ID: "q4", Kind: domain.QuestionText, Label: "Comments"},
	}
}

func answers(t *testing.T, pairs map[string]string) domain.AnswerSet {
	t.Helper()
	out := make(domain.AnswerSet, len(pairs))
	for id, raw := range pairs {
		out[id] = json.RawMessage(raw)
	}
	return out
}

func TestValidateAnswers(t *testing.T) {
	tests := []struct {
		name    string
		answers map[string]string
		wantErr bool
	}{
		{"all valid", map[string]string{"q1": `5`, "q2": `"demo"`, "q3": `["ai","robotics"]`, "q4": `"great booth"`}, false},
		{"required only", map[string]string{"q1": `3`}, false},
		{"single choice as string", map[string]string{"q1": `1`, "q2": `"talk"`}, false},
		{"missing required", map[string]string{"q4": `"hi"`}, true},
		{"rating too high", map[string]string{"q1": `6`}, true},
		{"rating zero", map[string]string{"q1": `0`}, true},
		{"rating not a number", map[string]string{"q1": `"five"`}, true},
		{"unknown question", map[string]string{"q1": `4`, "q9": `"?"`}, true},
		{"choice outside options", map[string]string{"q1": `4`, "q2": `"party"`}, true},
		{"multiple on single choice", map[string]string{"q1": `4`, "q2": `["demo","talk"]`}, true},
		{"multi choice subset", map[string]string{"q1": `4`, "q3": `["ai"]`}, false},
		{"text not a string", map[string]string{"q1": `4`, "q4": `17`}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := domain.ValidateAnswers(questions(), answers(t, tc.answers))
			if (err != nil) != tc.wantErr {
				t.Errorf("err = %v, wantErr = %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateAnswersRequiredText(t *testing.T) {
	qs := []domain.SurveyQuestion{{ID: "q1", Kind: domain.QuestionText, Label: "Why", Required: true}}

	if err := domain.ValidateAnswers(qs, answers(t, map[string]string{"q1": `""`})); err == nil {
		t.Error("empty required text accepted")
	}
	if err := domain.ValidateAnswers(qs, answers(t, map[string]string{"q1": `"because"`})); err != nil {
		t.Errorf("valid text rejected: %v", err)
	}
}
