package models

import (
	"strings"
	"testing"
)

func expectErrCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error code %s but got nil", code)
	}
	resp, ok := err.(*ErrorResponse)
	if !ok {
		t.Fatalf("expected ErrorResponse, got %T", err)
	}
	if resp.Code != code {
		t.Fatalf("expected error code %s, got %s", code, resp.Code)
	}
}

func TestErrorResponse_Error(t *testing.T) {
	err := &ErrorResponse{Message: "failed"}
	if err.Error() != "failed" {
		t.Fatalf("expected message to be returned, got %s", err.Error())
	}
}

func TestDraftRequestValidate(t *testing.T) {
	if err := (&DraftRequest{Answer: "short"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := &DraftRequest{Answer: strings.Repeat("a", MaxAnswerLength+1)}
	expectErrCode(t, req.Validate(), "answer_too_long")
}

func TestSubmitRequestValidate(t *testing.T) {
	t.Run("nil answer submits draft", func(t *testing.T) {
		req := &SubmitRequest{}
		if err := req.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req.Answer != nil {
			t.Fatalf("expected answer to stay nil")
		}
	})

	t.Run("answer is trimmed", func(t *testing.T) {
		answer := "  I have 5 years of experience \n"
		req := &SubmitRequest{Answer: &answer}
		if err := req.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if *req.Answer != "I have 5 years of experience" {
			t.Fatalf("expected trimmed answer, got %q", *req.Answer)
		}
	})

	t.Run("too long", func(t *testing.T) {
		answer := strings.Repeat("a", MaxAnswerLength+1)
		expectErrCode(t, (&SubmitRequest{Answer: &answer}).Validate(), "answer_too_long")
	})
}

func TestInterviewResultRoundTrip(t *testing.T) {
	eval := &FinalEvaluation{
		OverallScore:   7,
		Recommendation: RecommendationRecommend,
		Strengths:      []string{"Go"},
		AnswerScores:   []AnswerScore{{Score: 7, Feedback: "ok"}},
	}
	stored := NewInterviewResult("tok", "cand", eval)
	if stored.Token != "tok" || stored.CandidateID != "cand" {
		t.Fatalf("unexpected identity fields: %+v", stored)
	}
	back := stored.Evaluation()
	if back.OverallScore != 7 || back.Recommendation != RecommendationRecommend || len(back.AnswerScores) != 1 {
		t.Fatalf("unexpected evaluation: %+v", back)
	}
}
