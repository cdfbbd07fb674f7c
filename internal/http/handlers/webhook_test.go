package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"videomorph/internal/domain"
	"videomorph/internal/service"
)

func submitJob(t *testing.T, ts *testServer) *domain.JobRecord {
	t.Helper()
	job, err := ts.orch.Submit(context.Background(), service.SubmitRequest{
		SourceURL: "https://x/in.mp4",
		Params:    domain.Parameters{Style: "cinematic", Intensity: 70, Duration: 15},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	return job
}

func TestWebhookCompletesJob(t *testing.T) {
	ts := newTestServer(t)
	job := submitJob(t, ts)

	rec := ts.do(t, http.MethodPost, "/v1/webhook", `{"jobId":"`+job.ID+`","resultUrl":"https://x/out.mp4"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if resp := decodeBody(t, rec); resp["status"] != "completed" {
		t.Errorf("status = %v, want completed", resp["status"])
	}

	got, err := ts.orch.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != domain.StatusCompleted || got.ResultURL != "https://x/out.mp4" {
		t.Errorf("record = %+v, want completed with result url", got)
	}
}

func TestWebhookFailsJob(t *testing.T) {
	ts := newTestServer(t)
	job := submitJob(t, ts)

	rec := ts.do(t, http.MethodPost, "/v1/webhook", `{"jobId":"`+job.ID+`","error":"encoder error"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	got, _ := ts.orch.Get(context.Background(), job.ID)
	if got.Status != domain.StatusFailed || got.FailureReason != "encoder error" {
		t.Errorf("record = %+v, want failed with reason", got)
	}
}

func TestWebhookDuplicateDeliveryStaysOK(t *testing.T) {
	ts := newTestServer(t)
	job := submitJob(t, ts)
	payload := `{"jobId":"` + job.ID + `","resultUrl":"https://x/out.mp4"}`

	for i := 0; i < 3; i++ {
		rec := ts.do(t, http.MethodPost, "/v1/webhook", payload)
		if rec.Code != http.StatusOK {
			t.Fatalf("delivery %d: status = %d", i, rec.Code)
		}
	}
	// A conflicting late delivery is also acknowledged and discarded.
	rec := ts.do(t, http.MethodPost, "/v1/webhook", `{"jobId":"`+job.ID+`","error":"spurious"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("late delivery: status = %d", rec.Code)
	}

	got, _ := ts.orch.Get(context.Background(), job.ID)
	if got.Status != domain.StatusCompleted || got.ResultURL != "https://x/out.mp4" {
		t.Errorf("record mutated by duplicates: %+v", got)
	}
}

func TestWebhookRejections(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"malformed json", `{"jobId":`, http.StatusBadRequest},
		{"missing job id", `{"resultUrl":"https://x/out.mp4"}`, http.StatusBadRequest},
		{"no outcome", `{"jobId":"abc"}`, http.StatusBadRequest},
		{"unknown job", `{"jobId":"nope","resultUrl":"https://x/out.mp4"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			rec := ts.do(t, http.MethodPost, "/v1/webhook", tt.body)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d, body = %s", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}
}
