package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/trustedloops-edge/internal/domain"
	"github.com/tbourn/trustedloops-edge/internal/http/middleware"
	"github.com/tbourn/trustedloops-edge/internal/services"
)

type recordedIdem struct {
	clientKey, key string
	status         int
	calls          int
}

func (r *recordedIdem) Remember(_ context.Context, clientKey, key string, status int) error {
	r.calls++
	r.clientKey, r.key, r.status = clientKey, key, status
	return nil
}

func feedbackRouter(h *Handlers, mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/feedback", append(mw, h.Feedback)...)
	return r
}

func postFeedback(r *gin.Engine, body string, hdr ...string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/feedback", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	r.ServeHTTP(w, req)
	return w
}

func TestFeedback_OK(t *testing.T) {
	var got domain.FeedbackSubmission
	fb := stubFBSvc{fn: func(_ context.Context, sub domain.FeedbackSubmission) error {
		got = sub
		return nil
	}}
	r := feedbackRouter(New(nil, nil, fb))

	w := postFeedback(r, `{"name":"Ann","email":"ann@example.com","message":"Hi"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if w.Body.String() != `{"success":true,"message":"Thank you for your feedback!"}` {
		t.Fatalf("body: %s", w.Body.String())
	}
	if got.Name != "Ann" || got.Email != "ann@example.com" || got.Message != "Hi" {
		t.Fatalf("submission: %+v", got)
	}
}

func TestFeedback_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"missing field", services.ErrMissingField, http.StatusBadRequest, MsgFieldsRequired},
		{"invalid email", services.ErrInvalidEmail, http.StatusBadRequest, MsgInvalidEmail},
		{"provider", &services.UpstreamError{Upstream: services.UpstreamResend, Err: errors.New("resend: unexpected status 422")}, http.StatusInternalServerError, MsgSendFailed},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, MsgSendFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fb := stubFBSvc{fn: func(context.Context, domain.FeedbackSubmission) error { return tc.err }}
			r := feedbackRouter(New(nil, nil, fb))
			w := postFeedback(r, `{"name":"a","email":"b","message":"c"}`)
			if w.Code != tc.status || decodeError(t, w) != tc.msg {
				t.Fatalf("got %d %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestFeedback_BadJSON_400(t *testing.T) {
	fb := stubFBSvc{fn: func(context.Context, domain.FeedbackSubmission) error {
		t.Fatalf("service should not be called on bad JSON")
		return nil
	}}
	r := feedbackRouter(New(nil, nil, fb))
	w := postFeedback(r, `not json`)
	if w.Code != http.StatusBadRequest || decodeError(t, w) != MsgFieldsRequired {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}

func TestFeedback_IdempotencyRecordAndReplay(t *testing.T) {
	sent := 0
	fb := stubFBSvc{fn: func(context.Context, domain.FeedbackSubmission) error { sent++; return nil }}
	rec := &recordedIdem{}
	h := New(nil, nil, fb)
	h.Idem = rec

	r := feedbackRouter(h, middleware.IdempotencyValidator(middleware.IdempotencyOptions{
		Client: middleware.KeyByClientIP("CF-Connecting-IP"),
	}, func(_ context.Context, clientKey, key string, _ time.Time) (bool, error) {
		return rec.calls > 0 && rec.clientKey == clientKey && rec.key == key, nil
	}))

	body := `{"name":"Ann","email":"ann@example.com","message":"Hi"}`
	w1 := postFeedback(r, body, "Idempotency-Key", "fb-1", "CF-Connecting-IP", "203.0.113.5")
	if w1.Code != http.StatusOK || sent != 1 {
		t.Fatalf("first: %d sent=%d", w1.Code, sent)
	}
	if rec.calls != 1 || rec.clientKey != "203.0.113.5" || rec.key != "fb-1" || rec.status != http.StatusOK {
		t.Fatalf("recorded: %+v", rec)
	}

	w2 := postFeedback(r, body, "Idempotency-Key", "fb-1", "CF-Connecting-IP", "203.0.113.5")
	if w2.Code != http.StatusOK || w2.Body.String() != w1.Body.String() {
		t.Fatalf("replay: %d %s", w2.Code, w2.Body.String())
	}
	if sent != 1 {
		t.Fatalf("replay must not send again, sent=%d", sent)
	}

	// Same key from another client is a new submission.
	postFeedback(r, body, "Idempotency-Key", "fb-1", "CF-Connecting-IP", "198.51.100.1")
	if sent != 2 {
		t.Fatalf("other client should send, sent=%d", sent)
	}
}
