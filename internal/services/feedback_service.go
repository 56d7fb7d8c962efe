// Package services – FeedbackService
//
// This file implements FeedbackService, which relays website feedback
// submissions to the site owner by email. Submissions are validated before
// any email is rendered; the provider's raw error body never reaches the
// caller and is only logged by the mailer.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/tbourn/trustedloops-edge/internal/domain"
	"github.com/tbourn/trustedloops-edge/internal/mail"
	"github.com/tbourn/trustedloops-edge/internal/observability"
)

// FeedbackService validates and forwards feedback submissions.
type FeedbackService struct {
	// Mailer delivers the rendered message.
	Mailer mail.Mailer
	// Envelope carries the fixed From/To addressing and site name.
	Envelope mail.Envelope
	// Timeout bounds one provider call. Zero means no extra deadline.
	Timeout time.Duration
}

// Submit validates sub, renders the email and sends it.
//
// Errors:
//   - *ValidationError (ErrMissingField, ErrInvalidEmail) for bad input; the
//     mailer is not called.
//   - *UpstreamError when rendering or delivery fails.
func (s *FeedbackService) Submit(ctx context.Context, sub domain.FeedbackSubmission) error {
	ctx, span := otel.Tracer("services/FeedbackService").Start(ctx, "Submit")
	defer span.End()

	if err := ValidateFeedback(sub); err != nil {
		return err
	}

	msg, err := mail.Render(s.Envelope, sub)
	if err != nil {
		return &UpstreamError{Upstream: UpstreamResend, Err: fmt.Errorf("render: %w", err)}
	}

	callCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	start := time.Now()
	err = s.Mailer.Send(callCtx, msg)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		outcome := observability.OutcomeError
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = observability.OutcomeTimeout
		}
		observability.ObserveUpstream(UpstreamResend, outcome, elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return &UpstreamError{Upstream: UpstreamResend, Err: err}
	}
	observability.ObserveUpstream(UpstreamResend, observability.OutcomeOK, elapsed)
	return nil
}
