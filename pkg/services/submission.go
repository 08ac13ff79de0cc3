package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"contact-guard/pkg/clients/airtable"
	"contact-guard/pkg/clients/emailjs"
	"contact-guard/pkg/clients/twilio"
	"contact-guard/pkg/guard"
	"contact-guard/pkg/metrics"
	"contact-guard/pkg/models"
	"contact-guard/pkg/storage"
)

const (
	MessageSuccess    = "Merci pour votre message ! Je vous répondrai dans les 24-48 heures."
	MessageRetryLater = "Une erreur est survenue. Veuillez réessayer ou me contacter directement par email."
)

// ErrStateUnavailable means the client's rate limit state could not be read,
// so the submission is refused rather than let through unchecked.
var ErrStateUnavailable = errors.New("rate limit state unavailable")

// stateWriteTimeout bounds the counter update made after the relay accepted
// a message. The write is detached from the request so a client hanging up
// cannot skip it.
const stateWriteTimeout = 5 * time.Second

// ContactSubmissionService defines the interface for handling contact form submissions
type ContactSubmissionService interface {
	// ProcessSubmission runs the guard and, when it passes, sends the email.
	// store holds the submitting client's counters. The returned error is nil
	// whenever the page should show a success notification.
	ProcessSubmission(ctx context.Context, store storage.Store, form models.ContactForm) (models.Notification, error)

	// Wait blocks until background follow-ups have finished
	Wait()
}

// Options carries the settings the service needs besides its collaborators
type Options struct {
	ServiceID  string
	TemplateID string
	Location   *time.Location

	ArchiveTable      string
	OwnerPhone        string
	SideEffectTimeout time.Duration

	// Clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

type contactSubmissionServiceImpl struct {
	guard   *guard.Guard
	relay   emailjs.Client
	archive airtable.Client
	sms     twilio.Client
	metrics *metrics.Recorder
	logger  *zap.Logger
	opts    Options

	wg sync.WaitGroup
}

// NewContactSubmissionService creates a new submission service.
// archive and sms are optional and may be nil.
func NewContactSubmissionService(
	g *guard.Guard,
	relay emailjs.Client,
	archive airtable.Client,
	sms twilio.Client,
	recorder *metrics.Recorder,
	logger *zap.Logger,
	opts Options,
) ContactSubmissionService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.SideEffectTimeout <= 0 {
		opts.SideEffectTimeout = 15 * time.Second
	}
	if recorder == nil {
		recorder = metrics.NewRecorder()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &contactSubmissionServiceImpl{
		guard:   g,
		relay:   relay,
		archive: archive,
		sms:     sms,
		metrics: recorder,
		logger:  logger,
		opts:    opts,
	}
}

// ProcessSubmission handles the entire submission workflow
func (s *contactSubmissionServiceImpl) ProcessSubmission(ctx context.Context, store storage.Store, form models.ContactForm) (models.Notification, error) {
	now := s.opts.Now()
	submissionID := uuid.NewString()
	logger := s.logger.With(zap.String("submission_id", submissionID))

	state, err := storage.LoadState(ctx, store)
	if err != nil {
		logger.Error("Error loading rate limit state", zap.Error(err))
		s.metrics.Submission("storage_error")
		return retryLater(guard.ReasonDispatchFailed), fmt.Errorf("%w: %v", ErrStateUnavailable, err)
	}

	submission, state, err := s.guard.Evaluate(form, state, now)
	if errors.Is(err, guard.ErrHoneypotTriggered) {
		logger.Info("Honeypot triggered, dropping submission silently")
		s.metrics.Submission("honeypot")
		return success(), nil
	}

	var rejection *guard.Rejection
	if errors.As(err, &rejection) {
		logger.Info("Submission rejected",
			zap.String("reason", rejection.Reason()),
			zap.String("field", rejection.Field))
		s.metrics.Submission(rejection.Reason())
		return models.Notification{
			Kind:    models.KindError,
			Message: rejection.Message,
			Field:   rejection.Field,
			Reason:  rejection.Reason(),
		}, rejection
	}
	if err != nil {
		return retryLater(guard.ReasonDispatchFailed), err
	}

	params := s.guard.TemplateParams(submission, now, s.opts.Location)

	start := time.Now()
	resp, err := s.relay.Send(ctx, s.opts.ServiceID, s.opts.TemplateID, params)
	s.metrics.RelayDuration(time.Since(start).Seconds(), err == nil)
	if err != nil {
		logger.Error("Error sending email", zap.Error(err))
		s.metrics.Submission(guard.ReasonDispatchFailed)
		return retryLater(guard.ReasonDispatchFailed), &guard.Rejection{
			Kind:    guard.ErrDispatchFailed,
			Message: MessageRetryLater,
		}
	}

	logger.Info("Email sent", zap.Int("status", resp.Status), zap.String("service", params["service"]))
	s.metrics.Submission("success")

	// The email is out; a failed write only weakens the next rate limit check.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stateWriteTimeout)
	defer cancel()
	if err := storage.SaveState(saveCtx, store, s.guard.Commit(state, now)); err != nil {
		logger.Error("Error saving rate limit state", zap.Error(err))
	}

	s.wg.Add(1)
	go s.followUp(context.WithoutCancel(ctx), logger, submissionID, submission, params, now)

	return success(), nil
}

// followUp archives the submission and alerts the site owner. Neither
// affects what the visitor was told. Airtable and SMS show text as is, so
// they get the unescaped fields.
func (s *contactSubmissionServiceImpl) followUp(ctx context.Context, logger *zap.Logger, submissionID string, submission guard.Submission, params map[string]string, now time.Time) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, s.opts.SideEffectTimeout)
	defer cancel()

	service := s.guard.Policy().ServiceLabel(submission.Plain.Service)

	var g errgroup.Group

	if s.archive != nil {
		g.Go(func() error {
			recordID, err := s.archive.CreateRecord(ctx, s.opts.ArchiveTable, map[string]interface{}{
				"Submission ID": submissionID,
				"Name":          submission.Plain.Name,
				"Email":         submission.Plain.Email,
				"Phone":         submission.Plain.Phone,
				"Service":       service,
				"Message":       submission.Plain.Message,
				"Received At":   now.UTC().Format(time.RFC3339),
			})
			if err != nil {
				return fmt.Errorf("error archiving submission: %w", err)
			}
			logger.Debug("Submission archived", zap.String("record_id", recordID))
			return nil
		})
	}

	if s.sms != nil && s.opts.OwnerPhone != "" {
		g.Go(func() error {
			body := fmt.Sprintf("Nouveau message de %s (%s) reçu le %s à %s.",
				submission.Plain.Name, service, params["date"], params["time"])
			sid, err := s.sms.SendSMS(s.opts.OwnerPhone, body)
			if err != nil {
				return fmt.Errorf("error sending owner alert: %w", err)
			}
			logger.Debug("Owner alert sent", zap.String("sid", sid))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Warn("Follow-up failed", zap.Error(err))
	}
}

func (s *contactSubmissionServiceImpl) Wait() {
	s.wg.Wait()
}

func success() models.Notification {
	return models.Notification{Kind: models.KindSuccess, Message: MessageSuccess}
}

func retryLater(reason string) models.Notification {
	return models.Notification{Kind: models.KindError, Message: MessageRetryLater, Reason: reason}
}
