// Package service implements the credential lifecycle: issue, verify, revoke,
// and the read operations over registry state.
//
// Every mutation runs inside store.RunInTx, which is the registry's single
// serialization point. Notifications, audit events, and metrics happen after
// the transaction commits and never change the result of the call.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"credreg/internal/audit"
	"credreg/internal/platform/metrics"
	"credreg/internal/registry/gate"
	"credreg/internal/registry/models"
	"credreg/internal/registry/store"
	"credreg/pkg/domain"
	dErrors "credreg/pkg/domain-errors"
	"credreg/pkg/platform/middleware/requesttime"
	"credreg/pkg/platform/sentinel"
	"credreg/pkg/platform/tracer"
	"credreg/pkg/requestcontext"
)

const notifyTimeout = 5 * time.Second

// ProfileNotifier is told about each committed issuance.
type ProfileNotifier interface {
	RecordAdded(ctx context.Context, recipient domain.Identity, id domain.CredentialID) error
}

// AuditPublisher emits audit events for registry mutations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Option configures the Service.
type Option func(*Service)

type Service struct {
	store    store.Store
	gate     *gate.Gate
	notifier ProfileNotifier
	auditor  AuditPublisher
	metrics  *metrics.Metrics
	tracer   tracer.Tracer
	logger   *slog.Logger
}

// New creates a registry service. Proofs presented by callers are checked with
// verifier.
func New(st store.Store, verifier gate.ProofVerifier, opts ...Option) *Service {
	s := &Service{
		store:  st,
		gate:   gate.New(verifier),
		tracer: tracer.NewNoop(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func WithNotifier(n ProfileNotifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithAuditor(a AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// Initialize records the registry admin. It succeeds once; later calls fail
// with CodeConflict.
func (s *Service) Initialize(ctx context.Context, admin domain.Identity) (err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanInitialize, tracer.String(tracer.AttrCaller, admin.String()))
	defer func() { span.End(err) }()

	admin, err = domain.ParseIdentity(admin.String())
	if err != nil {
		return err
	}
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		return tx.SetAdmin(ctx, admin)
	})
	if err != nil {
		return s.translate(err, "failed to initialize registry")
	}

	s.logger.InfoContext(ctx, "registry initialized", "admin", admin.String())
	s.emitAudit(ctx, audit.Event{
		Actor:    admin,
		Action:   audit.ActionRegistryInitialized,
		Decision: audit.DecisionGranted,
	})
	return nil
}

// Issue records a new credential for req.Recipient and returns its ID. IDs
// start at 1 and increase by one per successful call.
func (s *Service) Issue(ctx context.Context, req models.IssueRequest) (id domain.CredentialID, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanIssue,
		tracer.String(tracer.AttrCaller, req.Issuer.Identity.String()),
		tracer.String(tracer.AttrRecipient, req.Recipient.String()),
	)
	defer func() {
		span.End(err)
		s.observe("issue", start)
	}()

	if err := s.authenticate(ctx, req.Issuer, "issue"); err != nil {
		return 0, err
	}

	var credential *models.Credential
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		if err := s.authorize(ctx, tx, req.Issuer.Identity, "issue"); err != nil {
			return err
		}
		if err := validateIssue(req); err != nil {
			return err
		}

		count, err := tx.CredentialCount(ctx)
		if err != nil {
			return err
		}
		if count == math.MaxUint64 {
			return dErrors.New(dErrors.CodeInternal, "credential id space exhausted")
		}
		next := domain.CredentialID(count + 1)

		credential = &models.Credential{
			ID:                next,
			Issuer:            req.Issuer.Identity,
			Recipient:         req.Recipient,
			Title:             req.Title,
			Description:       req.Description,
			CourseID:          req.CourseID,
			CompletionDate:    requesttime.Now(ctx),
			DocumentReference: req.DocumentReference,
		}
		if err := tx.SaveCredential(ctx, credential); err != nil {
			return err
		}
		if err := tx.AppendRecipientCredential(ctx, req.Recipient, next); err != nil {
			return err
		}
		return tx.SetCredentialCount(ctx, uint64(next))
	})
	if err != nil {
		return 0, s.translate(err, "failed to issue credential")
	}

	span.AddEvent(tracer.EventCommitted, tracer.Uint64(tracer.AttrCredentialID, uint64(credential.ID)))
	s.logger.InfoContext(ctx, "credential issued",
		"credential_id", credential.ID.String(),
		"recipient", credential.Recipient.String(),
		"course_id", credential.CourseID,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.IncrementIssued()
	}
	s.emitAudit(ctx, audit.Event{
		Actor:        credential.Issuer,
		Subject:      credential.Recipient,
		CredentialID: credential.ID,
		Action:       audit.ActionCredentialIssued,
		Decision:     audit.DecisionGranted,
	})
	s.notifyAdded(ctx, span, credential)

	return credential.ID, nil
}

// Verify reports whether the credential exists and has not been revoked.
func (s *Service) Verify(ctx context.Context, id domain.CredentialID) (valid bool, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanVerify, tracer.Uint64(tracer.AttrCredentialID, uint64(id)))
	defer func() {
		span.End(err)
		s.observe("verify", start)
	}()

	credential, err := s.store.FindCredential(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.countVerify(metrics.VerifyNotFound)
		}
		return false, s.translate(err, "failed to verify credential")
	}

	valid = !credential.IsRevoked
	span.SetAttributes(tracer.Bool(tracer.AttrValid, valid))
	if valid {
		s.countVerify(metrics.VerifyValid)
	} else {
		s.countVerify(metrics.VerifyRevoked)
	}
	return valid, nil
}

// Revoke marks a credential revoked. Revoking an already revoked credential
// succeeds without writing.
func (s *Service) Revoke(ctx context.Context, id domain.CredentialID, revoker models.Caller) (err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanRevoke,
		tracer.Uint64(tracer.AttrCredentialID, uint64(id)),
		tracer.String(tracer.AttrCaller, revoker.Identity.String()),
	)
	defer func() {
		span.End(err)
		s.observe("revoke", start)
	}()

	if err := s.authenticate(ctx, revoker, "revoke"); err != nil {
		return err
	}

	var credential *models.Credential
	changed := false
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		if err := s.authorize(ctx, tx, revoker.Identity, "revoke"); err != nil {
			return err
		}
		c, err := tx.FindCredential(ctx, id)
		if err != nil {
			return err
		}
		credential = c
		if c.IsRevoked {
			return nil
		}
		c.IsRevoked = true
		changed = true
		return tx.SaveCredential(ctx, c)
	})
	if err != nil {
		return s.translate(err, "failed to revoke credential")
	}

	span.SetAttributes(tracer.Bool(tracer.AttrRevoked, true))
	if !changed {
		s.logger.InfoContext(ctx, "credential already revoked",
			"credential_id", id.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil
	}

	span.AddEvent(tracer.EventCommitted)
	s.logger.InfoContext(ctx, "credential revoked",
		"credential_id", id.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.IncrementRevoked()
	}
	s.emitAudit(ctx, audit.Event{
		Actor:        revoker.Identity,
		Subject:      credential.Recipient,
		CredentialID: id,
		Action:       audit.ActionCredentialRevoked,
		Decision:     audit.DecisionGranted,
	})
	return nil
}

// GetUserCredentials returns the IDs issued to recipient in issuance order.
// A recipient with no credentials yields an empty, non-nil slice.
func (s *Service) GetUserCredentials(ctx context.Context, recipient domain.Identity) (ids []domain.CredentialID, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanGetUserCredentials, tracer.String(tracer.AttrRecipient, recipient.String()))
	defer func() { span.End(err) }()

	if recipient.IsNil() {
		return []domain.CredentialID{}, nil
	}
	ids, err = s.store.RecipientCredentials(ctx, recipient)
	if err != nil {
		return nil, s.translate(err, "failed to list recipient credentials")
	}
	if ids == nil {
		ids = []domain.CredentialID{}
	}
	span.SetAttributes(tracer.Int64(tracer.AttrCount, int64(len(ids))))
	return ids, nil
}

// GetCredential returns the stored record for id.
func (s *Service) GetCredential(ctx context.Context, id domain.CredentialID) (credential *models.Credential, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanGetCredential, tracer.Uint64(tracer.AttrCredentialID, uint64(id)))
	defer func() { span.End(err) }()

	credential, err = s.store.FindCredential(ctx, id)
	if err != nil {
		return nil, s.translate(err, "failed to load credential")
	}
	return credential, nil
}

// GetCredentialCount returns how many credentials were ever issued.
func (s *Service) GetCredentialCount(ctx context.Context) (count uint64, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanGetCredentialCount)
	defer func() { span.End(err) }()

	count, err = s.store.CredentialCount(ctx)
	if err != nil {
		return 0, s.translate(err, "failed to read credential count")
	}
	span.SetAttributes(tracer.Uint64(tracer.AttrCount, count))
	return count, nil
}

func (s *Service) authenticate(ctx context.Context, caller models.Caller, op string) error {
	if err := s.gate.Authenticate(ctx, caller); err != nil {
		s.denied(ctx, caller.Identity, op, metrics.DenialUnauthenticated, err)
		return err
	}
	return nil
}

func (s *Service) authorize(ctx context.Context, admins gate.AdminSource, identity domain.Identity, op string) error {
	err := s.gate.Authorize(ctx, admins, identity)
	if err != nil && dErrors.HasCode(err, dErrors.CodeForbidden) {
		s.denied(ctx, identity, op, metrics.DenialNotAdmin, err)
	}
	return err
}

func (s *Service) denied(ctx context.Context, identity domain.Identity, op, reason string, err error) {
	s.logger.WarnContext(ctx, "registry mutation denied",
		"operation", op,
		"caller", identity.String(),
		"reason", reason,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.IncrementAuthDenial(reason)
	}
	s.emitAudit(ctx, audit.Event{
		Actor:    identity,
		Action:   audit.ActionMutationDenied,
		Decision: audit.DecisionDenied,
		Reason:   op + ":" + reason,
	})
}

func (s *Service) notifyAdded(ctx context.Context, span tracer.Span, c *models.Credential) {
	if s.notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := s.notifier.RecordAdded(nctx, c.Recipient, c.ID); err != nil {
		s.logger.WarnContext(ctx, "profile notification failed",
			"credential_id", c.ID.String(),
			"recipient", c.Recipient.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		if s.metrics != nil {
			s.metrics.IncrementNotifyFailures()
		}
		return
	}
	span.AddEvent(tracer.EventNotified)
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	event.Timestamp = requesttime.Now(ctx)
	if err := s.auditor.Emit(context.WithoutCancel(ctx), event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}

func (s *Service) observe(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOperationLatency(op, time.Since(start).Seconds())
	}
}

func (s *Service) countVerify(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementVerify(outcome)
	}
}

// translate maps store errors to domain errors. Errors that already carry a
// domain code pass through unchanged.
func (s *Service) translate(err error, msg string) error {
	var domainErr *dErrors.Error
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "credential not found")
	case errors.Is(err, sentinel.ErrAlreadySet):
		return dErrors.New(dErrors.CodeConflict, "registry already initialized")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "concurrent modification, retry the request")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

// validateIssue only guards the index key. Field content and size limits are
// enforced at the HTTP edge; the registry itself stores any strings.
func validateIssue(req models.IssueRequest) error {
	if req.Recipient.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "recipient is required")
	}
	return nil
}
