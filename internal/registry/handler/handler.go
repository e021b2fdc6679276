package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"credreg/internal/registry/models"
	"credreg/pkg/domain"
	dErrors "credreg/pkg/domain-errors"
	"credreg/pkg/platform/httputil"
	"credreg/pkg/requestcontext"
	"credreg/pkg/validation"
)

// Service defines the registry operations used by the handler.
type Service interface {
	Issue(ctx context.Context, req models.IssueRequest) (domain.CredentialID, error)
	Verify(ctx context.Context, id domain.CredentialID) (bool, error)
	Revoke(ctx context.Context, id domain.CredentialID, revoker models.Caller) error
	GetUserCredentials(ctx context.Context, recipient domain.Identity) ([]domain.CredentialID, error)
	GetCredential(ctx context.Context, id domain.CredentialID) (*models.Credential, error)
	GetCredentialCount(ctx context.Context) (uint64, error)
}

// Handler wires registry endpoints to the lifecycle service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a registry handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts registry endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/credentials", h.HandleIssue)
	r.Get("/credentials/count", h.HandleCount)
	r.Get("/credentials/{id}", h.HandleGetCredential)
	r.Get("/credentials/{id}/verify", h.HandleVerify)
	r.Post("/credentials/{id}/revoke", h.HandleRevoke)
	r.Get("/recipients/{identity}/credentials", h.HandleRecipientCredentials)
}

// IssueRequest is the request body for credential issuance.
type IssueRequest struct {
	Recipient         string `json:"recipient" validate:"required,identity"`
	Title             string `json:"title" validate:"notblank,max=200"`
	Description       string `json:"description" validate:"max=2000"`
	CourseID          string `json:"course_id" validate:"notblank,max=100"`
	DocumentReference string `json:"document_reference" validate:"max=512"`
}

// Normalize trims whitespace around identifiers.
func (r *IssueRequest) Normalize() {
	if r == nil {
		return
	}
	r.Recipient = strings.TrimSpace(r.Recipient)
}

// Validate checks field presence and size limits.
func (r *IssueRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

// IssueResponse is the response body for credential issuance.
type IssueResponse struct {
	CredentialID domain.CredentialID `json:"credential_id"`
}

// CredentialResponse is a credential plus its tamper-evidence digest.
type CredentialResponse struct {
	ID                domain.CredentialID `json:"id"`
	Issuer            domain.Identity     `json:"issuer"`
	Recipient         domain.Identity     `json:"recipient"`
	Title             string              `json:"title"`
	Description       string              `json:"description"`
	CourseID          string              `json:"course_id"`
	CompletionDate    time.Time           `json:"completion_date"`
	DocumentReference string              `json:"document_reference"`
	IsRevoked         bool                `json:"is_revoked"`
	Digest            string              `json:"digest"`
}

// VerifyResponse reports credential validity.
type VerifyResponse struct {
	CredentialID domain.CredentialID `json:"credential_id"`
	Valid        bool                `json:"valid"`
	Reason       string              `json:"reason,omitempty"`
}

// RevokeResponse confirms a credential is revoked.
type RevokeResponse struct {
	CredentialID domain.CredentialID `json:"credential_id"`
	Revoked      bool                `json:"revoked"`
}

// RecipientCredentialsResponse lists a recipient's credential IDs in issuance order.
type RecipientCredentialsResponse struct {
	Recipient     domain.Identity       `json:"recipient"`
	CredentialIDs []domain.CredentialID `json:"credential_ids"`
}

// CountResponse is the total number of credentials ever issued.
type CountResponse struct {
	Count uint64 `json:"count"`
}

const reasonNotFound = "credential_not_found"

// HandleIssue issues a credential on behalf of the calling admin.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	id, err := h.service.Issue(ctx, models.IssueRequest{
		Issuer:            callerFrom(ctx),
		Recipient:         domain.Identity(req.Recipient),
		Title:             req.Title,
		Description:       req.Description,
		CourseID:          req.CourseID,
		DocumentReference: req.DocumentReference,
	})
	if err != nil {
		h.fail(ctx, w, requestID, "failed to issue credential", err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, IssueResponse{CredentialID: id})
}

// HandleCount returns the total issued count.
func (h *Handler) HandleCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	count, err := h.service.GetCredentialCount(ctx)
	if err != nil {
		h.fail(ctx, w, requestcontext.RequestID(ctx), "failed to read credential count", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CountResponse{Count: count})
}

// HandleGetCredential returns a full credential record.
func (h *Handler) HandleGetCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := domain.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	credential, err := h.service.GetCredential(ctx, id)
	if err != nil {
		h.fail(ctx, w, requestID, "failed to get credential", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toCredentialResponse(credential))
}

// HandleVerify reports whether a credential is valid.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := domain.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	valid, err := h.service.Verify(ctx, id)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			httputil.WriteJSON(w, http.StatusNotFound, VerifyResponse{CredentialID: id, Reason: reasonNotFound})
			return
		}
		h.fail(ctx, w, requestID, "failed to verify credential", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, VerifyResponse{CredentialID: id, Valid: valid})
}

// HandleRevoke revokes a credential on behalf of the calling admin.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := domain.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Revoke(ctx, id, callerFrom(ctx)); err != nil {
		h.fail(ctx, w, requestID, "failed to revoke credential", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, RevokeResponse{CredentialID: id, Revoked: true})
}

// HandleRecipientCredentials lists a recipient's credential IDs.
func (h *Handler) HandleRecipientCredentials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	recipient, err := domain.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	ids, err := h.service.GetUserCredentials(ctx, recipient)
	if err != nil {
		h.fail(ctx, w, requestID, "failed to list recipient credentials", err)
		return
	}
	if ids == nil {
		ids = []domain.CredentialID{}
	}

	httputil.WriteJSON(w, http.StatusOK, RecipientCredentialsResponse{Recipient: recipient, CredentialIDs: ids})
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, requestID, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "error", err, "request_id", requestID)
	} else {
		h.logger.InfoContext(ctx, msg, "error", err, "request_id", requestID)
	}
	httputil.WriteError(w, err)
}

func callerFrom(ctx context.Context) models.Caller {
	identity, proof := requestcontext.Caller(ctx)
	return models.Caller{Identity: identity, Proof: proof}
}

func toCredentialResponse(c *models.Credential) CredentialResponse {
	return CredentialResponse{
		ID:                c.ID,
		Issuer:            c.Issuer,
		Recipient:         c.Recipient,
		Title:             c.Title,
		Description:       c.Description,
		CourseID:          c.CourseID,
		CompletionDate:    c.CompletionDate,
		DocumentReference: c.DocumentReference,
		IsRevoked:         c.IsRevoked,
		Digest:            c.Digest(),
	}
}
