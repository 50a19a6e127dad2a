package services

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/geobarrowsa3/Clue-FHE/disclosure"
	"github.com/geobarrowsa3/Clue-FHE/game"
	"github.com/geobarrowsa3/Clue-FHE/metrics"
	"github.com/geobarrowsa3/Clue-FHE/protocol"
)

// Encryptor mints opaque handles for plaintext values. Satisfied by the
// local scheme; nil in remote deployments where clients encrypt themselves.
type Encryptor interface {
	Encrypt(value uint64) (protocol.Handle, error)
}

// Handler exposes the batch protocol over HTTP. Every state-mutating route
// takes a Signed request body; the recovered signer is the acting identity.
type Handler struct {
	coord *game.Coordinator
	audit AuditStore
	enc   Encryptor
	log   *slog.Logger
}

// NewHandler creates the gateway handler. enc may be nil, which disables
// the demo encrypt route.
func NewHandler(coord *game.Coordinator, audit AuditStore, enc Encryptor, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{coord: coord, audit: audit, enc: enc, log: log.With("component", "gateway")}
}

// RegisterRoutes mounts the gateway routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/batches/open", h.handleOpenBatch)
	r.Post("/api/batches/close", h.handleCloseBatch)
	r.Post("/api/submissions", h.handleSubmission)
	r.Post("/api/accusations", h.handleAccusation)
	r.Post("/api/solution-requests", h.handleSolutionRequest)
	r.Post("/api/callbacks/disclosure", h.handleDisclosureCallback)
	if h.enc != nil {
		r.Post("/api/encrypt", h.handleEncrypt)
	}

	r.Get("/api/batches/{id}", h.handleBatchStatus)
	r.Get("/api/requests/{id}", h.handleRequestStatus)
	r.Get("/api/version", h.handleVersion)

	r.Post("/admin/providers/add", h.handleAddProvider)
	r.Post("/admin/providers/remove", h.handleRemoveProvider)
	r.Post("/admin/pause", h.handlePause)
	r.Post("/admin/unpause", h.handleUnpause)
	r.Post("/admin/cooldown", h.handleSetCooldown)
	r.Post("/admin/version-bump", h.handleVersionBump)
}

// recoverSigned decodes a signed request body and returns the wrapped object
// plus the signer's identity.
func recoverSigned[T any](w http.ResponseWriter, r *http.Request) (*T, string, bool) {
	defer r.Body.Close()

	signed, err := protocol.DecodeMessage[protocol.Signed[T]](r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, "", false
	}
	obj, signer, err := signed.Recover()
	if err != nil {
		writeError(w, http.StatusForbidden, err)
		return nil, "", false
	}
	return obj, signer.String(), true
}

func writeError(w http.ResponseWriter, fallback int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(err, fallback))
	json.NewEncoder(w).Encode(&ErrorResponse{Error: err.Error()})
}

// statusFor maps the protocol error taxonomy onto HTTP status codes.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, protocol.ErrNotOwner), errors.Is(err, protocol.ErrNotProvider):
		return http.StatusForbidden
	case errors.Is(err, protocol.ErrPaused):
		return http.StatusServiceUnavailable
	case errors.Is(err, protocol.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, protocol.ErrBatchClosed),
		errors.Is(err, protocol.ErrBatchFull),
		errors.Is(err, protocol.ErrInvalidState),
		errors.Is(err, protocol.ErrStaleVersion),
		errors.Is(err, protocol.ErrAlreadyProcessed):
		return http.StatusConflict
	case errors.Is(err, protocol.ErrInvalidBatch), errors.Is(err, protocol.ErrUnknownRequest):
		return http.StatusNotFound
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) handleOpenBatch(w http.ResponseWriter, r *http.Request) {
	_, signer, ok := recoverSigned[OpenBatchRequest](w, r)
	if !ok {
		return
	}

	batchID, err := h.coord.OpenBatch(signer)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.recordBatchEvent(batchID, "opened", signer)
	writeJSON(w, &BatchResponse{BatchID: batchID})
}

func (h *Handler) handleCloseBatch(w http.ResponseWriter, r *http.Request) {
	req, signer, ok := recoverSigned[CloseBatchRequest](w, r)
	if !ok {
		return
	}

	if err := h.coord.CloseBatch(signer, req.BatchID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.recordBatchEvent(req.BatchID, "closed", signer)
	writeJSON(w, &BatchResponse{BatchID: req.BatchID})
}

func (h *Handler) handleSubmission(w http.ResponseWriter, r *http.Request) {
	req, signer, ok := recoverSigned[SubmissionRequest](w, r)
	if !ok {
		return
	}

	if err := h.coord.SubmitContribution(r.Context(), signer, req.BatchID, req.Contribution); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	metrics.IncSubmission()
	h.recordBatchEvent(req.BatchID, "submission", signer)
	writeJSON(w, &BatchResponse{BatchID: req.BatchID})
}

func (h *Handler) handleAccusation(w http.ResponseWriter, r *http.Request) {
	req, signer, ok := recoverSigned[AccusationRequest](w, r)
	if !ok {
		return
	}

	requestID, err := h.coord.SubmitAccusation(r.Context(), signer, req.BatchID, req.Guess)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	metrics.IncAccusation()
	h.recordBatchEvent(req.BatchID, "accusation", signer)
	writeJSON(w, &RequestResponse{RequestID: requestID})
}

func (h *Handler) handleSolutionRequest(w http.ResponseWriter, r *http.Request) {
	req, signer, ok := recoverSigned[SolutionRequest](w, r)
	if !ok {
		return
	}

	requestID, err := h.coord.RequestSolution(r.Context(), signer, req.BatchID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	metrics.IncSolutionRequest()
	h.recordBatchEvent(req.BatchID, "solution_request", signer)
	writeJSON(w, &RequestResponse{RequestID: requestID})
}

// handleDisclosureCallback settles an oracle reply delivered by a registered
// provider. Replies arriving on the in-process oracle channel bypass this
// route; the endpoint exists for gateway deployments where providers relay
// replies over HTTP.
func (h *Handler) handleDisclosureCallback(w http.ResponseWriter, r *http.Request) {
	req, signer, ok := recoverSigned[CallbackRequest](w, r)
	if !ok {
		return
	}

	if err := h.coord.RequireProvider(signer); err != nil {
		writeError(w, http.StatusForbidden, err)
		return
	}

	result, err := h.coord.Settle(req.Reply)
	if err != nil {
		metrics.IncSettlementFailure(failureReason(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	metrics.IncSettlement(result.Kind.String())
	h.recordSettlement(result)
	writeJSON(w, &SettleResponse{Result: result})
}

func (h *Handler) handleEncrypt(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	req, err := protocol.DecodeMessage[EncryptRequest](r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var resp EncryptResponse
	for f, v := range map[protocol.Field]uint64{
		protocol.FieldWeapon:  req.Weapon,
		protocol.FieldRoom:    req.Room,
		protocol.FieldSuspect: req.Suspect,
	} {
		handle, err := h.enc.Encrypt(v)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		resp.Contribution.Set(f, handle)
	}
	writeJSON(w, &resp)
}

func (h *Handler) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	batchID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	info, err := h.coord.BatchInfo(batchID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, &BatchStatusResponse{Batch: info})
}

func (h *Handler) handleRequestStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	requestID := protocol.RequestID(id)

	ctxt, ok := h.coord.RequestContext(requestID)
	if !ok {
		writeError(w, http.StatusNotFound, protocol.ErrUnknownRequest)
		return
	}

	resp := &RequestStatusResponse{
		RequestID: requestID,
		BatchID:   ctxt.BatchID,
		Kind:      ctxt.Kind.String(),
		Status:    "pending",
	}
	if ctxt.Processed {
		resp.Status = "settled"
		if result, ok := h.coord.RequestResult(requestID); ok {
			resp.Result = result
		}
	} else if ctxt.BindingVersion != h.coord.Version() {
		resp.Status = "stale"
	}
	writeJSON(w, resp)
}

func (h *Handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, &VersionResponse{Version: h.coord.Version()})
}

func (h *Handler) handleAddProvider(w http.ResponseWriter, r *http.Request) {
	req, signer, ok := recoverSigned[ProviderRequest](w, r)
	if !ok {
		return
	}
	if err := h.coord.AddProvider(signer, req.Identity); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *Handler) handleRemoveProvider(w http.ResponseWriter, r *http.Request) {
	req, signer, ok := recoverSigned[ProviderRequest](w, r)
	if !ok {
		return
	}
	if err := h.coord.RemoveProvider(signer, req.Identity); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request) {
	_, signer, ok := recoverSigned[PauseRequest](w, r)
	if !ok {
		return
	}
	if err := h.coord.Pause(signer); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *Handler) handleUnpause(w http.ResponseWriter, r *http.Request) {
	_, signer, ok := recoverSigned[PauseRequest](w, r)
	if !ok {
		return
	}
	if err := h.coord.Unpause(signer); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *Handler) handleSetCooldown(w http.ResponseWriter, r *http.Request) {
	req, signer, ok := recoverSigned[CooldownRequest](w, r)
	if !ok {
		return
	}
	if err := h.coord.SetCooldown(signer, time.Duration(req.CooldownSeconds)*time.Second); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *Handler) handleVersionBump(w http.ResponseWriter, r *http.Request) {
	_, signer, ok := recoverSigned[VersionBumpRequest](w, r)
	if !ok {
		return
	}
	version, err := h.coord.BumpVersion(signer)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, &VersionResponse{Version: version})
}

func (h *Handler) recordBatchEvent(batchID uint64, event, identity string) {
	if h.audit == nil {
		return
	}
	if err := h.audit.RecordBatchEvent(batchID, event, identity); err != nil {
		h.log.Warn("audit write failed", "event", event, "err", err)
	}
}

func (h *Handler) recordSettlement(result *disclosure.Result) {
	if h.audit == nil {
		return
	}
	if err := h.audit.RecordSettlement(result); err != nil {
		h.log.Warn("audit write failed", "event", "settlement", "err", err)
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, protocol.ErrAlreadyProcessed):
		return "already_processed"
	case errors.Is(err, protocol.ErrStaleVersion):
		return "stale_version"
	case errors.Is(err, protocol.ErrInvalidState):
		return "commitment_mismatch"
	case errors.Is(err, protocol.ErrUnknownRequest):
		return "unknown_request"
	}
	return "other"
}
