package services

import (
	"github.com/geobarrowsa3/Clue-FHE/batch"
	"github.com/geobarrowsa3/Clue-FHE/disclosure"
	"github.com/geobarrowsa3/Clue-FHE/protocol"
)

// Request bodies arrive wrapped in protocol.Signed; the signer's public key
// is the acting identity for the operation.

// OpenBatchRequest opens the next batch. Owner-only.
type OpenBatchRequest struct{}

// CloseBatchRequest closes an open batch. Owner-only.
type CloseBatchRequest struct {
	BatchID uint64 `json:"batch_id"`
}

// SubmissionRequest contributes opaque values to an open batch.
type SubmissionRequest struct {
	BatchID      uint64                `json:"batch_id"`
	Contribution protocol.Contribution `json:"contribution"`
}

// AccusationRequest compares a guess against the batch aggregates under
// encryption.
type AccusationRequest struct {
	BatchID uint64                `json:"batch_id"`
	Guess   protocol.Contribution `json:"guess"`
}

// SolutionRequest asks for disclosure of the batch's raw aggregates.
type SolutionRequest struct {
	BatchID uint64 `json:"batch_id"`
}

// CallbackRequest delivers an oracle reply for settlement. Provider-only.
type CallbackRequest struct {
	Reply protocol.DisclosureReply `json:"reply"`
}

// ProviderRequest adds or removes a provider identity. Owner-only.
type ProviderRequest struct {
	Identity string `json:"identity"`
}

// PauseRequest toggles the global circuit breaker. Owner-only.
type PauseRequest struct{}

// CooldownRequest replaces the shared cooldown duration. Owner-only.
type CooldownRequest struct {
	CooldownSeconds int `json:"cooldown_seconds"`
}

// VersionBumpRequest increments the protocol epoch. Owner-only.
type VersionBumpRequest struct{}

// EncryptRequest mints opaque handles for a plaintext triple. Only served
// in local oracle mode, for demos; real deployments encrypt client-side.
type EncryptRequest struct {
	Weapon  uint64 `json:"weapon"`
	Room    uint64 `json:"room"`
	Suspect uint64 `json:"suspect"`
}

// EncryptResponse returns the minted contribution handles.
type EncryptResponse struct {
	Contribution protocol.Contribution `json:"contribution"`
}

// BatchResponse confirms a batch lifecycle operation.
type BatchResponse struct {
	BatchID uint64 `json:"batch_id"`
}

// RequestResponse confirms an issued disclosure request.
type RequestResponse struct {
	RequestID protocol.RequestID `json:"request_id"`
}

// VersionResponse reports the current protocol epoch.
type VersionResponse struct {
	Version uint64 `json:"version"`
}

// BatchStatusResponse is the public view of a batch.
type BatchStatusResponse struct {
	Batch batch.Info `json:"batch"`
}

// RequestStatusResponse is the public view of a disclosure request. Status
// is "pending", "stale" or "settled"; Result is set once settled.
type RequestStatusResponse struct {
	RequestID protocol.RequestID `json:"request_id"`
	BatchID   uint64             `json:"batch_id"`
	Kind      string             `json:"kind"`
	Status    string             `json:"status"`
	Result    *disclosure.Result `json:"result,omitempty"`
}

// SettleResponse reports the outcome of a callback delivery.
type SettleResponse struct {
	Result *disclosure.Result `json:"result"`
}

// ErrorResponse carries a failure back to the caller.
type ErrorResponse struct {
	Error string `json:"error"`
}
