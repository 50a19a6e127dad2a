package fhe

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/geobarrowsa3/Clue-FHE/protocol"
)

// RemoteOracle implements protocol.Oracle against an external decryption
// gateway over HTTP. Requests POST the handle set to /disclose; replies are
// long-polled from /replies and pushed onto the local channel. Proofs are
// HMAC-SHA256 under a verification key shared with the gateway out-of-band.
type RemoteOracle struct {
	baseURL   string
	verifyKey []byte
	client    *http.Client
	replies   chan protocol.DisclosureReply
}

// NewRemoteOracle creates a client for the gateway at baseURL.
func NewRemoteOracle(baseURL string, verifyKey []byte) *RemoteOracle {
	return &RemoteOracle{
		baseURL:   baseURL,
		verifyKey: verifyKey,
		client:    &http.Client{Timeout: 30 * time.Second},
		replies:   make(chan protocol.DisclosureReply, 64),
	}
}

type discloseRequest struct {
	Values []protocol.Handle `json:"values"`
}

type discloseResponse struct {
	RequestID protocol.RequestID `json:"request_id"`
}

type repliesResponse struct {
	Replies []protocol.DisclosureReply `json:"replies"`
}

// RequestDisclosure forwards the handle set to the gateway and returns the
// gateway-assigned request id.
func (o *RemoteOracle) RequestDisclosure(ctx context.Context, values []protocol.Handle) (protocol.RequestID, error) {
	body, err := json.Marshal(&discloseRequest{Values: values})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/disclose", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(respBody))
	}

	parsed, err := protocol.DecodeMessage[discloseResponse](resp.Body)
	if err != nil {
		return 0, fmt.Errorf("decoding gateway response: %w", err)
	}
	return parsed.RequestID, nil
}

// Start polls the gateway for replies until ctx is done.
func (o *RemoteOracle) Start(ctx context.Context, pollInterval time.Duration) {
	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				o.poll(ctx)
			}
		}
	}()
}

func (o *RemoteOracle) poll(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/replies", nil)
	if err != nil {
		return
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return
	}

	parsed, err := protocol.DecodeMessage[repliesResponse](resp.Body)
	if err != nil {
		return
	}
	for _, reply := range parsed.Replies {
		select {
		case o.replies <- reply:
		case <-ctx.Done():
			return
		}
	}
}

// Replies is the stream of polled disclosure replies.
func (o *RemoteOracle) Replies() <-chan protocol.DisclosureReply {
	return o.replies
}

// Verify checks a reply's proof under the shared verification key.
func (o *RemoteOracle) Verify(requestID protocol.RequestID, cleartext, proof []byte) error {
	mac := hmac.New(sha256.New, o.verifyKey)
	var idBytes [8]byte
	binary.BigEndian.PutUint64(idBytes[:], uint64(requestID))
	mac.Write(idBytes[:])
	mac.Write(cleartext)
	if !hmac.Equal(proof, mac.Sum(nil)) {
		return ErrInvalidProof
	}
	return nil
}
