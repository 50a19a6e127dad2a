// Command clue-cli interacts with a running coordinator node.
//
// # Commands
//
// keygen: Generate an ed25519 keypair for signing requests.
//
//	clue-cli keygen
//
// open / close: Batch lifecycle (owner key required).
//
//	clue-cli open -c http://localhost:8080 -k <hex privkey>
//	clue-cli close -c http://localhost:8080 -k <hex privkey> -b 1
//
// submit / accuse / solution: Participant operations. Plaintext values are
// encrypted by the coordinator's demo encrypt endpoint (local mode only).
//
//	clue-cli submit -c http://localhost:8080 -k <key> -b 1 -weapon 3 -room 7 -suspect 2
//	clue-cli accuse -c http://localhost:8080 -k <key> -b 1 -weapon 3 -room 7 -suspect 2
//	clue-cli solution -c http://localhost:8080 -k <key> -b 1
//
// status / request / version: Read-only views.
//
//	clue-cli status -c http://localhost:8080 -b 1
//	clue-cli request -c http://localhost:8080 -r 4
//	clue-cli version -c http://localhost:8080
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/geobarrowsa3/Clue-FHE/crypto"
	"github.com/geobarrowsa3/Clue-FHE/protocol"
	"github.com/geobarrowsa3/Clue-FHE/services"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "keygen":
		err = runKeygen()
	case "open":
		err = runOpen(args)
	case "close":
		err = runClose(args)
	case "submit":
		err = runSubmit(args)
	case "accuse":
		err = runAccuse(args)
	case "solution":
		err = runSolution(args)
	case "status":
		err = runStatus(args)
	case "request":
		err = runRequest(args)
	case "version":
		err = runVersion(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: clue-cli <command> [flags]

Commands:
  keygen     Generate a signing keypair
  open       Open the next batch (owner)
  close      Close a batch (owner)
  submit     Submit a contribution to a batch
  accuse     Submit an encrypted guess against a batch
  solution   Request disclosure of a batch's aggregates
  status     Show a batch's public state
  request    Show a disclosure request's state
  version    Show the coordinator's protocol epoch`)
}

func runKeygen() error {
	pub, priv, err := crypto.GenerateKeyPair()
	if err != nil {
		return err
	}
	fmt.Printf("Public key:  %s\n", pub.String())
	fmt.Printf("Private key: %s\n", hex.EncodeToString(priv))
	return nil
}

// commonFlags registers the flags every signed command shares.
func commonFlags(fs *flag.FlagSet) (coordURL, keyHex *string) {
	coordURL = fs.String("c", "http://localhost:8080", "Coordinator base URL")
	keyHex = fs.String("k", "", "Hex-encoded ed25519 private key")
	return
}

func loadKey(keyHex string) (crypto.PrivateKey, error) {
	if keyHex == "" {
		return nil, fmt.Errorf("-k private key is required")
	}
	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("decoding private key: %w", err)
	}
	return crypto.PrivateKey(raw), nil
}

func runOpen(args []string) error {
	fs := flag.NewFlagSet("open", flag.ExitOnError)
	coordURL, keyHex := commonFlags(fs)
	fs.Parse(args)

	key, err := loadKey(*keyHex)
	if err != nil {
		return err
	}

	var resp services.BatchResponse
	if err := postSigned(*coordURL+"/api/batches/open", key, &services.OpenBatchRequest{}, &resp); err != nil {
		return err
	}
	fmt.Printf("Opened batch %d\n", resp.BatchID)
	return nil
}

func runClose(args []string) error {
	fs := flag.NewFlagSet("close", flag.ExitOnError)
	coordURL, keyHex := commonFlags(fs)
	batchID := fs.Uint64("b", 0, "Batch id")
	fs.Parse(args)

	key, err := loadKey(*keyHex)
	if err != nil {
		return err
	}

	var resp services.BatchResponse
	req := &services.CloseBatchRequest{BatchID: *batchID}
	if err := postSigned(*coordURL+"/api/batches/close", key, req, &resp); err != nil {
		return err
	}
	fmt.Printf("Closed batch %d\n", resp.BatchID)
	return nil
}

func runSubmit(args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	coordURL, keyHex := commonFlags(fs)
	batchID := fs.Uint64("b", 0, "Batch id")
	weapon := fs.Uint64("weapon", 0, "Weapon value")
	room := fs.Uint64("room", 0, "Room value")
	suspect := fs.Uint64("suspect", 0, "Suspect value")
	fs.Parse(args)

	key, err := loadKey(*keyHex)
	if err != nil {
		return err
	}

	contribution, err := encrypt(*coordURL, *weapon, *room, *suspect)
	if err != nil {
		return err
	}

	var resp services.BatchResponse
	req := &services.SubmissionRequest{BatchID: *batchID, Contribution: contribution}
	if err := postSigned(*coordURL+"/api/submissions", key, req, &resp); err != nil {
		return err
	}
	fmt.Printf("Submitted to batch %d\n", resp.BatchID)
	return nil
}

func runAccuse(args []string) error {
	fs := flag.NewFlagSet("accuse", flag.ExitOnError)
	coordURL, keyHex := commonFlags(fs)
	batchID := fs.Uint64("b", 0, "Batch id")
	weapon := fs.Uint64("weapon", 0, "Weapon guess")
	room := fs.Uint64("room", 0, "Room guess")
	suspect := fs.Uint64("suspect", 0, "Suspect guess")
	fs.Parse(args)

	key, err := loadKey(*keyHex)
	if err != nil {
		return err
	}

	guess, err := encrypt(*coordURL, *weapon, *room, *suspect)
	if err != nil {
		return err
	}

	var resp services.RequestResponse
	req := &services.AccusationRequest{BatchID: *batchID, Guess: guess}
	if err := postSigned(*coordURL+"/api/accusations", key, req, &resp); err != nil {
		return err
	}
	fmt.Printf("Accusation filed, request %d (poll with: clue-cli request -r %d)\n", resp.RequestID, resp.RequestID)
	return nil
}

func runSolution(args []string) error {
	fs := flag.NewFlagSet("solution", flag.ExitOnError)
	coordURL, keyHex := commonFlags(fs)
	batchID := fs.Uint64("b", 0, "Batch id")
	fs.Parse(args)

	key, err := loadKey(*keyHex)
	if err != nil {
		return err
	}

	var resp services.RequestResponse
	req := &services.SolutionRequest{BatchID: *batchID}
	if err := postSigned(*coordURL+"/api/solution-requests", key, req, &resp); err != nil {
		return err
	}
	fmt.Printf("Solution requested, request %d\n", resp.RequestID)
	return nil
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	coordURL := fs.String("c", "http://localhost:8080", "Coordinator base URL")
	batchID := fs.Uint64("b", 0, "Batch id")
	fs.Parse(args)

	var resp services.BatchStatusResponse
	if err := getJSON(fmt.Sprintf("%s/api/batches/%d", *coordURL, *batchID), &resp); err != nil {
		return err
	}
	state := "closed"
	if resp.Batch.Open {
		state = "open"
	}
	fmt.Printf("Batch %d: %s, %d submissions\n", resp.Batch.ID, state, resp.Batch.SubmissionCount)
	return nil
}

func runRequest(args []string) error {
	fs := flag.NewFlagSet("request", flag.ExitOnError)
	coordURL := fs.String("c", "http://localhost:8080", "Coordinator base URL")
	requestID := fs.Uint64("r", 0, "Request id")
	fs.Parse(args)

	var resp services.RequestStatusResponse
	if err := getJSON(fmt.Sprintf("%s/api/requests/%d", *coordURL, *requestID), &resp); err != nil {
		return err
	}
	fmt.Printf("Request %d (%s, batch %d): %s\n", resp.RequestID, resp.Kind, resp.BatchID, resp.Status)
	if resp.Result != nil {
		if resp.Kind == "accusation" {
			fmt.Printf("Verdict: correct=%v\n", resp.Result.Correct)
		} else {
			fmt.Printf("Solution: weapon=%d room=%d suspect=%d\n",
				resp.Result.Weapon, resp.Result.Room, resp.Result.Suspect)
		}
	}
	return nil
}

func runVersion(args []string) error {
	fs := flag.NewFlagSet("version", flag.ExitOnError)
	coordURL := fs.String("c", "http://localhost:8080", "Coordinator base URL")
	fs.Parse(args)

	var resp services.VersionResponse
	if err := getJSON(*coordURL+"/api/version", &resp); err != nil {
		return err
	}
	fmt.Printf("Protocol epoch: %d\n", resp.Version)
	return nil
}

// encrypt asks the coordinator's demo endpoint to mint contribution handles.
func encrypt(coordURL string, weapon, room, suspect uint64) (protocol.Contribution, error) {
	req := &services.EncryptRequest{Weapon: weapon, Room: room, Suspect: suspect}
	var resp services.EncryptResponse
	if err := postJSON(coordURL+"/api/encrypt", req, &resp); err != nil {
		return protocol.Contribution{}, fmt.Errorf("encrypting values: %w", err)
	}
	return resp.Contribution, nil
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

func postSigned[T any](url string, key crypto.PrivateKey, req *T, out any) error {
	signed, err := protocol.NewSigned(key, req)
	if err != nil {
		return err
	}
	return postJSON(url, signed, out)
}

func postJSON(url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := httpClient.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func getJSON(url string, out any) error {
	resp, err := httpClient.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var errResp services.ErrorResponse
		if json.Unmarshal(raw, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("coordinator: %s (HTTP %d)", errResp.Error, resp.StatusCode)
		}
		return fmt.Errorf("coordinator returned HTTP %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}
