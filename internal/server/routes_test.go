package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"

	"crashcore/internal/game"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"insufficient funds", game.ErrInsufficientFunds, http.StatusPaymentRequired, "insufficient_funds"},
		{"bet limits", game.ErrBetLimits, http.StatusBadRequest, "bet_limits"},
		{"invalid round state", game.ErrInvalidRoundState, http.StatusConflict, "invalid_round_state"},
		{"already crashed", game.ErrGameAlreadyCrashed, http.StatusConflict, "game_already_crashed"},
		{"already settled", game.ErrAlreadySettled, http.StatusConflict, "already_settled"},
		{"bet not found", game.ErrBetNotFound, http.StatusNotFound, "bet_not_found"},
		{"engine busy", game.ErrEngineBusy, http.StatusServiceUnavailable, "engine_busy"},
		{"wrapped sentinel", errors.Join(errors.New("ctx"), game.ErrAlreadySettled), http.StatusConflict, "already_settled"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, kind := errorKind(tt.err)
			if status != tt.wantStatus {
				t.Errorf("status = %v, want %v", status, tt.wantStatus)
			}
			if kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", kind, tt.wantKind)
			}
		})
	}
}

func TestVerifyHandler(t *testing.T) {
	s := &FiberServer{App: fiber.New()}
	s.App.Post("/verify", s.verifyHandler)

	roundSeed := "audit_round_seed"
	clientSeed := "audit_client_seed"
	var seq int64 = 42
	edge := 0.04

	valid := verifyRequest{
		RevealedSeed: roundSeed,
		Commitment:   game.Commitment(roundSeed),
		ClientSeed:   clientSeed,
		Sequence:     seq,
		CrashPoint:   game.CrashPoint(roundSeed, clientSeed, seq, edge),
		HouseEdge:    edge,
	}

	tests := []struct {
		name         string
		mutate       func(*verifyRequest)
		wantVerified bool
		wantCommitOK bool
	}{
		{
			name:         "valid round verifies",
			mutate:       func(*verifyRequest) {},
			wantVerified: true,
			wantCommitOK: true,
		},
		{
			name:         "wrong multiplier fails",
			mutate:       func(r *verifyRequest) { r.CrashPoint += 1 },
			wantVerified: false,
			wantCommitOK: true,
		},
		{
			name:         "wrong seed is an integrity failure",
			mutate:       func(r *verifyRequest) { r.RevealedSeed = "forged_seed" },
			wantVerified: false,
			wantCommitOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqBody := valid
			tt.mutate(&reqBody)
			payload, _ := json.Marshal(reqBody)

			req, _ := http.NewRequest("POST", "/verify", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")

			resp, err := s.App.Test(req)
			if err != nil {
				t.Fatalf("could not perform request: %v", err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %v, want 200", resp.StatusCode)
			}

			body, _ := io.ReadAll(resp.Body)
			var result game.VerifyResult
			if err := json.Unmarshal(body, &result); err != nil {
				t.Fatalf("could not unmarshal response: %v", err)
			}

			if result.Verified != tt.wantVerified {
				t.Errorf("verified = %v, want %v", result.Verified, tt.wantVerified)
			}
			if result.CommitmentOK != tt.wantCommitOK {
				t.Errorf("commitment_ok = %v, want %v", result.CommitmentOK, tt.wantCommitOK)
			}
		})
	}
}

func TestVerifyHandler_MissingFields(t *testing.T) {
	s := &FiberServer{App: fiber.New()}
	s.App.Post("/verify", s.verifyHandler)

	payload, _ := json.Marshal(verifyRequest{})
	req, _ := http.NewRequest("POST", "/verify", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("could not perform request: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %v, want 400", resp.StatusCode)
	}
}
