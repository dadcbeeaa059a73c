package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"crashcore/internal/game"
)

func (s *FiberServer) healthHandler(c *fiber.Ctx) error {
	health := fiber.Map{
		"cache": s.cache.Health(),
		"game": fiber.Map{
			"status":            "running",
			"connected_clients": s.hub.ClientCount(),
		},
	}
	if s.db != nil {
		health["database"] = s.db.Health()
	}
	return c.JSON(health)
}

// errorKind maps the engine's sentinel errors to stable error kinds, so a
// client can tell "try again" apart from "this bet is over".
func errorKind(err error) (int, string) {
	switch {
	case errors.Is(err, game.ErrInsufficientFunds):
		return fiber.StatusPaymentRequired, "insufficient_funds"
	case errors.Is(err, game.ErrBetLimits):
		return fiber.StatusBadRequest, "bet_limits"
	case errors.Is(err, game.ErrInvalidRoundState):
		return fiber.StatusConflict, "invalid_round_state"
	case errors.Is(err, game.ErrGameAlreadyCrashed):
		return fiber.StatusConflict, "game_already_crashed"
	case errors.Is(err, game.ErrAlreadySettled):
		return fiber.StatusConflict, "already_settled"
	case errors.Is(err, game.ErrBetNotFound):
		return fiber.StatusNotFound, "bet_not_found"
	case errors.Is(err, game.ErrEngineBusy):
		return fiber.StatusServiceUnavailable, "engine_busy"
	default:
		return fiber.StatusInternalServerError, "internal_error"
	}
}

func rejected(c *fiber.Ctx, err error) error {
	status, kind := errorKind(err)
	return c.Status(status).JSON(fiber.Map{
		"error":   kind,
		"message": err.Error(),
	})
}

func (s *FiberServer) getStateHandler(c *fiber.Ctx) error {
	snap, ok := s.engine.CurrentState()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no_active_round",
		})
	}
	return c.JSON(snap)
}

func (s *FiberServer) historyHandler(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	// The Redis mirror covers the recent window; anything older, or a cold
	// mirror, falls through to the durable archive.
	if s.history != nil {
		rounds, err := s.history.Recent(c.Context(), limit)
		if err == nil && len(rounds) > 0 {
			return c.JSON(fiber.Map{"rounds": rounds})
		}
		if err != nil {
			log.Printf("[API] History mirror read failed: %v", err)
		}
	}

	if s.store == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "history_unavailable",
		})
	}
	rounds, err := s.store.RecentRounds(c.Context(), limit)
	if err != nil {
		log.Printf("[API] History query failed: %v", err)
		return rejected(c, err)
	}
	return c.JSON(fiber.Map{"rounds": rounds})
}

func (s *FiberServer) placeBetHandler(c *fiber.Ctx) error {
	var req game.BetRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid_body",
		})
	}
	if req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id_required",
		})
	}

	receipt, err := s.engine.PlaceBet(c.Context(), req)
	if err != nil {
		return rejected(c, err)
	}
	return c.JSON(receipt)
}

func (s *FiberServer) cashoutHandler(c *fiber.Ctx) error {
	var req game.CashoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid_body",
		})
	}
	if req.UserID == "" || req.BetID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id_and_bet_id_required",
		})
	}

	settlement, err := s.engine.Cashout(c.Context(), req)
	if err != nil {
		return rejected(c, err)
	}
	return c.JSON(settlement)
}

type verifyRequest struct {
	RevealedSeed string  `json:"revealed_seed"`
	Commitment   string  `json:"commitment"`
	ClientSeed   string  `json:"client_seed"`
	Sequence     int64   `json:"sequence"`
	CrashPoint   float64 `json:"crash_point"`
	HouseEdge    float64 `json:"house_edge"`
}

// verifyHandler is the public fairness audit: anyone can recompute a
// revealed round and check it against the published commitment.
func (s *FiberServer) verifyHandler(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid_body",
		})
	}
	if req.RevealedSeed == "" || req.Commitment == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "seed_and_commitment_required",
		})
	}

	res := game.VerifyRound(req.RevealedSeed, req.Commitment, req.ClientSeed,
		req.Sequence, req.CrashPoint, req.HouseEdge)
	return c.JSON(res)
}

func (s *FiberServer) getUserBalanceHandler(c *fiber.Ctx) error {
	userID := c.Params("userId")
	currency := c.Query("currency", "USD")

	balance, err := s.ledger.Balance(c.Context(), userID+":"+currency)
	if err != nil {
		return rejected(c, err)
	}
	return c.JSON(fiber.Map{
		"user_id":  userID,
		"currency": currency,
		"balance":  balance,
	})
}

// setUserBalanceHandler is the admin/testing surface for funding wallets.
func (s *FiberServer) setUserBalanceHandler(c *fiber.Ctx) error {
	userID := c.Params("userId")

	var body struct {
		Balance  float64 `json:"balance"`
		Currency string  `json:"currency"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid_body",
		})
	}
	if body.Currency == "" {
		body.Currency = "USD"
	}

	if err := s.ledger.SetBalance(c.Context(), userID+":"+body.Currency, body.Balance); err != nil {
		return rejected(c, err)
	}
	return c.JSON(fiber.Map{
		"user_id":  userID,
		"currency": body.Currency,
		"balance":  body.Balance,
	})
}

func (s *FiberServer) getUserBetsHandler(c *fiber.Ctx) error {
	if s.store == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "history_unavailable",
		})
	}
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	bets, err := s.store.UserBets(c.Context(), c.Params("userId"), limit)
	if err != nil {
		return rejected(c, err)
	}
	return c.JSON(fiber.Map{"bets": bets})
}

// gameWebSocketHandler serves the live feed and accepts bet/cashout
// messages over the socket.
func (s *FiberServer) gameWebSocketHandler(conn *websocket.Conn) {
	userID := conn.Query("user_id", "anonymous")

	log.Printf("[WS] New connection from user: %s", userID)

	client := s.hub.RegisterClient(conn, userID)
	defer s.hub.UnregisterClient(client)

	if snap, ok := s.engine.CurrentState(); ok {
		client.Send(game.Event{Type: "initial_state", Data: snap})
	}

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			log.Printf("[WS] Read error for user %s: %v", userID, err)
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "place_bet":
			var req game.BetRequest
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				continue
			}
			req.UserID = userID

			receipt, err := s.engine.PlaceBet(context.Background(), req)
			if err != nil {
				_, kind := errorKind(err)
				client.Send(game.Event{Type: "bet_rejected", Data: fiber.Map{"error": kind}})
				continue
			}
			client.Send(game.Event{Type: "bet_accepted", Data: receipt})

		case "cashout":
			var req game.CashoutRequest
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				continue
			}
			req.UserID = userID

			settlement, err := s.engine.Cashout(context.Background(), req)
			if err != nil {
				_, kind := errorKind(err)
				client.Send(game.Event{Type: "cashout_rejected", Data: fiber.Map{"error": kind}})
				continue
			}
			client.Send(game.Event{Type: "cashout_settled", Data: settlement})

		case "ping":
			client.Send(game.Event{Type: "pong"})
		}
	}
}
