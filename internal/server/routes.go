package server

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func (s *FiberServer) RegisterFiberRoutes() {
	s.App.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Accept,Authorization,Content-Type",
		AllowCredentials: false, // credentials require explicit origins
		MaxAge:           300,
	}))

	s.App.Get("/health", s.healthHandler)

	api := s.App.Group("/api/v1")

	crash := api.Group("/crash")
	crash.Get("/state", s.getStateHandler)
	crash.Get("/history", s.historyHandler)
	crash.Post("/bet", s.placeBetHandler)
	crash.Post("/cashout", s.cashoutHandler)
	crash.Post("/verify", s.verifyHandler)

	api.Get("/user/:userId/balance", s.getUserBalanceHandler)
	api.Post("/user/:userId/balance", s.setUserBalanceHandler)
	api.Get("/user/:userId/bets", s.getUserBetsHandler)

	s.App.Get("/ws", websocket.New(s.gameWebSocketHandler))
}
