package api

import (
	"net/http"

	"streambet/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (s *Server) listMarkets(c *gin.Context) {
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	markets, err := s.services.Markets.ListMarkets(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, markets)
}

func (s *Server) getMarket(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	market, err := s.services.Markets.GetMarket(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, market)
}

type placeBetRequest struct {
	MarketID  uuid.UUID `json:"market_id" binding:"required"`
	OutcomeID uuid.UUID `json:"outcome_id" binding:"required"`
	Amount    int64     `json:"amount"`
}

func (s *Server) placeBet(c *gin.Context) {
	var req placeBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	user := currentUser(c)
	wager, err := s.services.Betting.PlaceBet(c.Request.Context(), user.ID, req.MarketID, req.OutcomeID, req.Amount)
	if err != nil {
		s.observeRateLimited(err, "bet")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wager)
}

func (s *Server) myBets(c *gin.Context) {
	marketID, ok := queryUUID(c, "market_id")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	user := currentUser(c)
	wagers, err := s.services.Markets.ListWagers(c.Request.Context(), service.WagerFilter{
		UserID:   &user.ID,
		MarketID: marketID,
		Limit:    limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wagers)
}

func (s *Server) myTransactions(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	txs, err := s.services.Wallets.GetTransactions(c.Request.Context(), currentUser(c).ID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}
