package api

import (
	"context"
	"net/http"
	"time"

	"streambet/models"
	"streambet/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const pendingFirstName = "Pending"

type createUserRequest struct {
	TelegramID int64   `json:"telegram_id" binding:"required"`
	Username   *string `json:"username"`
	FirstName  string  `json:"first_name"`
	LastName   *string `json:"last_name"`
}

type muteRequest struct {
	Until *time.Time `json:"until"`
}

type balanceAdjustRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

type setStatusRequest struct {
	Status models.MarketStatus `json:"status" binding:"required"`
}

type setWinnerRequest struct {
	OutcomeID uuid.UUID `json:"outcome_id" binding:"required"`
}

type settlementResponse struct {
	MarketID         uuid.UUID `json:"market_id"`
	WinningOutcomeID uuid.UUID `json:"winning_outcome_id"`
	TotalPool        int64     `json:"total_pool"`
	WinningPool      int64     `json:"winning_pool"`
	LosingPool       int64     `json:"losing_pool"`
	TotalPaid        int64     `json:"total_paid"`
	Remainder        int64     `json:"remainder"`
	Refunded         bool      `json:"refunded"`
	AlreadyFinished  bool      `json:"already_finished"`
	Won              int       `json:"won"`
	Lost             int       `json:"lost"`
	RefundedWagers   int       `json:"refunded_wagers"`
}

func newSettlementResponse(r *models.SettlementResult) settlementResponse {
	return settlementResponse{
		MarketID:         r.MarketID,
		WinningOutcomeID: r.WinningOutcomeID,
		TotalPool:        r.TotalPool,
		WinningPool:      r.WinningPool,
		LosingPool:       r.LosingPool,
		TotalPaid:        r.TotalPaid,
		Remainder:        r.Remainder,
		Refunded:         r.Refunded,
		AlreadyFinished:  r.AlreadyFinished,
		Won:              r.CountByStatus(models.WagerStatusWon),
		Lost:             r.CountByStatus(models.WagerStatusLost),
		RefundedWagers:   r.CountByStatus(models.WagerStatusRefunded),
	}
}

func (s *Server) adminListUsers(c *gin.Context) {
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	users, err := s.services.Users.ListUsers(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *Server) adminCreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.FirstName == "" {
		req.FirstName = pendingFirstName
	}

	user, err := s.services.Users.WhitelistUser(c.Request.Context(), models.TelegramProfile{
		TelegramID: req.TelegramID,
		Username:   req.Username,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) adminPatchUser(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var patch models.UserPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if patch.Role != nil && *patch.Role != models.UserRoleAdmin && *patch.Role != models.UserRoleUser {
		badRequest(c, "invalid role")
		return
	}

	user, err := s.services.Users.UpdateUser(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) adminBanUser(c *gin.Context) {
	s.userAction(c, s.services.Users.BanUser)
}

func (s *Server) adminUnbanUser(c *gin.Context) {
	s.userAction(c, s.services.Users.UnbanUser)
}

func (s *Server) userAction(c *gin.Context, action func(ctx context.Context, id uuid.UUID) (*models.User, error)) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	user, err := action(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) adminMuteUser(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req muteRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}

	if err := s.services.Users.MuteUser(c.Request.Context(), id, req.Until); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "muted_until": req.Until})
}

func (s *Server) adminAdjustBalance(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req balanceAdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	wallet, err := s.services.Wallets.AdjustBalance(c.Request.Context(), id, req.Amount, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallet)
}

func (s *Server) adminCreateMarket(c *gin.Context) {
	var input models.NewMarket
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	createdBy := currentUser(c).ID
	market, err := s.services.Markets.CreateMarket(c.Request.Context(), &input, &createdBy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, market)
}

func (s *Server) adminPatchMarket(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var patch models.MarketPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	market, err := s.services.Markets.UpdateMarket(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, market)
}

func (s *Server) adminSetStatus(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	market, err := s.services.Markets.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, market)
}

func (s *Server) adminLockBetting(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	market, err := s.services.Markets.LockBetting(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, market)
}

func (s *Server) adminSetWinner(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req setWinnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	result, err := s.services.Betting.Settle(c.Request.Context(), id, req.OutcomeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSettlementResponse(result))
}

func (s *Server) adminMarketStats(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	stats, err := s.services.Markets.GetStats(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) adminListBets(c *gin.Context) {
	marketID, ok := queryUUID(c, "market_id")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	wagers, err := s.services.Markets.ListWagers(c.Request.Context(), service.WagerFilter{
		MarketID: marketID,
		Limit:    limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wagers)
}

func (s *Server) adminUnauthorizedAttempts(c *gin.Context) {
	telegramID, ok := queryInt64(c, "telegram_id")
	if !ok {
		return
	}
	since, ok := queryTime(c, "since")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	attempts, err := s.services.Auth.ListUnauthorizedAttempts(c.Request.Context(), models.AttemptFilter{
		TelegramID: telegramID,
		Since:      since,
	}, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempts)
}

func (s *Server) adminLogins(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	logins, err := s.services.Auth.ListLogins(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logins)
}
