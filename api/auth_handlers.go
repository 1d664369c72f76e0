package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"streambet/models"
	"streambet/service"

	"github.com/gin-gonic/gin"
)

type authResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *models.User `json:"user"`
}

type meResponse struct {
	User    *models.User `json:"user"`
	Balance int64        `json:"balance"`
}

// telegramLogin accepts the login widget payload as sent by the browser.
// Numeric fields are kept verbatim so the signature can be recomputed.
func (s *Server) telegramLogin(c *gin.Context) {
	var raw map[string]interface{}
	decoder := json.NewDecoder(c.Request.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	data := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			data[k] = val
		case json.Number:
			data[k] = val.String()
		case bool:
			data[k] = strconv.FormatBool(val)
		case nil:
		default:
			badRequest(c, "invalid field "+k)
			return
		}
	}

	token, user, err := s.services.Auth.LoginWithTelegram(c.Request.Context(), data, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, authResponse{AccessToken: token, TokenType: "bearer", User: user})
}

func (s *Server) me(c *gin.Context) {
	user := currentUser(c)

	var balance int64
	wallet, err := s.services.Wallets.GetBalance(c.Request.Context(), user.ID)
	switch {
	case err == nil:
		balance = wallet.Balance
	case errors.Is(err, service.ErrWalletNotFound):
	default:
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, meResponse{User: user, Balance: balance})
}
