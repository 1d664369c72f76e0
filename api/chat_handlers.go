package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"streambet/fanout"
	"streambet/models"
	"streambet/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const messageTypeError = "error"

type inboundChatMessage struct {
	Message string `json:"message"`
}

func (s *Server) listChat(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	if _, err := s.services.Markets.GetMarket(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	messages, err := s.services.Chat.ListMessages(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// chatSocket upgrades to a websocket subscribed to one market. Text frames
// of the form {"message": "..."} are posted to the market's chat.
func (s *Server) chatSocket(c *gin.Context) {
	marketID, ok := pathUUID(c, "marketId")
	if !ok {
		return
	}

	token := c.Query("token")
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token required"})
		return
	}
	user, err := s.userFromToken(c, token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err := s.services.Auth.EnforceWhitelisted(c.Request.Context(), user, requestMeta(c), c.FullPath()); err != nil {
		respondError(c, err)
		return
	}
	if _, err := s.services.Markets.GetMarket(c.Request.Context(), marketID); err != nil {
		respondError(c, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Debug("Websocket upgrade failed")
		return
	}

	log.WithFields(log.Fields{
		"userId":   user.ID,
		"marketId": marketID,
	}).Debug("Chat websocket connected")

	s.registry.Serve(marketID, conn, s.chatInbound(user, marketID))
}

func (s *Server) chatInbound(user *models.User, marketID uuid.UUID) fanout.InboundHandler {
	return func(client *fanout.Client, data []byte) {
		var in inboundChatMessage
		if err := json.Unmarshal(data, &in); err != nil {
			client.Send(fanout.Message{Type: messageTypeError, Data: gin.H{"error": "invalid message"}})
			return
		}

		// the socket outlives any request context
		_, err := s.services.Chat.PostMessage(context.Background(), user, marketID, in.Message)
		if err == nil {
			return
		}

		s.observeRateLimited(err, "chat")
		msg := err.Error()
		if statusFor(err) == http.StatusInternalServerError {
			log.WithFields(log.Fields{
				"userId":   user.ID,
				"marketId": marketID,
				"error":    err,
			}).Error("Failed to post chat message")
			msg = "internal server error"
		}
		client.Send(fanout.Message{Type: messageTypeError, Data: gin.H{"error": msg}})
	}
}

func (s *Server) adminDeleteMessage(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := s.services.Chat.DeleteMessage(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) observeRateLimited(err error, bucket string) {
	if s.metrics != nil && errors.Is(err, service.ErrRateLimited) {
		s.metrics.ObserveRateLimited(bucket)
	}
}
