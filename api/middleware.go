package api

import (
	"errors"
	"net/http"
	"strings"

	"streambet/models"
	"streambet/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const contextUserKey = "user"

// authenticate resolves the Bearer token to a user
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Expected: Bearer <token>"})
			return
		}

		user, err := s.userFromToken(c, parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(contextUserKey, user)
		c.Next()
	}
}

var (
	errInvalidToken = errors.New("invalid or expired token")
	errUnknownUser  = errors.New("user not found")
)

func (s *Server) userFromToken(c *gin.Context, token string) (*models.User, error) {
	userID, err := s.tokens.ValidateToken(token)
	if err != nil {
		log.WithError(err).Debug("Token validation failed")
		return nil, errInvalidToken
	}

	user, err := s.services.Users.GetUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return nil, errUnknownUser
		}
		return nil, err
	}
	return user, nil
}

// requireMember rejects banned and non-whitelisted users, auditing the attempt
func (s *Server) requireMember() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if err := s.services.Auth.EnforceWhitelisted(c.Request.Context(), user, requestMeta(c), c.FullPath()); err != nil {
			respondError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.services.Auth.RequireAdmin(currentUser(c)); err != nil {
			respondError(c, err)
			return
		}
		c.Next()
	}
}

// currentUser returns the user set by authenticate
func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

func requestMeta(c *gin.Context) models.RequestMeta {
	return models.RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// pathUUID parses a uuid path parameter, writing a 400 when it is malformed
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
