package api

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const linkCodeLifetime = 10 * time.Minute

// telegramLinkCode generates a short-lived code the user sends to the bot to
// bind their chat. Requesting a new code invalidates the previous one.
func (s *Server) telegramLinkCode(c *gin.Context) {
	code, err := generateLinkCode()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro interno"})
		return
	}

	until := time.Now().Add(linkCodeLifetime)
	if err := s.store.SetTelegramLinkCode(c.Request.Context(), currentUserID(c), code, until); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro interno"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":      code,
		"expiresAt": until,
		"command":   fmt.Sprintf("/vincular %s", code),
	})
}

func (s *Server) telegramStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"linked": currentUser(c).TelegramLinked()})
}

func (s *Server) telegramUnlink(c *gin.Context) {
	if err := s.store.UnlinkTelegram(c.Request.Context(), currentUserID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro interno"})
		return
	}
	c.Status(http.StatusNoContent)
}

// generateLinkCode builds an 8-character code from an unambiguous alphabet
// (no 0/O or 1/I), since users retype it into a chat.
func generateLinkCode() (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}
