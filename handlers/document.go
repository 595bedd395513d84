package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/imperialbin/imperial/config"
	"github.com/imperialbin/imperial/models"
	"github.com/imperialbin/imperial/services"
	"github.com/imperialbin/imperial/users"
	"github.com/imperialbin/imperial/utils"
)

// Screenshot quality tiers by membership
const (
	qualityDefault    = 73
	qualityMemberPlus = 100
)

// DocumentHandler handles the document API surface
type DocumentHandler struct {
	service *services.DocumentService
	users   users.Store
	config  *config.Config
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(service *services.DocumentService, userStore users.Store, cfg *config.Config) *DocumentHandler {
	return &DocumentHandler{
		service: service,
		users:   userStore,
		config:  cfg,
	}
}

// createRequest mirrors the fields accepted by the original API
type createRequest struct {
	Code          string `json:"code"`
	LongerUrls    bool   `json:"longerUrls"`
	ImageEmbed    bool   `json:"imageEmbed"`
	Expiration    int    `json:"expiration"`
	InstantDelete bool   `json:"instantDelete"`
	Encrypted     bool   `json:"encrypted"`
	Password      string `json:"password"`
}

type editRequest struct {
	Document string `json:"document"`
	NewCode  string `json:"newCode"`
	Code     string `json:"code"`
}

// resolveUser maps the Authorization header to a user record. A missing or
// unknown token yields nil without error; callers decide whether anonymous
// access is acceptable.
func (h *DocumentHandler) resolveUser(c *gin.Context) (*models.User, error) {
	token := trimmedToken(c.GetHeader("Authorization"))
	if token == "" {
		return nil, nil
	}
	user, err := h.users.FindByToken(token)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// Create handles POST /api/document
func (h *DocumentHandler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "Invalid request body!")
		return
	}

	user, err := h.resolveUser(c)
	if err != nil {
		log.Printf("[ERROR] token lookup failed: %v", err)
		respondInternalError(c)
		return
	}

	creator := models.AnonymousCreator
	opts := services.CreateOptions{}
	if user != nil {
		creator = user.ID
		opts = services.CreateOptions{
			LongerURL:      req.LongerUrls,
			ImageEmbed:     req.ImageEmbed,
			ExpirationDays: req.Expiration,
			InstantDelete:  req.InstantDelete,
			Quality:        qualityDefault,
			Encrypted:      req.Encrypted,
			Password:       req.Password,
		}
		if user.MemberPlus {
			opts.Quality = qualityMemberPlus
		}
	}

	res, err := h.service.Create(creator, req.Code, opts)
	if err != nil {
		respondError(c, err)
		return
	}

	rawLink, formattedLink := h.documentLinks(c, res.Slug)
	response := gin.H{
		"success":       true,
		"documentId":    res.Slug,
		"rawLink":       rawLink,
		"formattedLink": formattedLink,
		"expiresIn":     res.ExpiresAt,
		"instantDelete": res.InstantDelete,
		"encrypted":     res.Encrypted,
	}
	// The one and only disclosure of the passphrase
	if res.Encrypted {
		response["password"] = res.Password
	}
	c.JSON(http.StatusOK, response)
}

// Get handles GET /api/document/:slug
func (h *DocumentHandler) Get(c *gin.Context) {
	slug := c.Param("slug")
	if !utils.IsValidSlug(slug) {
		respondMessage(c, http.StatusNotFound, "Sorry! There was no document with that ID.")
		return
	}

	content, err := h.service.Read(slug, c.Query("password"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"document": content,
	})
}

// Raw handles GET /r/:slug, serving the document body as plain text
func (h *DocumentHandler) Raw(c *gin.Context) {
	slug := c.Param("slug")
	if !utils.IsValidSlug(slug) {
		respondMessage(c, http.StatusNotFound, "Sorry! There was no document with that ID.")
		return
	}

	content, err := h.service.Read(slug, c.Query("password"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, content)
}

// Edit handles PATCH /api/document
func (h *DocumentHandler) Edit(c *gin.Context) {
	user, err := h.resolveUser(c)
	if err != nil {
		log.Printf("[ERROR] token lookup failed: %v", err)
		respondInternalError(c)
		return
	}
	if user == nil {
		respondMessage(c, http.StatusUnauthorized, "An invalid API token was provided.")
		return
	}

	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "Invalid request body!")
		return
	}
	newContent := req.NewCode
	if newContent == "" {
		newContent = req.Code
	}
	if !utils.IsValidSlug(req.Document) {
		respondMessage(c, http.StatusNotFound, "Sorry! We couldn't find that document.")
		return
	}

	doc, err := h.service.Edit(user.ID, req.Document, newContent)
	if err != nil {
		respondError(c, err)
		return
	}

	rawLink, formattedLink := h.documentLinks(c, doc.Slug)
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       "Successfully edited the document!",
		"documentId":    doc.Slug,
		"rawLink":       rawLink,
		"formattedLink": formattedLink,
		"expiresIn":     doc.ExpiresAt,
		"instantDelete": doc.InstantDelete,
	})
}

// Delete handles DELETE /api/document/:slug
func (h *DocumentHandler) Delete(c *gin.Context) {
	user, err := h.resolveUser(c)
	if err != nil {
		log.Printf("[ERROR] token lookup failed: %v", err)
		respondInternalError(c)
		return
	}
	if user == nil {
		respondMessage(c, http.StatusUnauthorized, "Please put in a valid API token!")
		return
	}

	slug := c.Param("slug")
	if !utils.IsValidSlug(slug) {
		respondMessage(c, http.StatusNotFound, "Sorry! That document doesn't exist.")
		return
	}

	if err := h.service.Delete(user.ID, slug); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Successfully deleted the document!",
	})
}

// Purge handles DELETE /api/purgeDocuments
func (h *DocumentHandler) Purge(c *gin.Context) {
	user, err := h.resolveUser(c)
	if err != nil {
		log.Printf("[ERROR] token lookup failed: %v", err)
		respondInternalError(c)
		return
	}
	if user == nil {
		respondMessage(c, http.StatusUnauthorized, "Please put in a valid API token!")
		return
	}

	deleted, err := h.service.DeleteAll(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       fmt.Sprintf("Deleted a total of %d documents!", deleted),
		"numberDeleted": deleted,
	})
}

// CheckToken handles GET /api/checkApiToken/:apiToken
func (h *DocumentHandler) CheckToken(c *gin.Context) {
	token := trimmedToken(c.GetHeader("Authorization"))
	if token == "" {
		token = c.Param("apiToken")
	}
	if token == "" {
		respondMessage(c, http.StatusBadRequest, "Please put in an API token!")
		return
	}

	_, err := h.users.FindByToken(token)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "API token is invalid!"})
			return
		}
		log.Printf("[ERROR] token lookup failed: %v", err)
		respondInternalError(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "API token is valid!"})
}

// documentLinks builds the raw and formatted links for a document
func (h *DocumentHandler) documentLinks(c *gin.Context, slug string) (string, string) {
	base := h.config.URL
	if base == "" {
		scheme := "http"
		if isHTTPS(c) {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s", scheme, c.Request.Host)
	}
	return fmt.Sprintf("%s/r/%s", base, slug), fmt.Sprintf("%s/p/%s", base, slug)
}

// isHTTPS detects if the original request was HTTPS, even behind proxies
func isHTTPS(c *gin.Context) bool {
	if c.Request.TLS != nil {
		return true
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto == "https" {
		return true
	}
	if c.GetHeader("X-Forwarded-Ssl") == "on" {
		return true
	}
	return false
}

// respondMessage sends the API error envelope with an explicit status
func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

func respondInternalError(c *gin.Context) {
	respondMessage(c, http.StatusInternalServerError,
		"Sorry! There was an internal server error, please contact an administrator!")
}

// respondError maps lifecycle errors to distinct user-facing responses.
// Wrong passphrase and not-found must never collapse into one answer.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrMissingContent):
		respondMessage(c, http.StatusBadRequest, "You need to post code! No code was submitted.")
	case errors.Is(err, services.ErrNotFound):
		respondMessage(c, http.StatusNotFound, "Sorry! We couldn't find that document.")
	case errors.Is(err, services.ErrForbidden):
		respondMessage(c, http.StatusForbidden, "Sorry! You aren't allowed to modify this document.")
	case errors.Is(err, services.ErrEncryptedImmutable):
		respondMessage(c, http.StatusForbidden, "Sorry! Encrypted documents cannot be edited.")
	case errors.Is(err, services.ErrPassphraseRequired):
		respondMessage(c, http.StatusUnauthorized,
			"You need to pass ?password=PASSWORD with your request, since this document is encrypted!")
	case errors.Is(err, services.ErrIncorrectPassphrase):
		respondMessage(c, http.StatusUnauthorized, "Incorrect password for encrypted document!")
	case errors.Is(err, services.ErrNothingToDelete):
		respondMessage(c, http.StatusNotFound, "There were no documents to delete!")
	default:
		log.Printf("[ERROR] %v", err)
		respondInternalError(c)
	}
}

// trimmedToken strips a Bearer prefix if a client sends one
func trimmedToken(token string) string {
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
