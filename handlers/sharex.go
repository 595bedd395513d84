package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// sharexConfig is the .sxcu document ShareX imports to upload through this
// service.
type sharexConfig struct {
	Version         string            `json:"Version"`
	DestinationType string            `json:"DestinationType"`
	RequestMethod   string            `json:"RequestMethod"`
	RequestURL      string            `json:"RequestURL"`
	Headers         map[string]string `json:"Headers"`
	Body            string            `json:"Body"`
	Data            string            `json:"Data"`
	URL             string            `json:"URL"`
}

// GetShareXConfig handles GET /api/getShareXConfig/:apiToken
func (h *DocumentHandler) GetShareXConfig(c *gin.Context) {
	token := trimmedToken(c.GetHeader("Authorization"))
	if token == "" {
		token = c.Param("apiToken")
	}

	base := h.config.URL
	if base == "" {
		scheme := "http"
		if isHTTPS(c) {
			scheme = "https"
		}
		base = scheme + "://" + c.Request.Host
	}

	c.Header("Content-Disposition", `attachment; filename="imperial.sxcu"`)
	c.JSON(http.StatusOK, sharexConfig{
		Version:         "13.4.0",
		DestinationType: "TextUploader",
		RequestMethod:   "POST",
		RequestURL:      base + "/api/document",
		Headers: map[string]string{
			"Authorization": token,
		},
		Body: "JSON",
		Data: "{\n  \"code\": \"$input$\",\n  \"longerUrls\": false,\n  \"imageEmbed\": true,\n  \"instantDelete\": false\n}",
		URL:  "$json:formattedLink$",
	})
}
