package server

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderPartnerClient = "X-Partner-Client-Id"

	contextOperationKey = "booking_operation"
)

// credentialFrom returns the raw Authorization header; the resolver strips the scheme.
func credentialFrom(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(HeaderAuthorization))
}

func partnerIDFrom(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(HeaderPartnerClient))
}
