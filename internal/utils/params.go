package utils

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func GetProjectID(ctx *gin.Context) (string, error) {
	projectID := strings.TrimSpace(ctx.Param("id"))

	if projectID == "" {
		return "", errors.New("Project ID not found")
	}

	return projectID, nil
}

// QueryInt parses a positive integer query parameter, falling back to def when it is
// missing, malformed or not positive.
func QueryInt(ctx *gin.Context, key string, def int) int {
	raw := ctx.Query(key)

	if raw == "" {
		return def
	}

	n, err := strconv.Atoi(raw)

	if err != nil || n < 1 {
		return def
	}

	return n
}

// CookieDomain reduces a configured domain or URL to the bare host used for cookies.
// An empty input yields a host-only cookie.
func CookieDomain(input string) (string, error) {
	domain := strings.TrimSpace(input)

	if domain == "" {
		return "", nil
	}

	// If it looks like a URL, parse it
	if strings.Contains(domain, "://") {
		parsedURL, err := url.Parse(domain)
		if err != nil {
			return "", errors.New("invalid URL format")
		}

		if parsedURL.Hostname() == "" {
			return "", errors.New("no hostname found in URL")
		}

		domain = parsedURL.Hostname()
	}

	domain = strings.TrimSuffix(domain, "/")

	if strings.HasPrefix(strings.ToLower(domain), "www.") {
		domain = domain[4:]
	}

	if domain == "" {
		return "", errors.New("invalid domain after processing")
	}

	return domain, nil
}
