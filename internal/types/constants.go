package types

const (
	ContextUserKey    = "user"
	ContextSessionKey = "session"
	ContextRequestID  = "request_id"

	AuthCookieName = "auth-token"

	StatusFilterAll  = "all"
	DefaultPage      = 1
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// DefaultAllowedOrigins are the development front-end origins.
var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}
