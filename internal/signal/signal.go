package signal

import (
	"mime"
	"net/http"
	"strings"

	"github.com/org/authgate/pkg/models"
)

// apiLibTokens mark user agents belonging to HTTP client libraries and
// command-line tools.
var apiLibTokens = []string{
	"curl", "wget", "python-requests", "python-urllib", "go-http-client",
	"java/", "libwww", "httpie", "postman", "insomnia", "axios", "node-fetch",
}

// mobileAppTokens mark user agents belonging to native mobile HTTP stacks.
// Mobile browsers still identify as browsers; these are app frameworks.
var mobileAppTokens = []string{
	"okhttp", "dalvik", "cfnetwork", "alamofire", "darwin/",
}

var browserTokens = []string{
	"mozilla", "chrome", "safari", "firefox", "edge", "opera",
}

// Extractor builds a SignalSet from request metadata. It is a pure
// transformation: malformed values normalize to unknown/false, never error.
type Extractor struct {
	cookieName string
}

// NewExtractor creates an Extractor that looks for the given session cookie.
func NewExtractor(cookieName string) *Extractor {
	return &Extractor{cookieName: cookieName}
}

// Extract derives the signal set for one request. Called once per request;
// the result is never mutated afterwards.
func (e *Extractor) Extract(h http.Header) models.SignalSet {
	return models.SignalSet{
		HasBearerToken:      BearerToken(h) != "",
		HasSessionCookie:    e.SessionCookie(h) != "",
		ContentType:         normalizeContentType(h.Get("Content-Type")),
		UserAgentClass:      ClassifyUserAgent(h.Get("User-Agent")),
		AcceptsJSON:         acceptsJSON(h.Get("Accept")),
		OriginHeaderPresent: h.Get("Origin") != "",
	}
}

// BearerToken returns the bearer token from the Authorization header, or ""
// if the header is absent or not a bearer credential.
func BearerToken(h http.Header) string {
	auth := h.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

// SessionCookie returns the session cookie value, or "" if not present.
func (e *Extractor) SessionCookie(h http.Header) string {
	// http.Request does the cookie-header parsing for us.
	r := http.Request{Header: h}
	c, err := r.Cookie(e.cookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// ClassifyUserAgent buckets a User-Agent string. Checks are ordered: client
// libraries first, then native mobile stacks, then browsers.
func ClassifyUserAgent(ua string) models.UserAgentClass {
	if ua == "" {
		return models.UAUnknown
	}
	lower := strings.ToLower(ua)
	for _, tok := range apiLibTokens {
		if strings.Contains(lower, tok) {
			return models.UAAPILib
		}
	}
	for _, tok := range mobileAppTokens {
		if strings.Contains(lower, tok) {
			return models.UAMobile
		}
	}
	for _, tok := range browserTokens {
		if strings.Contains(lower, tok) {
			return models.UABrowser
		}
	}
	return models.UAUnknown
}

func normalizeContentType(ct string) string {
	if ct == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return "unknown"
	}
	return mediaType
}

func acceptsJSON(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		if mediaType == "application/json" || strings.HasSuffix(mediaType, "+json") {
			return true
		}
	}
	return false
}
