package models

// Method identifies an authentication mechanism.
type Method string

const (
	MethodJWT     Method = "jwt"
	MethodSession Method = "session"
)

// AllMethods lists every known method in declared priority order.
// The order is the tie-break used by the selector.
var AllMethods = []Method{MethodJWT, MethodSession}

// Valid returns true for a known method value.
func (m Method) Valid() bool {
	return m == MethodJWT || m == MethodSession
}

// ClientType is the classifier's verdict category.
type ClientType string

const (
	ClientAPI     ClientType = "api"
	ClientBrowser ClientType = "browser"
	ClientSPA     ClientType = "spa"
	ClientMobile  ClientType = "mobile"
	ClientHybrid  ClientType = "hybrid"
)

// UserAgentClass is a coarse bucketing of the User-Agent header.
type UserAgentClass string

const (
	UABrowser UserAgentClass = "browser"
	UAAPILib  UserAgentClass = "api-lib"
	UAMobile  UserAgentClass = "mobile"
	UAUnknown UserAgentClass = "unknown"
)
