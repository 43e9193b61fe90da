package http

import "strings"

// PathClass partitions the route space for the request gate.
type PathClass int

const (
	// PathPublic needs no authentication at the gate. API routes fall here
	// too; bearer enforcement for them happens in the injection stage.
	PathPublic PathClass = iota

	// PathMFAFlow is the email one-time-code flow, reachable only between
	// wallet authentication and MFA completion.
	PathMFAFlow

	// PathAdmin requires the admin flag on top of full authentication.
	PathAdmin

	// PathProtected is everything else and requires full authentication.
	PathProtected
)

var (
	mfaFlowPrefixes = []string{"/auth/mfa/request", "/auth/mfa/verify"}
	adminPrefixes   = []string{"/admin"}
	publicPrefixes  = []string{"/auth", "/api", "/healthz", "/static", "/favicon.ico"}
)

// Classify maps a request path to its class. MFA-flow paths are carved out of
// the otherwise-public /auth space first, and admin before public, so the
// more specific class always wins.
func Classify(path string) PathClass {
	for _, p := range mfaFlowPrefixes {
		if matchesSegment(path, p) {
			return PathMFAFlow
		}
	}
	for _, p := range adminPrefixes {
		if matchesSegment(path, p) {
			return PathAdmin
		}
	}
	if path == "/" {
		return PathPublic
	}
	for _, p := range publicPrefixes {
		if matchesSegment(path, p) {
			return PathPublic
		}
	}
	return PathProtected
}

// matchesSegment reports whether path equals prefix or sits below it on a
// path-segment boundary. "/admincontrol" does not match "/admin".
func matchesSegment(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
