package httpserver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var errNoAuth = errors.New("missing or malformed authorization header")

// requesterDID extracts the caller's DID from the iss claim of the XRPC
// service JWT. The claim is read without verifying the signature; resolving
// the caller's signing key lives outside this service.
func requesterDID(authorization string) (string, error) {
	token, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok || token == "" {
		return "", errNoAuth
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("parse service jwt: %w", err)
	}

	iss, err := claims.GetIssuer()
	if err != nil || iss == "" {
		return "", errNoAuth
	}
	return iss, nil
}
