// Package common contains shared constants and coded errors used across
// gamevault components.
package common

// AuthorizationHeaderName is the HTTP header used to carry the access token
// on outbound backend requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the access token in AuthorizationHeaderName.
const BearerPrefix = "Bearer "

// RequestIDHeaderName tags every outbound backend request.
const RequestIDHeaderName = "X-Request-ID"

// AccountTypeEVM is the only account type that can own on-chain licenses.
const AccountTypeEVM = "evm"
