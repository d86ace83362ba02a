package common

// AccessTokenHeaderName is the gRPC metadata key that may carry the access
// token when the standard authorization header is not used.
const AccessTokenHeaderName = "access_token"

// AuthorizationHeaderName is the HTTP header and gRPC metadata key carrying
// "Bearer <access token>".
const AuthorizationHeaderName = "authorization"

// BearerPrefix precedes the token in the authorization header.
const BearerPrefix = "Bearer "
