// Package devicegw is the signed HTTP client for the cloud device gateway.
//
// Every valve and soil sensor is reached through a vendor cloud API that
// authenticates requests with an HMAC-SHA256 signature over a canonical
// request string, plus a short-lived bearer token. This package owns the
// whole signing protocol and the token cache; nothing else in the engine
// touches credentials.
//
// # Signing scheme
//
// Each request carries client_id, t (millisecond timestamp), sign_method,
// sign and (for authorised calls) access_token headers, where
//
//	canonical = METHOD + "\n" + SHA256hex(body) + "\n" + "" + "\n" + path
//	sign      = upper(HMAC-SHA256hex(secret, client_id [+ token] + t + canonical))
//
// Token refresh uses the same scheme without the access_token component.
//
// # Token cache
//
// The token and its absolute expiry live inside the Client and are refreshed
// when a call finds them within the expiry margin. The cache is process-local;
// in a multi-instance deployment each instance refreshes independently, which
// is safe because the refresh operation is idempotent.
//
// # Error handling
//
// Transport failures are returned wrapped; application-level failures
// (success=false in the response envelope) are returned as *APIError carrying
// the remote code and message. The client never retries; retry policy
// belongs to the caller, which for this engine is the next scheduler trigger.
package devicegw
