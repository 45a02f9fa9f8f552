// Package credential supplies the bound credential that every upstream request is sent with.
//
// Acquiring and rotating credentials is the job of an external token manager. This package
// only binds whatever it produces to the two identifiers the upstream envelope needs:
//
//   - ProjectID: the Cloud Code project the request is billed against
//   - SessionID: an opaque session handle, stable for the lifetime of the binding
//   - RawToken:  the OAuth2 access token sent as a bearer token
//
// # Token Sources
//
// Any oauth2.TokenSource can back a Source. Static access tokens and refresh tokens are
// both supported through the standard oauth2 helpers:
//
//	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
//	src := credential.NewTokenSource(projectID, credential.NewSessionID(), ts)
//	bound, err := src.Credential(ctx)
//
// # Custom Base Transport
//
// Refreshing token sources make HTTP requests of their own. Route them through the same
// pooled transport as upstream traffic with WithTransport:
//
//	ctx = credential.WithTransport(ctx, pooledTransport)
//	ts := oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
package credential
