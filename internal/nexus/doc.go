// Package nexus is a small client for the KMD Nexus HAL JSON API.
//
// Client authenticates with OAuth2 client credentials and follows the
// hyperlinks that Nexus embeds in every entity (_links.<rel>.href). It covers
// the parts of the API the grant closure run touches: citizen lookup, pathway
// views and their reference trees, basket grants with their workflow
// transitions, supplier organizations, scheduling calendars, order grants and
// their actions.
//
// Untyped records are converted at the boundary. DecodeFields turns a grant's
// currentElements into GrantFields and reports a validation error naming the
// field when an element is malformed.
package nexus
