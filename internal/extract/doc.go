// Package extract turns fetched perfume pages into structured fields
// and discovers outbound links for the frontier.
//
// Field extraction uses goquery over the parsed document with
// URL-derived fallbacks: the page markup shifts over time, but the URL
// shape encodes brand and name reliably. Rating and votes come from the
// visible "Perfume rating R out of 5 with V votes" text and stay absent
// when that text is missing or unparseable.
package extract
