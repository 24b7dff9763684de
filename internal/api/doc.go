// Package api provides the REST client for the scanner endpoint.
//
// GET /scanner?<ranking/filter params>&page=N returns one ranked page of up
// to 100 pairs. Absence of page implies page 1; a page shorter than the
// fixed page size is the last page for that parameter set.
package api
