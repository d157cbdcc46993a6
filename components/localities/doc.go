// Package localities provides the Chilean commune table, accent-insensitive
// search and typo autocorrection helpers, and a small net/http handler that
// returns JSON options for autocomplete inputs.
//
// The default handler responds to GET and HEAD requests and supports query and
// limit parameters to filter results. The backing data is loaded from the
// embedded table under data/comunas.txt, one "Region|Commune" pair per line.
package localities
