// Package content implements the Gatehouse content aggregator: the Drive
// library list, admin add/update/remove, search filtering, and the series
// grouping that drives browsing rows and up-next playlists.
package content
