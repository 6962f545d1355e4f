// Package webui serves the browser front end.
//
// GET / renders a page that embeds the Monaco editor from its CDN. The
// page reads the language list from GET /api/languages, where each entry
// already carries the editor display mode, and submits code through
// POST /api/run, which goes through the same execution client as every
// other front end.
package webui
