// Package site renders published stories as a static website.
//
// The gateway returns story URLs of the form {public_base_url}/story-{slug}.html.
// Builder produces exactly those pages from the content repository, plus an
// index.html listing every story newest first. Story content is treated as
// markdown and rendered with goldmark; raw HTML inside content is not passed
// through.
//
// The output directory is meant to be served by any static host (GitHub
// Pages, an S3 website bucket, nginx).
package site
