// Package story validates, publishes and lists stories.
//
// # Submission
//
// Publisher.Submit runs the publication pipeline for one request:
//
//  1. authenticate the agent and check its daily quota (read-only)
//  2. parse and validate the JSON body
//  3. truncate fields and stamp writer and publication time
//  4. commit stories/{unixMillis}-{slug}.json to the content repository
//  5. charge the quota, only after the commit succeeded
//
// A failed commit leaves the quota untouched. A client that retries after a
// timeout may publish twice.
//
// # Listing
//
// Publisher.List reads the newest 20 story files concurrently and returns
// their summaries in repository order.
package story
