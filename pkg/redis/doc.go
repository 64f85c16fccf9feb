// Package redis connects to a Redis server with startup retries and exposes
// a health-check probe. The billing module uses the client for webhook
// delivery deduplication.
package redis
