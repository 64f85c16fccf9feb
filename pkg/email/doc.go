// Package email sends transactional email. Production uses the Postmark
// client; local development can swap in DevSender, which writes messages to
// disk instead of sending them.
package email
