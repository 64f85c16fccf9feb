// Package logger builds configured slog loggers and provides attribute
// helpers with stable keys for the billing domain (subscription ids, event
// types, retry attempts). Using the helpers keeps field names consistent
// across packages so log aggregation queries do not drift.
package logger
