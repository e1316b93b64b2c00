// Package logging provides a slog handler that mirrors WARN and ERROR
// records into the activity log so operators see them in the back office.
package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/olegiv/ngocms/internal/model"
	"github.com/olegiv/ngocms/internal/store"
)

// Attribute keys understood by ActivityLogHandler.
const (
	KeyActionType = "action_type"
	KeyUserID     = "user_id"
	KeyIPAddress  = "ip"
	keyRecorded   = "activity_recorded"
)

// Recorded marks a record whose caller already wrote its own activity log
// entry, so the handler does not write a duplicate.
func Recorded() slog.Attr {
	return slog.Bool(keyRecorded, true)
}

// ActivityLogHandler wraps another handler and also writes records at or
// above its level to the activity_logs table.
type ActivityLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level
	attrs   []slog.Attr
}

// NewActivityLogHandler forwards WARN and above to the activity log.
func NewActivityLogHandler(inner slog.Handler, db *sql.DB) *ActivityLogHandler {
	return NewActivityLogHandlerWithLevel(inner, db, slog.LevelWarn)
}

// NewActivityLogHandlerWithLevel creates a handler with a custom threshold.
func NewActivityLogHandlerWithLevel(inner slog.Handler, db *sql.DB, level slog.Level) *ActivityLogHandler {
	return &ActivityLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   level,
	}
}

// Enabled implements slog.Handler.
func (h *ActivityLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *ActivityLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level >= h.level {
		h.write(r)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *ActivityLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.inner = h.inner.WithAttrs(attrs)
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

// WithGroup implements slog.Handler. Grouped keys are flattened in the
// stored details.
func (h *ActivityLogHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.inner = h.inner.WithGroup(name)
	return &clone
}

func (h *ActivityLogHandler) write(r slog.Record) {
	entry := recordEntry{details: map[string]any{"level": r.Level.String()}}
	for _, a := range h.attrs {
		entry.add(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		entry.add(a)
		return true
	})
	if entry.recorded {
		return
	}

	if entry.actionType == "" {
		entry.actionType = inferActionType(r.Message)
	}

	status := model.ActivityStatusSuccess
	if r.Level >= slog.LevelError {
		status = model.ActivityStatusFailure
	}

	details, err := json.Marshal(entry.details)
	if err != nil {
		details = []byte("{}")
	}

	// Background context: the record may outlive a cancelled request.
	_, _ = h.queries.CreateActivityLog(context.Background(), store.CreateActivityLogParams{
		UserID:     entry.userID,
		Action:     r.Message,
		ActionType: entry.actionType,
		Details:    string(details),
		Status:     status,
		IpAddress:  entry.ip,
		CreatedAt:  r.Time.UTC(),
		UpdatedAt:  r.Time.UTC(),
	})
}

type recordEntry struct {
	actionType string
	userID     sql.NullInt64
	ip         string
	recorded   bool
	details    map[string]any
}

func (e *recordEntry) add(a slog.Attr) {
	a.Value = a.Value.Resolve()

	switch a.Key {
	case keyRecorded:
		e.recorded = a.Value.Kind() == slog.KindBool && a.Value.Bool()
	case KeyActionType:
		e.actionType = a.Value.String()
	case KeyUserID:
		switch a.Value.Kind() {
		case slog.KindInt64:
			e.userID = sql.NullInt64{Int64: a.Value.Int64(), Valid: true}
		case slog.KindUint64:
			e.userID = sql.NullInt64{Int64: int64(a.Value.Uint64()), Valid: true}
		}
	case KeyIPAddress:
		e.ip = a.Value.String()
	default:
		if a.Value.Kind() == slog.KindGroup {
			for _, ga := range a.Value.Group() {
				e.details[a.Key+"."+ga.Key] = ga.Value.Resolve().String()
			}
			return
		}
		e.details[a.Key] = a.Value.String()
	}
}

// inferActionType maps a message to an action type when the record carries
// no explicit action_type attribute.
func inferActionType(msg string) string {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "backup") || strings.Contains(msg, "restore") || strings.Contains(msg, "import"):
		return model.ActionTypeBackup
	case strings.Contains(msg, "auth") || strings.Contains(msg, "token") || strings.Contains(msg, "login"):
		return model.ActionTypeAuth
	case strings.Contains(msg, "setting"):
		return model.ActionTypeSettings
	case strings.Contains(msg, "user"):
		return model.ActionTypeUser
	default:
		return model.ActionTypeSystem
	}
}
