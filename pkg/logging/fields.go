package logging

import "log/slog"

// Domain identifiers

func UserID(id int64) slog.Attr {
	return slog.Int64("user_id", id)
}

func VentureID(id int64) slog.Attr {
	return slog.Int64("venture_id", id)
}

func ConversationID(id int64) slog.Attr {
	return slog.Int64("conversation_id", id)
}

func ConnectionID(id string) slog.Attr {
	return slog.String("conn_id", id)
}

func Event(typ string) slog.Attr {
	return slog.String("event_type", typ)
}

// Request / tracing

func RequestID(id string) slog.Attr {
	return slog.String("request_id", id)
}

func TraceID(id string) slog.Attr {
	return slog.String("trace_id", id)
}

// Error handling

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
