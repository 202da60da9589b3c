package logging

import (
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
)

// newJSONHandler writes one JSON object per record using the key names of
// LogEvent, so a log file line and an /api/logs event read the same.
func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: jsonLineAttr,
	})
}

func jsonLineAttr(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch attr.Key {
		case slog.TimeKey:
			return slog.String("ts", attrString(attr.Value))
		case slog.LevelKey:
			return slog.String(slog.LevelKey, levelName(attr.Value))
		case slog.SourceKey:
			if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
				return slog.String(slog.SourceKey, filepath.Base(src.File)+":"+strconv.Itoa(src.Line))
			}
			return attr
		}
	}
	switch attr.Value.Kind() {
	case slog.KindDuration, slog.KindTime:
		attr.Value = slog.StringValue(attrString(attr.Value))
	}
	return attr
}

func levelName(v slog.Value) string {
	if level, ok := v.Any().(slog.Level); ok {
		return level.String()
	}
	return v.String()
}
