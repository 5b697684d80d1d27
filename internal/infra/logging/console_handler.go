package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

const (
	ansiCodeReset     = "\033[0m"
	ansiCodeRed       = "\033[31m"
	ansiCodeGreen     = "\033[32m"
	ansiCodeYellow    = "\033[33m"
	ansiCodePurple    = "\033[35m"
	ansiCodeCyan      = "\033[36m"
	ansiCodeGray      = "\033[90m"
	ansiCodeBold      = "\033[1m"
	ansiCodeUnderline = "\033[4m"
)

//nolint:gochecknoglobals
var ansiCodeMap = map[slog.Level]string{
	slog.LevelDebug: ansiCodeCyan,
	slog.LevelInfo:  ansiCodeGreen,
	slog.LevelWarn:  ansiCodeYellow,
	slog.LevelError: ansiCodeRed,
}

// Attribute keys rendered in the line header instead of the attribute list.
const (
	consoleKeyApp     = "app"
	consoleKeyLogger  = "logger"
	consoleKeySession = "session"
	consoleKeyTrace   = "trace"
)

// ConsoleHandler implements slog.Handler for humans: one coloured line per
// record with the logger name, the session user and the trace id up front,
// followed by the attributes and the calling function.
//
//	12:00:01.000000 [INFO] svc.accountsvc.account_service: username updated @alice01 #0192... | user.new_username=alice02
//	-> accountsvc.(*AccountService).UpdateUsername() in account_service.go:170
type ConsoleHandler struct {
	// Output is the destination for log output (typically os.Stdout or os.Stderr)
	Output io.Writer
	// Level is the minimum level for log records to be processed
	Level slog.Leveler
	// PkgLevels maps logger names to minimum log levels. The longest matching
	// dotted prefix wins and overrides Level in both directions.
	PkgLevels map[string]slog.Level

	mu     *sync.Mutex
	attrs  []slog.Attr
	groups []consoleGroup
}

// consoleGroup is a group opened by WithGroup and the attrs added inside it.
type consoleGroup struct {
	name  string
	attrs []slog.Attr
}

var _ slog.Handler = (*ConsoleHandler)(nil)

// NewConsoleHandler creates a ConsoleHandler. Handlers derived from it with
// WithAttrs and WithGroup share one write lock.
func NewConsoleHandler(output io.Writer, level slog.Leveler, pkgLevels map[string]slog.Level) *ConsoleHandler {
	//nolint:exhaustruct
	return &ConsoleHandler{
		Output:    output,
		Level:     level,
		PkgLevels: pkgLevels,
		mu:        new(sync.Mutex),
	}
}

// consoleHeader holds the attributes shown before the message.
type consoleHeader struct {
	logger   string
	username string
	traceID  string
}

// Handle implements slog.Handler.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	var recAttrs []slog.Attr

	r.Attrs(func(a slog.Attr) bool {
		recAttrs = append(recAttrs, a)

		return true
	})

	// the tracing handler adds trace and session to the record; they describe
	// the request, not the current group
	var header consoleHeader

	topLevel := header.take(h.attrs)

	if len(h.groups) == 0 {
		recAttrs = header.take(recAttrs)
	} else {
		recAttrs = header.takeContext(recAttrs)
	}

	if level, ok := h.pkgLevel(header.logger); ok {
		if r.Level < level {
			return nil
		}
	} else if r.Level < h.Level.Level() {
		return nil
	}

	var b strings.Builder

	b.WriteString(ansiCodeGray + r.Time.Format("15:04:05.000000") + ansiCodeReset)
	b.WriteString(" " + ansiCodeMap[r.Level] + "[" + r.Level.String() + "]" + ansiCodeReset)

	if header.logger != "" {
		b.WriteString(" " + ansiCodeBold + header.logger + ":" + ansiCodeReset)
	}

	b.WriteString(" " + r.Message)

	if header.username != "" {
		b.WriteString(" " + ansiCodePurple + "@" + header.username + ansiCodeReset)
	}

	if header.traceID != "" {
		b.WriteString(" " + ansiCodeGray + "#" + header.traceID + ansiCodeReset)
	}

	var attrs strings.Builder

	renderAttrs(&attrs, "", topLevel)
	renderAttrs(&attrs, "", h.nest(recAttrs))

	if attrs.Len() > 0 {
		b.WriteString(" " + ansiCodeGray + "|" + ansiCodeReset + attrs.String())
	}

	if r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		fn := strings.Split(f.Function, string(os.PathSeparator))

		b.WriteString("\n-> " + ansiCodeGray + fn[len(fn)-1] + "()")
		b.WriteString(" in " + ansiCodeUnderline + f.File + ":" + strconv.Itoa(f.Line) + ansiCodeReset)
	}

	h.lock()
	defer h.unlock()

	_, err := fmt.Fprintln(h.Output, b.String())

	return err //nolint:wrapcheck
}

// take moves the header attributes out of attrs and returns the rest.
func (hd *consoleHeader) take(attrs []slog.Attr) []slog.Attr {
	rest := make([]slog.Attr, 0, len(attrs))

	for _, a := range attrs {
		switch a.Key {
		case consoleKeyApp:
		case consoleKeyLogger:
			hd.logger = a.Value.String()
		case consoleKeySession, consoleKeyTrace:
			if !hd.context(a) {
				rest = append(rest, a)
			}
		default:
			rest = append(rest, a)
		}
	}

	return rest
}

// takeContext is take limited to the request context groups.
func (hd *consoleHeader) takeContext(attrs []slog.Attr) []slog.Attr {
	rest := make([]slog.Attr, 0, len(attrs))

	for _, a := range attrs {
		if (a.Key != consoleKeySession && a.Key != consoleKeyTrace) || !hd.context(a) {
			rest = append(rest, a)
		}
	}

	return rest
}

func (hd *consoleHeader) context(a slog.Attr) bool {
	if a.Value.Kind() != slog.KindGroup {
		return false
	}

	for _, ga := range a.Value.Group() {
		switch {
		case a.Key == consoleKeySession && ga.Key == "username":
			hd.username = ga.Value.String()
		case a.Key == consoleKeyTrace && ga.Key == "id":
			hd.traceID = ga.Value.String()
		default:
			return false
		}
	}

	return true
}

// nest wraps the record attrs into the open groups, innermost first.
func (h *ConsoleHandler) nest(attrs []slog.Attr) []slog.Attr {
	for i := len(h.groups) - 1; i >= 0; i-- {
		group := h.groups[i]
		inner := append(append([]slog.Attr{}, group.attrs...), attrs...)

		if len(inner) == 0 {
			attrs = nil

			continue
		}

		attrs = []slog.Attr{{Key: group.name, Value: slog.GroupValue(inner...)}}
	}

	return attrs
}

func renderAttrs(b *strings.Builder, prefix string, attrs []slog.Attr) {
	for _, attr := range attrs {
		attr.Value = attr.Value.Resolve()

		if attr.Equal(slog.Attr{}) {
			continue
		}

		if attr.Value.Kind() == slog.KindGroup {
			groupPrefix := prefix
			if attr.Key != "" {
				groupPrefix += attr.Key + "."
			}

			renderAttrs(b, groupPrefix, attr.Value.Group())

			continue
		}

		b.WriteString(" " + prefix + attr.Key)
		b.WriteString("=" + ansiCodeGray + attr.Value.String() + ansiCodeReset)
	}
}

// pkgLevel returns the level configured for the longest dotted prefix of name.
func (h *ConsoleHandler) pkgLevel(name string) (slog.Level, bool) {
	parts := strings.Split(name, ".")

	for i := len(parts); i > 0; i-- {
		if level, ok := h.PkgLevels[strings.Join(parts[:i], ".")]; ok {
			return level, true
		}
	}

	return 0, false
}

func (h *ConsoleHandler) lock() {
	if h.mu != nil {
		h.mu.Lock()
	}
}

func (h *ConsoleHandler) unlock() {
	if h.mu != nil {
		h.mu.Unlock()
	}
}

func (h *ConsoleHandler) clone() *ConsoleHandler {
	return &ConsoleHandler{
		Output:    h.Output,
		Level:     h.Level,
		PkgLevels: h.PkgLevels,
		mu:        h.mu,
		attrs:     h.attrs,
		groups:    h.groups,
	}
}

// WithAttrs implements slog.Handler.WithAttrs.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) Handler {
	c := h.clone()

	if len(h.groups) == 0 {
		c.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)

		return c
	}

	// attrs added after a group belong to that group
	c.groups = append([]consoleGroup{}, h.groups...)
	last := &c.groups[len(c.groups)-1]
	last.attrs = append(append([]slog.Attr{}, last.attrs...), attrs...)

	return c
}

// WithGroup implements slog.Handler.WithGroup.
func (h *ConsoleHandler) WithGroup(name string) Handler {
	if name == "" {
		return h
	}

	c := h.clone()
	c.groups = append(append([]consoleGroup{}, h.groups...), consoleGroup{name: name})

	return c
}

// Enabled implements slog.Handler.Enabled. Records below Level still pass
// when some logger has a lower level configured; Handle filters them by name.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.Level.Level() <= level {
		return true
	}

	for _, pkgLevel := range h.PkgLevels {
		if pkgLevel <= level {
			return true
		}
	}

	return false
}
