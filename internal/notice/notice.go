// Package notice describes user-facing messages and delivers them.
package notice

import (
	"fmt"
	"io"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/studioform/storefront/internal/api"
)

// Kind is the severity of a Notice.
type Kind int

const (
	Success Kind = iota
	Info
	Warning
	Error
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Notice is a message shown to the user.
type Notice struct {
	Kind        Kind
	Title       string
	Description string
	// Blocking notices replace the current screen instead of showing a toast.
	Blocking bool
}

func (n Notice) String() string {
	if n.Description == "" {
		return n.Title
	}
	return n.Title + ": " + n.Description
}

// FromError builds an error Notice. Backend messages, including field
// validation errors, are kept verbatim.
func FromError(title string, err error) Notice {
	n := Notice{Kind: Error, Title: title}
	var apiErr *api.Error
	switch {
	case err == nil:
	case errors.As(err, &apiErr):
		n.Description = apiErr.Message()
	case api.IsNetwork(err):
		n.Description = "Unable to reach the server. Check your connection and try again."
	default:
		n.Description = err.Error()
	}
	return n
}

// Notifier delivers notices.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notice)

// Notify implements Notifier.
func (f NotifierFunc) Notify(n Notice) { f(n) }

var (
	_ Notifier = (*WriterNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = NotifierFunc(nil)
)

// WriterNotifier prints notices to a writer, one per line.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier returns a WriterNotifier writing to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// Notify implements Notifier.
func (p *WriterNotifier) Notify(n Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n.Blocking {
		_, _ = fmt.Fprintf(p.w, "\n=== %s ===\n%s\n\n", n.Title, n.Description)
		return
	}
	_, _ = fmt.Fprintf(p.w, "[%s] %s\n", n.Kind, n)
}

// LogNotifier logs notices.
type LogNotifier struct {
	lg *zap.Logger
}

// NewLogNotifier returns a LogNotifier.
func NewLogNotifier(lg *zap.Logger) *LogNotifier {
	return &LogNotifier{lg: lg}
}

// Notify implements Notifier.
func (l *LogNotifier) Notify(n Notice) {
	fields := []zap.Field{
		zap.String("title", n.Title),
		zap.String("description", n.Description),
		zap.Bool("blocking", n.Blocking),
	}
	switch n.Kind {
	case Error:
		l.lg.Error("Notice", fields...)
	case Warning:
		l.lg.Warn("Notice", fields...)
	default:
		l.lg.Info("Notice", fields...)
	}
}
