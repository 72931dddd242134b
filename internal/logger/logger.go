package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rivo/tview"
	"github.com/sirupsen/logrus"
)

type Logger struct {
	entry *logrus.Entry
}

var (
	mu      sync.Mutex
	base    = newBase()
	logFile *os.File
)

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// InitLogger configures every tagged logger. With a logPath, entries are
// appended to blab_log_<timestamp>.log in that directory. In dev mode they
// are also printed to view, usually the debug console.
func InitLogger(dev bool, logPath string, view io.Writer) error {
	mu.Lock()
	defer mu.Unlock()

	var out io.Writer = io.Discard
	var file *os.File
	if logPath != "" {
		timestamp := time.Now().Format("20060102_150405")
		fileName := fmt.Sprintf("blab_log_%s.log", timestamp)

		f, err := os.OpenFile(filepath.Join(logPath, fileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		out = f
	}

	// base is reconfigured in place so loggers created before InitLogger
	// pick up the new outputs.
	hooks := make(logrus.LevelHooks)
	if dev && view != nil {
		hooks.Add(&viewHook{view: view})
	}
	base.ReplaceHooks(hooks)
	base.SetOutput(out)
	if dev {
		base.SetLevel(logrus.DebugLevel)
	} else {
		base.SetLevel(logrus.InfoLevel)
	}

	closeFile()
	logFile = file
	return nil
}

func NewLogger(tag string) *Logger {
	return &Logger{entry: base.WithField("tag", tag)}
}

func (l *Logger) Debug(v ...interface{}) {
	l.entry.Debug(v...)
}

func (l *Logger) Info(v ...interface{}) {
	l.entry.Info(v...)
}

func (l *Logger) Warn(v ...interface{}) {
	l.entry.Warn(v...)
}

func (l *Logger) Error(v ...interface{}) {
	l.entry.Error(v...)
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.entry.Infof(format, v...)
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.entry.Warnf(format, v...)
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.entry.Errorf(format, v...)
}

// Fatal logs and exits the process.
func (l *Logger) Fatal(v ...interface{}) {
	l.entry.Fatal(v...)
}

// Close flushes and closes the log file, if any.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	base.SetOutput(io.Discard)
	closeFile()
}

func closeFile() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// viewHook mirrors entries into a tview text view using colour tags. Tag
// and message are escaped since they carry user and server text.
type viewHook struct {
	view io.Writer
}

func (h *viewHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *viewHook) Fire(entry *logrus.Entry) error {
	var format string
	switch entry.Level {
	case logrus.InfoLevel:
		format = "[green]DEBUG (%s): %s[-]\n"
	case logrus.WarnLevel:
		format = "[yellow]DEBUG (%s): %s[-]\n"
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		format = "[red]DEBUG (%s): %s[-]\n"
	default:
		format = "[grey]DEBUG (%s): %s[-]\n"
	}
	tag, _ := entry.Data["tag"].(string)
	_, err := fmt.Fprintf(h.view, format, tview.Escape(tag), tview.Escape(entry.Message))
	return err
}
