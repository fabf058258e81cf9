package audit

import (
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/techmatters/terraso-go/pkg/logging"
)

// Structured data IDs are registered under the documentation enterprise
// number from RFC 5612.
const (
	EnterpriseNumber = 32473
	SDIDAuth         = "auth@32473"
	SDIDSubject      = "subject@32473"
	SDIDAction       = "action@32473"
	SDIDClient       = "client@32473"
)

const (
	FacilityUser     = 1
	FacilityAuthPriv = 10
)

const appName = "terraso"

// Severity follows the RFC 5424 numbering.
type Severity int

const (
	SeverityEmergency Severity = iota
	SeverityAlert
	SeverityCritical
	SeverityError
	SeverityWarning
	SeverityNotice
	SeverityInfo
	SeverityDebug
)

// Event is anything the recorder can frame as a syslog line and persist as
// an audit_logs row.
type Event interface {
	MessageID() string
	Message() string
	Severity() Severity
	Facility() int
	StructuredData() map[string]map[string]string
	Entry() Entry
}

// Sink receives every recorded event.
type Sink interface {
	Write(event Event) error
}

// SyslogSink writes one RFC 5424 line per event.
type SyslogSink struct {
	mu   sync.Mutex
	out  io.Writer
	host string
	pid  int
	now  func() time.Time
}

func NewSyslogSink(out io.Writer) *SyslogSink {
	host, _ := os.Hostname()
	if host == "" {
		host = "-"
	}
	return &SyslogSink{out: out, host: host, pid: os.Getpid(), now: time.Now}
}

func (s *SyslogSink) SetOutput(out io.Writer) {
	s.mu.Lock()
	s.out = out
	s.mu.Unlock()
}

func (s *SyslogSink) Write(event Event) error {
	line := s.frame(event)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.out, line)
	return err
}

// frame renders <PRI>1 TIMESTAMP HOST APP PROCID MSGID SD MSG.
func (s *SyslogSink) frame(event Event) string {
	sd := formatStructuredData(event.StructuredData())
	if sd == "" {
		sd = "-"
	}
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(strconv.Itoa(event.Facility()*8 + int(event.Severity())))
	b.WriteString(">1 ")
	b.WriteString(s.now().UTC().Format("2006-01-02T15:04:05.000Z"))
	for _, field := range []string{s.host, appName, strconv.Itoa(s.pid), event.MessageID(), sd, event.Message()} {
		b.WriteByte(' ')
		b.WriteString(field)
	}
	b.WriteByte('\n')
	return b.String()
}

// formatStructuredData renders [sdid k="v" ...] blocks with sorted IDs and keys.
func formatStructuredData(sd map[string]map[string]string) string {
	var b strings.Builder
	for _, id := range sortedKeys(sd) {
		b.WriteByte('[')
		b.WriteString(id)
		params := sd[id]
		for _, k := range sortedKeys(params) {
			b.WriteByte(' ')
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(escapeSDValue(params[k]))
		}
		b.WriteByte(']')
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var sdEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `]`, `\]`)

func escapeSDValue(value string) string {
	return `"` + sdEscaper.Replace(value) + `"`
}

// Recorder fans events out to its sinks. Sink failures are logged, never
// returned to the request that caused the event.
type Recorder struct {
	mu    sync.RWMutex
	sinks []Sink
}

func NewRecorder(sinks ...Sink) *Recorder {
	return &Recorder{sinks: sinks}
}

func (r *Recorder) AddSink(s Sink) {
	r.mu.Lock()
	r.sinks = append(r.sinks, s)
	r.mu.Unlock()
}

func (r *Recorder) Record(event Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sinks {
		if err := s.Write(event); err != nil {
			logging.Error().Err(err).Str("msgid", event.MessageID()).Msg("audit: sink write failed")
		}
	}
}

var (
	// Syslog is the stdout sink of the package recorder.
	Syslog = NewSyslogSink(os.Stdout)

	recorder = NewRecorder(Syslog)

	enabledMu    sync.Mutex
	enabled      = true
	enabledFixed bool
	storeOnce    sync.Once
)

// IsEnabled reports whether Log records anything. TERRASO_AUDIT_ENABLED
// is consulted until SetEnabled is called.
func IsEnabled() bool {
	enabledMu.Lock()
	defer enabledMu.Unlock()
	if !enabledFixed {
		if env := os.Getenv("TERRASO_AUDIT_ENABLED"); env != "" {
			enabled = env != "false" && env != "0" && env != "no"
		}
		enabledFixed = true
	}
	return enabled
}

func SetEnabled(on bool) {
	enabledMu.Lock()
	enabled, enabledFixed = on, true
	enabledMu.Unlock()
}

// Log records an event on the package recorder. The database sink is
// attached on first use when AUDIT_DATABASE_URL is set.
func Log(event Event) {
	if !IsEnabled() {
		return
	}
	storeOnce.Do(func() {
		s, err := NewStore()
		if err != nil {
			logging.Error().Err(err).Msg("audit: failed to connect to audit database")
			return
		}
		if s != nil {
			recorder.AddSink(s)
		}
	})
	recorder.Record(event)
}
