package prompt

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/carlosrabelo/terminalnator/domain/entities"
)

// DefaultMaxBuffer bounds how much unmatched output is accepted before Overflow.
const DefaultMaxBuffer = 1 << 20

// Result is the classification of an output buffer
type Result int

const (
	Incomplete Result = iota
	Complete
	NeedMorePaging
	Overflow
)

func (r Result) String() string {
	switch r {
	case Complete:
		return "complete"
	case NeedMorePaging:
		return "need-more-paging"
	case Overflow:
		return "overflow"
	default:
		return "incomplete"
	}
}

// Rule matches the trailing line of a buffer.
type Rule struct {
	Pattern *regexp.Regexp
	Paging  bool
}

// Table is the prompt and error knowledge for one device family.
type Table struct {
	Rules  []Rule
	Errors []*regexp.Regexp
}

type familyTable struct {
	family entities.DeviceFamily
	table  Table
}

var (
	ansiEscape    = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
	backspaceRuns = regexp.MustCompile(`\x08+ *\x08*`)

	pagingRules = []Rule{
		{Pattern: regexp.MustCompile(`(?i)<-+ *more *-+> *$`), Paging: true},
		{Pattern: regexp.MustCompile(`(?i)-+ *more *-+ *$`), Paging: true},
		{Pattern: regexp.MustCompile(`(?i)press any key to continue.*$`), Paging: true},
	}

	ciscoConfigPrompt = regexp.MustCompile(`^[\w][\w.\-@/:~]*\(conf[\w.\-/]*\)# ?$`)
	ciscoPrompt       = regexp.MustCompile(`^[\w][\w.\-@/:()~]*[>#] ?$`)
	linePrompt        = regexp.MustCompile(`^(\[[^\]\n]+\]|[\w][\w.\-@/:()~]*)[>#$%] ?$`)

	commandErrHints = []string{
		"invalid input",
		"unknown command",
		"incomplete command",
		"ambiguous command",
		"unrecognized command",
		"invalid command",
		"syntax error",
		"cannot find command",
	}
	ciscoErrors = []*regexp.Regexp{
		regexp.MustCompile(`(?im)^\s*% *(invalid input|incomplete command|ambiguous command|unknown command|unrecognized command|invalid command)`),
		regexp.MustCompile(`(?im)^\s*% *(error|bad |access denied)`),
		regexp.MustCompile(`(?i)syntax error`),
		regexp.MustCompile(`(?i)cannot find command`),
	}
)

// DefaultTables returns the built-in family tables in detection order.
func DefaultTables() map[entities.DeviceFamily]Table {
	return map[entities.DeviceFamily]Table{
		entities.FamilyPrivilegedEscalate: {
			Rules:  append(append([]Rule{}, pagingRules...), Rule{Pattern: ciscoConfigPrompt}, Rule{Pattern: ciscoPrompt}),
			Errors: ciscoErrors,
		},
		entities.FamilyGenericLine: {
			Rules:  append(append([]Rule{}, pagingRules...), Rule{Pattern: linePrompt}),
			Errors: ciscoErrors,
		},
	}
}

// Matcher classifies device output per family
type Matcher struct {
	tables    []familyTable
	maxBuffer int
}

// Option configures the Matcher.
type Option func(*Matcher)

// WithMaxBuffer sets the size after which unmatched buffers overflow.
// Zero or negative disables the limit.
func WithMaxBuffer(n int) Option {
	return func(m *Matcher) {
		m.maxBuffer = n
	}
}

// WithTable registers or replaces the table of a family.
func WithTable(family entities.DeviceFamily, table Table) Option {
	return func(m *Matcher) {
		m.Register(family, table)
	}
}

// New creates a Matcher loaded with the built-in tables.
func New(opts ...Option) *Matcher {
	m := &Matcher{maxBuffer: DefaultMaxBuffer}
	defaults := DefaultTables()
	for _, family := range []entities.DeviceFamily{entities.FamilyPrivilegedEscalate, entities.FamilyGenericLine} {
		m.tables = append(m.tables, familyTable{family: family, table: defaults[family]})
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register adds a family table, or replaces it keeping its detection position.
func (m *Matcher) Register(family entities.DeviceFamily, table Table) {
	for i := range m.tables {
		if m.tables[i].family == family {
			m.tables[i].table = table
			return
		}
	}
	m.tables = append(m.tables, familyTable{family: family, table: table})
}

// MaxBuffer returns the configured overflow threshold.
func (m *Matcher) MaxBuffer() int {
	return m.maxBuffer
}

// Classify inspects the trailing line of buf using the family's table.
func (m *Matcher) Classify(buf []byte, family entities.DeviceFamily) Result {
	tail := TrailingLine(buf)
	if table, ok := m.lookup(family); ok {
		for _, rule := range table.Rules {
			if rule.Pattern.Match(tail) {
				if rule.Paging {
					return NeedMorePaging
				}
				return Complete
			}
		}
	} else if genericPrompt(tail) {
		return Complete
	}
	if m.maxBuffer > 0 && len(buf) > m.maxBuffer {
		return Overflow
	}
	return Incomplete
}

// DetectFamily returns the first family whose completion rules match the
// trailing line of banner, or FamilyUnknown.
func (m *Matcher) DetectFamily(banner []byte) entities.DeviceFamily {
	tail := TrailingLine(banner)
	for _, ft := range m.tables {
		if ft.family == entities.FamilyUnknown {
			continue
		}
		for _, rule := range ft.table.Rules {
			if !rule.Paging && rule.Pattern.Match(tail) {
				return ft.family
			}
		}
	}
	return entities.FamilyUnknown
}

// IsError reports whether command output matches the family's error patterns.
func (m *Matcher) IsError(output string, family entities.DeviceFamily) bool {
	if table, ok := m.lookup(family); ok && len(table.Errors) > 0 {
		for _, re := range table.Errors {
			if re.MatchString(output) {
				return true
			}
		}
		return false
	}
	lower := strings.ToLower(output)
	for _, keyword := range commandErrHints {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// IsPaging reports whether line is a pagination marker of any family.
func IsPaging(line []byte) bool {
	for _, rule := range pagingRules {
		if rule.Pattern.Match(line) {
			return true
		}
	}
	return false
}

func (m *Matcher) lookup(family entities.DeviceFamily) (Table, bool) {
	for _, ft := range m.tables {
		if ft.family == family {
			return ft.table, true
		}
	}
	return Table{}, false
}

// TrailingLine returns the last, possibly partial, line of buf with carriage
// return overwrites and ANSI escapes removed.
func TrailingLine(buf []byte) []byte {
	tail := buf
	if i := bytes.LastIndexByte(tail, '\n'); i >= 0 {
		tail = tail[i+1:]
	}
	tail = bytes.TrimRight(tail, "\r")
	if i := bytes.LastIndexByte(tail, '\r'); i >= 0 {
		tail = tail[i+1:]
	}
	if bytes.IndexByte(tail, 0x1b) >= 0 {
		tail = ansiEscape.ReplaceAll(tail, nil)
	}
	return tail
}

func genericPrompt(tail []byte) bool {
	if len(tail) == 0 {
		return false
	}
	switch tail[len(tail)-1] {
	case '#', '>', '$':
		return true
	}
	return false
}

// StripControl removes ANSI escapes and the backspace runs devices use to
// erase a pagination marker.
func StripControl(line []byte) []byte {
	if bytes.IndexByte(line, 0x1b) >= 0 {
		line = ansiEscape.ReplaceAll(line, nil)
	}
	if bytes.IndexByte(line, 0x08) >= 0 {
		line = backspaceRuns.ReplaceAll(line, nil)
	}
	return line
}
