package prompt

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carlosrabelo/terminalnator/domain/entities"
)

func TestClassify_KnownFamilies(t *testing.T) {
	m := New()
	tests := []struct {
		name     string
		family   entities.DeviceFamily
		buffer   string
		expected Result
	}{
		{"escalation privileged prompt", entities.FamilyPrivilegedEscalate, "show clock\r\n*10:00:01 UTC Mon\r\nR1#", Complete},
		{"escalation user prompt", entities.FamilyPrivilegedEscalate, "\r\nR1>", Complete},
		{"escalation config prompt", entities.FamilyPrivilegedEscalate, "interface Gi0/1\r\nR1(config-if)#", Complete},
		{"escalation prompt with trailing space", entities.FamilyPrivilegedEscalate, "\r\nsw-core.lab#  ", Incomplete},
		{"escalation paging", entities.FamilyPrivilegedEscalate, "line 1\r\nline 2\r\n --More-- ", NeedMorePaging},
		{"escalation mid output", entities.FamilyPrivilegedEscalate, "Building configuration...\r\n", Incomplete},
		{"generic line dollar prompt", entities.FamilyGenericLine, "uptime\n 10:00 up 1 day\n[op@box ~]$ ", Complete},
		{"generic line juniper prompt", entities.FamilyGenericLine, "\r\nop@mx1>", Complete},
		{"generic line angle paging", entities.FamilyGenericLine, "x\r\n<--- More --->", NeedMorePaging},
		{"generic line press any key", entities.FamilyGenericLine, "x\r\nPress any key to continue (Q to quit)", NeedMorePaging},
		{"prompt in the middle only", entities.FamilyGenericLine, "R1#\r\nstill printing", Incomplete},
		{"ansi noise before prompt", entities.FamilyPrivilegedEscalate, "\r\n\x1b[KR1#", Complete},
		{"carriage return overwrite", entities.FamilyPrivilegedEscalate, "\r\n --More-- \r        \rR1#", Complete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, m.Classify([]byte(tt.buffer), tt.family))
		})
	}
}

func TestClassify_NeverCompleteMidPattern(t *testing.T) {
	m := New()
	prompts := map[entities.DeviceFamily][]string{
		entities.FamilyPrivilegedEscalate: {"Router#", "Router>", "R1(config-if)#"},
		entities.FamilyGenericLine:        {"[admin@box ~]$", "op@mx1>", "switch#"},
	}

	for family, list := range prompts {
		for _, p := range list {
			full := "output line\r\n" + p
			require.Equal(t, Complete, m.Classify([]byte(full), family), "family %s prompt %q", family, p)
			for i := 1; i < len(p); i++ {
				partial := "output line\r\n" + p[:i]
				assert.NotEqual(t, Complete, m.Classify([]byte(partial), family),
					"family %s partial %q", family, p[:i])
			}
		}
	}
}

func TestClassify_UnknownFamilyHeuristic(t *testing.T) {
	m := New()
	tests := []struct {
		buffer   string
		expected Result
	}{
		{"\nhost#", Complete},
		{"\nhost>", Complete},
		{"\nuser@host:~$", Complete},
		{"\nhost# ", Incomplete},
		{"\nhost#\n", Incomplete},
		{"\n --More-- ", Incomplete},
		{"", Incomplete},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.buffer), func(t *testing.T) {
			result := m.Classify([]byte(tt.buffer), entities.FamilyUnknown)
			assert.Equal(t, tt.expected, result)
			assert.NotEqual(t, NeedMorePaging, result)
		})
	}
}

func TestClassify_Overflow(t *testing.T) {
	m := New(WithMaxBuffer(16))

	long := []byte(strings.Repeat("x", 32))
	assert.Equal(t, Overflow, m.Classify(long, entities.FamilyGenericLine))
	assert.Equal(t, Overflow, m.Classify(long, entities.FamilyUnknown))

	withPrompt := append([]byte(strings.Repeat("x", 32)+"\r\n"), []byte("R1#")...)
	assert.Equal(t, Complete, m.Classify(withPrompt, entities.FamilyPrivilegedEscalate))

	unlimited := New(WithMaxBuffer(0))
	assert.Equal(t, Incomplete, unlimited.Classify(long, entities.FamilyGenericLine))
}

func TestClassify_MalformedInput(t *testing.T) {
	m := New()
	inputs := [][]byte{
		nil,
		{},
		{0xff, 0xfe, 0x00},
		[]byte("\r\r\r"),
		[]byte("\x1b[\x1b[\x1b"),
		[]byte("\n\n\n"),
	}

	for _, in := range inputs {
		for _, family := range entities.Families() {
			assert.NotPanics(t, func() {
				assert.Equal(t, Incomplete, m.Classify(in, family))
			})
		}
	}
}

func TestRegister_OrderIsSignificant(t *testing.T) {
	family := entities.DeviceFamily("custom")
	pagingFirst := Table{Rules: []Rule{
		{Pattern: regexp.MustCompile(`:$`), Paging: true},
		{Pattern: regexp.MustCompile(`[\w]+:$`)},
	}}
	m := New(WithTable(family, pagingFirst))
	assert.Equal(t, NeedMorePaging, m.Classify([]byte("host:"), family))

	m.Register(family, Table{Rules: []Rule{
		{Pattern: regexp.MustCompile(`[\w]+:$`)},
		{Pattern: regexp.MustCompile(`:$`), Paging: true},
	}})
	assert.Equal(t, Complete, m.Classify([]byte("host:"), family))
}

func TestDetectFamily(t *testing.T) {
	m := New()
	assert.Equal(t, entities.FamilyPrivilegedEscalate, m.DetectFamily([]byte("\r\nUser Access Verification\r\n\r\nR1>")))
	assert.Equal(t, entities.FamilyPrivilegedEscalate, m.DetectFamily([]byte("\r\nnx-core#")))
	assert.Equal(t, entities.FamilyGenericLine, m.DetectFamily([]byte("Last login: today\n[op@jump ~]$")))
	assert.Equal(t, entities.FamilyUnknown, m.DetectFamily([]byte("Welcome\r\n")))
}

func TestIsError(t *testing.T) {
	m := New()
	invalid := "interface Gi0/99\r\n        ^\r\n% Invalid input detected at '^' marker.\r\n"

	assert.True(t, m.IsError(invalid, entities.FamilyPrivilegedEscalate))
	assert.True(t, m.IsError(invalid, entities.FamilyGenericLine))
	assert.True(t, m.IsError("% Incomplete command.", entities.FamilyGenericLine))
	assert.True(t, m.IsError("syntax error, expecting <command>", entities.FamilyGenericLine))
	assert.False(t, m.IsError("Building configuration...\r\n[OK]", entities.FamilyPrivilegedEscalate))

	assert.True(t, m.IsError("Unknown command: shwo", entities.FamilyUnknown))
	assert.False(t, m.IsError("uptime 10 days", entities.FamilyUnknown))
}

func TestTrailingLine(t *testing.T) {
	assert.Equal(t, "R1#", string(TrailingLine([]byte("a\r\nb\r\nR1#"))))
	assert.Equal(t, "", string(TrailingLine([]byte("a\r\n"))))
	assert.Equal(t, "R1#", string(TrailingLine([]byte(" --More-- \rR1#\r"))))
	assert.True(t, IsPaging([]byte(" --More-- ")))
	assert.False(t, IsPaging([]byte("R1#")))
}

func TestResult_String(t *testing.T) {
	assert.Equal(t, "complete", Complete.String())
	assert.Equal(t, "need-more-paging", NeedMorePaging.String())
	assert.Equal(t, "overflow", Overflow.String())
	assert.Equal(t, "incomplete", Incomplete.String())
}

func TestStripControl(t *testing.T) {
	assert.Equal(t, "R1#", string(StripControl([]byte("\x1b[32mR1#\x1b[0m"))))
	assert.Equal(t, "Gi1/0/1 up", string(StripControl([]byte("\x08\x08\x08\x08        \x08\x08\x08\x08Gi1/0/1 up"))))
	assert.Equal(t, "plain", string(StripControl([]byte("plain"))))
}
