package extract

import (
	"bytes"
	"strings"
	"testing"

	"github.com/haldin/scim_attribute_sync/internal/scim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	warns  []string
	errors []string
}

func (r *recordingReporter) Warn(tag, msg string)  { r.warns = append(r.warns, msg) }
func (r *recordingReporter) Error(tag, msg string) { r.errors = append(r.errors, msg) }

func userEvent(kind string, raw map[string]any) *scim.Event {
	return &scim.Event{Event: kind, Data: scim.EventData{Raw: raw}}
}

func TestExtractCustomNamespaces(t *testing.T) {
	ev := userEvent(scim.EventUserCreated, map[string]any{
		"schemas":   []any{scim.CoreUserSchema, "segment", "territory"},
		"userName":  "a@b.com",
		"segment":   map[string]any{"segment": "SMB"},
		"territory": map[string]any{"territory": "NAM"},
	})

	e := New(Config{})
	attrs := e.Extract(ev, "dir_1")

	assert.Equal(t, Attributes{"segment": "SMB", "territory": "NAM"}, attrs)
}

func TestExtractUnsupportedEventKind(t *testing.T) {
	rep := &recordingReporter{}
	ev := userEvent(scim.EventUserDeleted, map[string]any{
		"schemas": []any{scim.CoreUserSchema, "segment"},
		"segment": map[string]any{"segment": "SMB"},
	})

	e := New(Config{Reporter: rep})
	attrs := e.Extract(ev, "dir_1")

	assert.Empty(t, attrs)
	require.Len(t, rep.errors, 1)
	assert.Contains(t, rep.errors[0], "user.deleted")
}

func TestExtractMissingNamespaceSkipped(t *testing.T) {
	rep := &recordingReporter{}
	ev := userEvent(scim.EventUserUpdated, map[string]any{
		"schemas":   []any{"custom", "territory"},
		"territory": map[string]any{"territory": "EMEA"},
	})

	e := New(Config{Reporter: rep})
	attrs := e.Extract(ev, "dir_1")

	assert.Equal(t, Attributes{"territory": "EMEA"}, attrs)
	require.Len(t, rep.warns, 1)
	assert.Contains(t, rep.warns[0], "custom")
}

func TestExtractCoreIgnoreList(t *testing.T) {
	ev := userEvent(scim.EventUserCreated, map[string]any{
		"schemas":  []any{scim.CoreUserSchema},
		"title":    "VP",
		"nickName": "Bob",
		"userName": "a@b.com",
	})

	e := New(Config{})
	attrs := e.Extract(ev, "dir_1")

	assert.Equal(t, Attributes{"nickName": "Bob"}, attrs)
}

func TestExtractStringListValue(t *testing.T) {
	ev := userEvent(scim.EventUserCreated, map[string]any{
		"schemas": []any{"segment"},
		"segment": map[string]any{"segment": []any{"SMB", "Enterprise"}},
	})

	e := New(Config{})
	attrs := e.Extract(ev, "dir_1")

	assert.Equal(t, Attributes{"segment": []string{"SMB", "Enterprise"}}, attrs)
}

func TestExtractDropsUnsupportedShapes(t *testing.T) {
	rep := &recordingReporter{}
	ev := userEvent(scim.EventUserCreated, map[string]any{
		"schemas": []any{"segment"},
		"segment": map[string]any{
			"score":  float64(42),
			"flags":  map[string]any{"beta": "yes"},
			"mixed":  []any{"a", float64(1)},
			"onCall": true,
			"region": "west",
		},
	})

	e := New(Config{Reporter: rep})
	attrs := e.Extract(ev, "dir_1")

	assert.Equal(t, Attributes{"region": "west"}, attrs)
	// Shape drops are a known limitation, not a logged anomaly.
	assert.Empty(t, rep.warns)
	assert.Empty(t, rep.errors)
}

func TestExtractFalsyValuesWarn(t *testing.T) {
	rep := &recordingReporter{}
	ev := userEvent(scim.EventUserCreated, map[string]any{
		"schemas": []any{"segment"},
		"segment": map[string]any{
			"empty": "",
			"zero":  float64(0),
			"off":   false,
			"gone":  nil,
			"kept":  "v",
		},
	})

	e := New(Config{Reporter: rep})
	attrs := e.Extract(ev, "dir_1")

	assert.Equal(t, Attributes{"kept": "v"}, attrs)
	assert.Len(t, rep.warns, 4)
}

func TestExtractFirstWriteWins(t *testing.T) {
	rep := &recordingReporter{}
	// The core schema appears second; it must not win implicitly.
	ev := userEvent(scim.EventUserCreated, map[string]any{
		"schemas": []any{"segment", scim.CoreUserSchema},
		"segment": map[string]any{"team": "from-segment"},
		"team":    "from-core",
	})

	e := New(Config{Reporter: rep})
	attrs := e.Extract(ev, "dir_1")

	assert.Equal(t, Attributes{"team": "from-segment"}, attrs)
	require.Len(t, rep.warns, 1)
	assert.Contains(t, rep.warns[0], "team")
}

func TestExtractNonStringSchemaEntry(t *testing.T) {
	rep := &recordingReporter{}
	ev := userEvent(scim.EventUserCreated, map[string]any{
		"schemas":   []any{float64(7), "territory"},
		"territory": map[string]any{"territory": "APAC"},
	})

	e := New(Config{Reporter: rep})
	attrs := e.Extract(ev, "dir_1")

	assert.Equal(t, Attributes{"territory": "APAC"}, attrs)
	require.Len(t, rep.errors, 1)
}

func TestExtractTruthyNonObjectNamespace(t *testing.T) {
	rep := &recordingReporter{}
	ev := userEvent(scim.EventUserCreated, map[string]any{
		"schemas": []any{"custom"},
		"custom":  "not-an-object",
	})

	e := New(Config{Reporter: rep})
	attrs := e.Extract(ev, "dir_1")

	assert.Empty(t, attrs)
	require.Len(t, rep.warns, 1)
	assert.Contains(t, rep.warns[0], "custom")
}

func TestExtractNilEvent(t *testing.T) {
	rep := &recordingReporter{}
	e := New(Config{Reporter: rep})

	attrs := e.Extract(nil, "dir_1")

	assert.NotNil(t, attrs)
	assert.Empty(t, attrs)
	assert.Len(t, rep.errors, 1)
}

func TestExtractIdempotent(t *testing.T) {
	ev := userEvent(scim.EventUserCreated, map[string]any{
		"schemas":   []any{scim.CoreUserSchema, "segment"},
		"nickName":  "Bob",
		"segment":   map[string]any{"segment": []any{"SMB"}},
		"userName":  "a@b.com",
		"territory": "unlisted", // root field not named in any schema entry
	})

	e := New(Config{})
	first := e.Extract(ev, "dir_1")
	second := e.Extract(ev, "dir_1")

	assert.Equal(t, first, second)
}

func TestExtractCustomIgnoreList(t *testing.T) {
	ev := userEvent(scim.EventUserCreated, map[string]any{
		"schemas":  []any{scim.CoreUserSchema},
		"title":    "VP",
		"nickName": "Bob",
	})

	e := New(Config{IgnoredCoreFields: []string{"nickName"}})
	attrs := e.Extract(ev, "dir_1")

	// With the override in place, title is fair game and nickName is not.
	assert.Equal(t, Attributes{"title": "VP"}, attrs)
}

func TestExtractIgnoreListOnlyAppliesToCore(t *testing.T) {
	ev := userEvent(scim.EventUserCreated, map[string]any{
		"schemas": []any{"extra"},
		"extra":   map[string]any{"title": "Head of Ops"},
	})

	e := New(Config{})
	attrs := e.Extract(ev, "dir_1")

	assert.Equal(t, Attributes{"title": "Head of Ops"}, attrs)
}

func TestExtractVerboseDump(t *testing.T) {
	var sink bytes.Buffer
	ev := userEvent(scim.EventUserCreated, map[string]any{
		"schemas": []any{"segment"},
		"segment": map[string]any{"segment": "SMB"},
	})

	e := New(Config{
		VerboseDirectories: []string{"dir_loud"},
		DiagnosticSink:     &sink,
	})

	e.Extract(ev, "dir_quiet")
	assert.Zero(t, sink.Len())

	e.Extract(ev, "dir_loud")
	out := sink.String()
	assert.True(t, strings.Contains(out, "dir_loud"), "dump names the directory: %q", out)
	assert.Contains(t, out, `"segment":"SMB"`)
}
