// Package extract turns a directory-sync event's SCIM document into the
// organization-defined custom attributes it carries. The document's
// "schemas" list names the namespaces to scan: the core user schema
// contributes root-level fields minus the structural core fields, every
// other entry names a sub-object holding custom fields. Values must be
// strings or string lists; everything else is dropped. The first
// namespace to write an attribute name wins.
package extract

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/haldin/scim_attribute_sync/internal/scim"
)

const logTag = "extract"

// Attributes maps attribute name to a string or []string value.
type Attributes map[string]any

// Config assembles an Extractor's collaborators. Zero values get safe
// defaults: the full core ignore list, a nop reporter, stdout as the
// diagnostic sink and no verbose directories.
type Config struct {
	// IgnoredCoreFields overrides scim.CoreUserFields when non-nil.
	IgnoredCoreFields []string

	// VerboseDirectories lists directory IDs whose full extraction
	// result is dumped to the diagnostic sink.
	VerboseDirectories []string

	Reporter Reporter

	// DiagnosticSink receives the verbose dumps. Distinct from the
	// Reporter on purpose: dumps are operator-facing output, not logs.
	DiagnosticSink io.Writer
}

// Extractor is safe for concurrent use; all per-call state is local.
type Extractor struct {
	ignore  map[string]struct{}
	verbose map[string]struct{}
	rep     Reporter
	sink    io.Writer
}

// New builds an Extractor from cfg.
func New(cfg Config) *Extractor {
	ignored := cfg.IgnoredCoreFields
	if ignored == nil {
		ignored = scim.CoreUserFields()
	}
	ignore := make(map[string]struct{}, len(ignored))
	for _, f := range ignored {
		ignore[f] = struct{}{}
	}

	verbose := make(map[string]struct{}, len(cfg.VerboseDirectories))
	for _, id := range cfg.VerboseDirectories {
		verbose[id] = struct{}{}
	}

	rep := cfg.Reporter
	if rep == nil {
		rep = NopReporter{}
	}
	sink := cfg.DiagnosticSink
	if sink == nil {
		sink = os.Stdout
	}

	return &Extractor{ignore: ignore, verbose: verbose, rep: rep, sink: sink}
}

// Extract collects the custom attributes from ev's SCIM document.
// directoryID is used only for the verbose diagnostic dump. The returned
// map is possibly empty, never nil, and Extract never returns an error:
// malformed input degrades to warnings and skipped fields.
func (e *Extractor) Extract(ev *scim.Event, directoryID string) Attributes {
	attrs := Attributes{}
	if ev == nil {
		e.rep.Error(logTag, "nil event")
		return attrs
	}
	if !scim.SupportedEvent(ev.Event) {
		e.rep.Error(logTag, fmt.Sprintf("unsupported event kind %q", ev.Event))
		return attrs
	}

	raw := ev.Data.Raw
	for _, entry := range schemasOf(raw) {
		name, ok := entry.(string)
		if !ok {
			e.rep.Error(logTag, fmt.Sprintf("schema entry %v is not a string", entry))
			continue
		}

		if name == scim.CoreUserSchema {
			e.collect(attrs, coreFields(raw), e.ignore)
			continue
		}

		sub, present := raw[name]
		if !present || isFalsy(sub) {
			e.rep.Warn(logTag, fmt.Sprintf("schema %q has no data", name))
			continue
		}
		fields, ok := sub.(map[string]any)
		if !ok {
			e.rep.Warn(logTag, fmt.Sprintf("schema %q is not an object", name))
			continue
		}
		e.collect(attrs, fields, nil)
	}

	if _, ok := e.verbose[directoryID]; ok {
		e.dump(directoryID, attrs)
	}
	return attrs
}

// collect runs one namespace's fields through the admission checks and
// writes the survivors into attrs. Order of checks matters: a falsy value
// warns before the type check ever sees it, and a duplicate name warns
// even if the new value would have been rejected anyway.
func (e *Extractor) collect(attrs Attributes, fields map[string]any, ignore map[string]struct{}) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, skip := ignore[name]; skip {
			continue
		}
		value := fields[name]
		if isFalsy(value) {
			e.rep.Warn(logTag, fmt.Sprintf("attribute %q has no value", name))
			continue
		}
		if _, exists := attrs[name]; exists {
			e.rep.Warn(logTag, fmt.Sprintf("attribute %q already set, keeping first value", name))
			continue
		}
		normalized, kind := Classify(value)
		if kind == KindInvalid {
			// Known limitation: non-string shapes are dropped without a log.
			continue
		}
		attrs[name] = normalized
	}
}

// dump writes the full result for a verbose directory to the sink.
func (e *Extractor) dump(directoryID string, attrs Attributes) {
	b, err := json.Marshal(attrs)
	if err != nil {
		e.rep.Warn(logTag, fmt.Sprintf("could not serialize attributes for directory %s", directoryID))
		return
	}
	fmt.Fprintf(e.sink, "directory %s custom attributes: %s\n", directoryID, b)
}

func schemasOf(raw map[string]any) []any {
	list, _ := raw["schemas"].([]any)
	return list
}

// coreFields is the candidate set for the core namespace: everything at
// the document root except the schemas list itself.
func coreFields(raw map[string]any) map[string]any {
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "schemas" {
			continue
		}
		fields[k] = v
	}
	return fields
}
