// Package hooks implements the hook registry & dispatch component
// (spec.md §4.E): assigning callback ids, building the initialize-handshake
// wire format, and translating caller callback return values into control
// protocol responses with exception containment.
package hooks

import (
	"fmt"
	"sort"

	"github.com/gobwas/glob"

	"github.com/samsaffron/claude-agent-sdk-go/option"
)

// matcherEntry pairs a compiled glob (nil for "matches everything") with
// the callback ids it guards, for local matching (see MatchingCallbackIDs).
type matcherEntry struct {
	pattern glob.Glob
	ids     []string
}

// Registry is the opaque construction result: assigned callback ids, the
// permission callback slot, and the wire-format object for the initialize
// request.
type Registry struct {
	callbacks    map[string]option.HookCallback
	permissionCB option.HookCallback
	wireHooks    map[string]any
	matchers     map[string][]matcherEntry // event name -> matcher entries, in declaration order
}

// Build assigns sequential string ids ("hook_0", "hook_1", …) across every
// callback in every event's matcher list, in iteration order, then stores
// the permission callback in its own slot (spec.md §4.E construction).
// Event names are iterated in sorted order so id assignment is
// deterministic across runs of the same configuration.
func Build(events map[string][]option.HookMatcher, canUseTool option.HookCallback) *Registry {
	r := &Registry{
		callbacks:    make(map[string]option.HookCallback),
		permissionCB: canUseTool,
		matchers:     make(map[string][]matcherEntry),
	}

	eventNames := make([]string, 0, len(events))
	for name := range events {
		eventNames = append(eventNames, name)
	}
	sort.Strings(eventNames)

	nextID := 0
	assign := func(cb option.HookCallback) string {
		id := fmt.Sprintf("hook_%d", nextID)
		nextID++
		r.callbacks[id] = cb
		return id
	}

	wireEvents := make(map[string]any, len(eventNames))
	for _, name := range eventNames {
		matchers := events[name]
		wireMatchers := make([]map[string]any, 0, len(matchers))
		for _, m := range matchers {
			ids := make([]string, 0, len(m.Callbacks))
			for _, cb := range m.Callbacks {
				ids = append(ids, assign(cb))
			}
			wm := map[string]any{
				"matcher":         nullableString(m.Matcher),
				"hookCallbackIds": ids,
			}
			if m.Timeout > 0 {
				wm["timeout"] = m.Timeout.Seconds()
			}
			wireMatchers = append(wireMatchers, wm)

			var compiled glob.Glob
			if m.Matcher != "" {
				// option.Validate rejects malformed patterns before they
				// reach Build, so an error here would mean a caller built
				// a Registry directly without validating first; fall back
				// to "never matches" rather than panicking: an
				// uncompilable matcher gets no local entry at all.
				var err error
				if compiled, err = glob.Compile(m.Matcher); err != nil {
					continue
				}
			}
			r.matchers[name] = append(r.matchers[name], matcherEntry{pattern: compiled, ids: ids})
		}
		wireEvents[name] = wireMatchers
	}

	if len(wireEvents) > 0 || canUseTool != nil {
		r.wireHooks = wireEvents
	}

	return r
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// WireHooks returns the hooks payload for the initialize request, or nil
// if there is nothing to send (spec.md §4.E: "If neither hooks nor
// permission callback are present, the wire format is absent").
func (r *Registry) WireHooks() map[string]any {
	return r.wireHooks
}

// HasPermissionCallback reports whether a can_use_tool callback was
// configured.
func (r *Registry) HasPermissionCallback() bool {
	return r.permissionCB != nil
}

// Lookup returns the callback registered under id.
func (r *Registry) Lookup(id string) (option.HookCallback, bool) {
	cb, ok := r.callbacks[id]
	return cb, ok
}

// PermissionCallback returns the registered can_use_tool callback, if any.
func (r *Registry) PermissionCallback() option.HookCallback {
	return r.permissionCB
}

// MatchingCallbackIDs returns the hook callback ids registered for event
// whose matcher glob matches toolName (an empty matcher matches every
// tool). The CLI performs this same matching before ever issuing a
// hook_callback control request, so this is a local mirror — useful for
// an adapter that wants to pre-filter without a round trip (the remote
// adapter, or tests driving the registry directly).
func (r *Registry) MatchingCallbackIDs(event, toolName string) []string {
	var ids []string
	for _, entry := range r.matchers[event] {
		if entry.pattern == nil || entry.pattern.Match(toolName) {
			ids = append(ids, entry.ids...)
		}
	}
	return ids
}
