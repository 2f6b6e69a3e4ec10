package option

import "testing"

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func TestMergeHigherTierWins(t *testing.T) {
	defaults := Options{Model: strp("default-model")}
	appConfig := Options{Model: strp("app-model")}
	session := Options{Model: strp("session-model")}
	query := Options{Model: strp("query-model")}

	out := Merge(query, session, appConfig, defaults)
	if *out.Model != "query-model" {
		t.Fatalf("Model=%q, want query-model", *out.Model)
	}
}

func TestMergeFallsThroughWhenHigherTiersUnset(t *testing.T) {
	defaults := Options{Model: strp("default-model"), MaxTurns: intp(3)}
	appConfig := Options{MaxTurns: intp(7)}

	out := Merge(Options{}, Options{}, appConfig, defaults)
	if *out.Model != "default-model" {
		t.Fatalf("Model=%q, want default-model (no override set)", *out.Model)
	}
	if *out.MaxTurns != 7 {
		t.Fatalf("MaxTurns=%d, want 7 (appConfig overrides schema default)", *out.MaxTurns)
	}
}

func TestMergeSlicesAreAllOrNothingNotShallowMerged(t *testing.T) {
	defaults := Options{AllowedTools: []string{"Read", "Grep"}}
	query := Options{AllowedTools: []string{"Bash"}}

	out := Merge(query, Options{}, Options{}, defaults)
	if len(out.AllowedTools) != 1 || out.AllowedTools[0] != "Bash" {
		t.Fatalf("AllowedTools=%v, want exactly [Bash] (query replaces wholesale, no merge with defaults)", out.AllowedTools)
	}
}

func TestMergeEachTierIndependently(t *testing.T) {
	defaults := Options{
		Model:          strp("default-model"),
		MaxTurns:       intp(1),
		PermissionMode: func() *PermissionMode { m := PermissionModeDefault; return &m }(),
	}
	appConfig := Options{MaxTurns: intp(2)}
	session := Options{SystemPrompt: strp("session prompt")}
	query := Options{Model: strp("query-model")}

	out := Merge(query, session, appConfig, defaults)
	if *out.Model != "query-model" {
		t.Fatalf("Model=%q", *out.Model)
	}
	if *out.MaxTurns != 2 {
		t.Fatalf("MaxTurns=%d, want 2 (from appConfig, untouched by session/query)", *out.MaxTurns)
	}
	if *out.SystemPrompt != "session prompt" {
		t.Fatalf("SystemPrompt=%q", *out.SystemPrompt)
	}
	if *out.PermissionMode != PermissionModeDefault {
		t.Fatalf("PermissionMode=%q, want default (untouched by any override tier)", *out.PermissionMode)
	}
}

func TestMergeAllOptionsUnsetYieldsSchemaDefaults(t *testing.T) {
	defaults := Defaults()
	out := Merge(Options{}, Options{}, Options{}, defaults)
	if out.MaxBufferSize == nil || *out.MaxBufferSize != *defaults.MaxBufferSize {
		t.Fatalf("expected schema default MaxBufferSize to survive an all-empty merge")
	}
}
