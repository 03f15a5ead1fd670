// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func allIds() []Id {
	return []Id{
		ModsDirNotFoundId,
		ConfigLoadFailedId,
		ManifestMissingId,
		ManifestMalformedId,
		InvalidNameId,
		NameDirectoryMismatchId,
		DuplicateDependencyId,
		DuplicateRegistrationId,
		DependencyUnsatisfiedId,
		ProcessingOrderCycleId,
		ResourceImportFailedId,
		GUIDCollisionId,
		PackageNotFoundId,
		ConsoleStartFailedId,
	}
}

func TestCatalogCompleteness(t *testing.T) {
	ids := allIds()
	for _, id := range ids {
		i := Get(id)
		if i == nil {
			t.Errorf("Get(%d) = nil", id)
			continue
		}
		if i.Id() != id {
			t.Errorf("Get(%d).Id() = %d", id, i.Id())
		}
		if strings.TrimSpace(string(i.MarkdownMsg())) == "" {
			t.Errorf("issue %d has no text", id)
		}
	}
	if got := len(Values()); got != len(ids) {
		t.Errorf("Values() has %d entries, want %d", got, len(ids))
	}
	if ModsDirNotFoundId != 1 {
		t.Errorf("first Id = %d, want 1", ModsDirNotFoundId)
	}
}

func TestValues_SortedById(t *testing.T) {
	values := Values()
	for i := 1; i < len(values); i++ {
		if values[i-1].Id() >= values[i].Id() {
			t.Fatalf("Values() not sorted at %d: %d then %d", i, values[i-1].Id(), values[i].Id())
		}
	}
}

func TestForCode(t *testing.T) {
	tests := []struct {
		code string
		want Id
		ok   bool
	}{
		{"manifest_missing", ManifestMissingId, true},
		{"name_directory_mismatch", NameDirectoryMismatchId, true},
		{"dependency_unsatisfied", DependencyUnsatisfiedId, true},
		{"guid_collision", GUIDCollisionId, true},
		{"processing_order_cycle", ProcessingOrderCycleId, true},
		{"package_disabled", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, ok := ForCode(tt.code)
			if ok != tt.ok {
				t.Fatalf("ForCode(%q) ok = %v, want %v", tt.code, ok, tt.ok)
			}
			if ok && got.Id() != tt.want {
				t.Errorf("ForCode(%q) = %d, want %d", tt.code, got.Id(), tt.want)
			}
			if ok && got.Code() != tt.code {
				t.Errorf("Code() = %q, want %q", got.Code(), tt.code)
			}
		})
	}
}

func TestIssue_Render(t *testing.T) {
	originalRender := render
	defer func() { render = originalRender }()

	var gotStyle string
	render = func(in, stylePath string) (string, error) {
		gotStyle = stylePath
		return in, nil
	}

	for _, i := range Values() {
		rendered, err := i.Render("notty")
		if err != nil {
			t.Errorf("issue %d failed to render: %v", i.Id(), err)
		}
		if rendered == "" {
			t.Errorf("issue %d rendered to empty string", i.Id())
		}
	}
	if gotStyle != "notty" {
		t.Errorf("style = %q, want notty", gotStyle)
	}
}

func TestIssue_RenderWithGlamour(t *testing.T) {
	rendered, err := Get(ManifestMissingId).Render("notty")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(rendered, "manifest.cue") {
		t.Errorf("Render() output lacks manifest.cue:\n%s", rendered)
	}
}
