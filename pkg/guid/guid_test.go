// SPDX-License-Identifier: MPL-2.0

package guid

import "testing"

func TestPackageIDOf_CaseInsensitive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
	}{
		{"mymod", "MyMod"},
		{"core.assets", "CORE.ASSETS"},
		{"a-b_c", "A-B_C"},
	}

	for _, tt := range tests {
		t.Run(tt.a, func(t *testing.T) {
			t.Parallel()
			if PackageIDOf(tt.a) != PackageIDOf(tt.b) {
				t.Errorf("PackageIDOf(%q) != PackageIDOf(%q)", tt.a, tt.b)
			}
		})
	}
}

func TestPackageIDOf_Deterministic(t *testing.T) {
	t.Parallel()

	first := PackageIDOf("alpha")
	for range 10 {
		if got := PackageIDOf("alpha"); got != first {
			t.Fatalf("PackageIDOf(alpha) = %s, want %s", got, first)
		}
	}
	if PackageIDOf("alpha") == PackageIDOf("beta") {
		t.Error("PackageIDOf(alpha) == PackageIDOf(beta)")
	}
}

func TestResourceGUIDOf_Packing(t *testing.T) {
	t.Parallel()

	id := PackageIDOf("alpha")
	g := ResourceGUIDOf(id, "textures/wall.png")

	if g.Package() != id {
		t.Errorf("Package() = %s, want %s", g.Package(), id)
	}
	if g.PathHash() != hash32("textures/wall.png") {
		t.Errorf("PathHash() = %08x, want %08x", g.PathHash(), hash32("textures/wall.png"))
	}
}

func TestResourceGUIDOf_Normalization(t *testing.T) {
	t.Parallel()

	id := PackageIDOf("alpha")
	want := ResourceGUIDOf(id, "textures/wall.png")

	tests := []string{
		"Textures/Wall.png",
		"./textures/wall.png",
		"/textures/wall.png",
		"textures\\wall.png",
		"textures//wall.png",
		"textures/sub/../wall.png",
	}

	for _, p := range tests {
		t.Run(p, func(t *testing.T) {
			t.Parallel()
			if got := ResourceGUIDOf(id, p); got != want {
				t.Errorf("ResourceGUIDOf(%q) = %s, want %s", p, got, want)
			}
		})
	}
}

func TestResourceGUIDOf_DistinctPackages(t *testing.T) {
	t.Parallel()

	a := ResourceGUIDOf(PackageIDOf("alpha"), "shared.material")
	b := ResourceGUIDOf(PackageIDOf("beta"), "shared.material")
	if a == b {
		t.Error("same path in different packages produced the same GUID")
	}
	if a.PathHash() != b.PathHash() {
		t.Error("same path produced different path hashes")
	}
}

func TestParseResourceGUID(t *testing.T) {
	t.Parallel()

	g := ResourceGUIDOf(PackageIDOf("alpha"), "a.txt")

	tests := []struct {
		name    string
		input   string
		want    ResourceGUID
		wantErr bool
	}{
		{"round trip", g.String(), g, false},
		{"hex prefix", "0x" + g.String(), g, false},
		{"short", "ff", 0xff, false},
		{"empty", "", 0, true},
		{"not hex", "zz", 0, true},
		{"too long", "00000000000000000", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseResourceGUID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseResourceGUID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseResourceGUID(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestIDString(t *testing.T) {
	t.Parallel()

	if got := PackageID(0xab).String(); got != "000000ab" {
		t.Errorf("PackageID.String() = %q, want %q", got, "000000ab")
	}
	if got := ResourceGUID(0xab).String(); got != "00000000000000ab" {
		t.Errorf("ResourceGUID.String() = %q, want %q", got, "00000000000000ab")
	}
}
