// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/modhost/modhost/internal/decoders"
	"github.com/modhost/modhost/internal/registry"
	"github.com/modhost/modhost/internal/testutil"
	"github.com/modhost/modhost/internal/testutil/packtest"
	"github.com/modhost/modhost/pkg/guid"
	"github.com/modhost/modhost/pkg/resource"
)

func newTestEngine(t *testing.T, root string, opts Options) *Engine {
	t.Helper()
	opts.Root = root
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(registry.New(), decoders.NewDispatcher(), opts)
}

func pngData(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.String()
}

func mustStart(t *testing.T, e *Engine) Report {
	t.Helper()
	rep, err := e.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return rep
}

func hasCode(rep Report, code string) bool {
	return slices.ContainsFunc(rep.Diagnostics, func(d Diagnostic) bool { return d.Code == code })
}

func recordOf(t *testing.T, e *Engine, pkg, relPath string) *resource.Record {
	t.Helper()
	rec, ok := e.Resource(guid.ResourceGUIDOf(guid.PackageIDOf(pkg), relPath))
	if !ok {
		t.Fatalf("resource %s:%s not loaded", pkg, relPath)
	}
	return rec
}

// caseSensitive reports whether the file system under dir distinguishes
// names that differ only in case.
func caseSensitive(t *testing.T, dir string) bool {
	t.Helper()
	testutil.MustWriteFile(t, filepath.Join(dir, "casecheck"), "")
	_, err := os.Stat(filepath.Join(dir, "CASECHECK"))
	testutil.MustRemoveAll(t, filepath.Join(dir, "casecheck"))
	return err != nil
}

func TestStart_ImportsResources(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	packtest.Write(t, root, "core",
		packtest.WithFile("readme.txt", "hello"),
		packtest.WithFile("data/units.yaml", "orc: {hp: 10}\n"),
		packtest.WithFile("textures/wall.png", pngData(t)),
		packtest.WithFile("empty.txt", ""),
		packtest.WithFile("notes.xyz", "unknown kind"),
		packtest.WithFile(".hidden.txt", "hidden"),
		packtest.WithFile(".git/config.txt", "hidden dir"),
		packtest.WithFile("sub/manifest.json", `{"nested": true}`),
	)

	e := newTestEngine(t, root, Options{})
	rep := mustStart(t, e)

	if !slices.Equal(rep.Loaded, []string{"core"}) {
		t.Errorf("Loaded = %v, want [core]", rep.Loaded)
	}
	got := rep.Totals()
	if got.Imported != 4 || got.Failed != 0 || got.Skipped != 1 {
		t.Errorf("Totals() = %+v, want 4 imported, 0 failed, 1 skipped", got)
	}
	if rep.HasErrors() {
		t.Errorf("unexpected errors: %+v", rep.Diagnostics)
	}

	if tex, ok := recordOf(t, e, "core", "textures/wall.png").Payload().(*decoders.Texture); !ok || tex.Width != 2 {
		t.Errorf("wall.png payload = %#v", tex)
	}
	if v := recordOf(t, e, "core", "readme.txt").Payload(); v != "hello" {
		t.Errorf("readme.txt payload = %v", v)
	}
	recordOf(t, e, "core", "sub/manifest.json")

	for _, rel := range []string{"empty.txt", "notes.xyz", ".hidden.txt", ".git/config.txt", "manifest.cue"} {
		if _, ok := e.Resource(guid.ResourceGUIDOf(guid.PackageIDOf("core"), rel)); ok {
			t.Errorf("%s should not be in the resource table", rel)
		}
	}
}

func TestImportAll_SecondPassImportsNothing(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	packtest.Write(t, root, "core", packtest.WithFile("a.txt", "a"), packtest.WithFile("b.txt", "b"))

	e := newTestEngine(t, root, Options{})
	mustStart(t, e)

	rep := e.ImportAll(context.Background())
	if got := rep.Totals(); got != (ImportStats{}) {
		t.Errorf("second ImportAll() totals = %+v, want zero", got)
	}
	d, err := e.Describe("core")
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if d.ResourceCount != 2 {
		t.Errorf("ResourceCount = %d, want 2", d.ResourceCount)
	}
}

func TestImport_FailureIsLocalToResource(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	packtest.Write(t, root, "core",
		packtest.WithFile("good.txt", "ok"),
		packtest.WithFile("bad.png", "not a png"),
		packtest.WithFile("bad.material", `glow: 1`),
	)

	e := newTestEngine(t, root, Options{})
	rep := mustStart(t, e)

	got := rep.Totals()
	if got.Imported != 1 || got.Failed != 2 {
		t.Errorf("Totals() = %+v, want 1 imported, 2 failed", got)
	}
	if !hasCode(rep, CodeResourceImportFailed) {
		t.Errorf("missing %s diagnostic", CodeResourceImportFailed)
	}
	d, _ := e.Describe("core")
	if d.ResourceCount != 1 {
		t.Errorf("ResourceCount = %d, want 1", d.ResourceCount)
	}
}

func TestImport_FailedTargetIsNotRetriedByReferrers(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	packtest.Write(t, root, "core",
		packtest.WithFile("bad.material", `glow: 1`),
		packtest.WithFile("z1.mesh", `vertices: [], material: "bad.material"`),
		packtest.WithFile("z2.mesh", `vertices: [], material: "bad.material"`),
	)

	e := newTestEngine(t, root, Options{})
	rep := mustStart(t, e)

	if got := rep.Totals(); got.Imported != 0 || got.Failed != 3 {
		t.Errorf("Totals() = %+v, want 3 failed", got)
	}

	var materialFailures, rejectedRefs int
	for _, d := range rep.Diagnostics {
		if d.Code != CodeResourceImportFailed {
			continue
		}
		switch filepath.Base(d.Path) {
		case "bad.material":
			materialFailures++
		case "z1.mesh", "z2.mesh":
			if errors.Is(d.Cause, ErrResourceRejected) {
				rejectedRefs++
			}
		}
	}
	if materialFailures != 1 {
		t.Errorf("bad.material reported %d times, want once: %+v", materialFailures, rep.Diagnostics)
	}
	if rejectedRefs != 2 {
		t.Errorf("%d mesh failures wrap ErrResourceRejected, want 2: %+v", rejectedRefs, rep.Diagnostics)
	}
}

func TestImportAll_FailuresAreNotRetriedUntilReload(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	packtest.Write(t, root, "core",
		packtest.WithFile("good.txt", "ok"),
		packtest.WithFile("bad.png", "not a png"),
		packtest.WithFile("empty.txt", ""),
	)

	e := newTestEngine(t, root, Options{})
	ctx := context.Background()
	first := mustStart(t, e)
	if got := first.Totals(); got.Imported != 1 || got.Failed != 1 || got.Skipped != 1 {
		t.Fatalf("Start() totals = %+v, want 1 imported, 1 failed, 1 skipped", got)
	}

	again := e.ImportAll(ctx)
	if got := again.Totals(); got != (ImportStats{}) {
		t.Errorf("second ImportAll() totals = %+v, want zero", got)
	}
	if len(again.Diagnostics) != 0 {
		t.Errorf("second ImportAll() diagnostics = %+v, want none", again.Diagnostics)
	}

	reloaded, err := e.ReloadPackage(ctx, "core")
	if err != nil {
		t.Fatalf("ReloadPackage() error = %v", err)
	}
	if got := reloaded.Totals(); got.Imported != 1 || got.Failed != 1 || got.Skipped != 1 {
		t.Errorf("ReloadPackage() totals = %+v, want the failures retried", got)
	}
}

func TestDiscovery_GUIDCollision(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if !caseSensitive(t, root) {
		t.Skip("file system is case-insensitive")
	}
	packtest.Write(t, root, "core",
		packtest.WithFile("Textures/Wall.txt", "first"),
		packtest.WithFile("textures/wall.txt", "second"),
	)

	e := newTestEngine(t, root, Options{})
	rep := mustStart(t, e)

	if !hasCode(rep, CodeGUIDCollision) {
		t.Fatalf("missing %s diagnostic: %+v", CodeGUIDCollision, rep.Diagnostics)
	}
	got := rep.Totals()
	if got.Imported != 1 || got.Failed != 1 {
		t.Errorf("Totals() = %+v, want 1 imported, 1 failed", got)
	}
	rec := recordOf(t, e, "core", "textures/wall.txt")
	if rec.Path != "Textures/Wall.txt" || rec.Payload() != "first" {
		t.Errorf("record = %s (%v), want the first path to keep the GUID", rec.Path, rec.Payload())
	}
}

func TestSharedMaterial_LivesUntilLastHolder(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	packtest.Write(t, root, "alpha",
		packtest.WithFile("shared.material", `shader: "lit"`),
		packtest.WithFile("a.mesh", `vertices: [], material: "shared.material"`),
	)
	packtest.Write(t, root, "beta",
		packtest.WithProcessAfter("alpha"),
		packtest.WithFile("b.mesh", `vertices: [], material: "alpha:shared.material"`),
	)

	e := newTestEngine(t, root, Options{})
	ctx := context.Background()
	mustStart(t, e)

	material := recordOf(t, e, "alpha", "shared.material").Handle()
	if material.Refs() != 3 {
		t.Fatalf("material refs = %d, want 3 (record and two meshes)", material.Refs())
	}
	betaMesh := recordOf(t, e, "beta", "b.mesh").Payload().(*decoders.Mesh)
	if betaMesh.Material != material {
		t.Fatal("beta mesh does not hold the shared material")
	}

	if _, err := e.UnloadPackage(ctx, "alpha"); err != nil {
		t.Fatalf("UnloadPackage(alpha) error = %v", err)
	}
	if material.Destroyed() {
		t.Fatal("material released while beta still references it")
	}
	if m, ok := betaMesh.Material.Value().(*decoders.Material); !ok || m.Shader != "lit" {
		t.Errorf("beta material = %#v", betaMesh.Material.Value())
	}

	if _, err := e.UnloadPackage(ctx, "beta"); err != nil {
		t.Fatalf("UnloadPackage(beta) error = %v", err)
	}
	if !material.Destroyed() {
		t.Errorf("material still alive after both holders unloaded (refs %d)", material.Refs())
	}
}

func TestResolve_DiscoversAcrossPackagesOnDemand(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	// aaa sorts first and has no ordering hint, so zzz is not yet discovered
	// when aaa's mesh resolves its material.
	packtest.Write(t, root, "aaa",
		packtest.WithFile("m.mesh", `vertices: [], material: "zzz:mats/stone.material"`),
	)
	packtest.Write(t, root, "zzz",
		packtest.WithFile("mats/stone.material", `metallic: 0.5`),
	)

	e := newTestEngine(t, root, Options{})
	rep := mustStart(t, e)

	got := rep.Totals()
	if got.Imported != 2 || got.Failed != 0 {
		t.Fatalf("Totals() = %+v, want 2 imported: %+v", got, rep.Diagnostics)
	}
	mat := recordOf(t, e, "zzz", "mats/stone.material").Handle()
	if mat.Refs() != 2 {
		t.Errorf("material refs = %d, want 2", mat.Refs())
	}
	d, _ := e.Describe("zzz")
	if d.ResourceCount != 1 {
		t.Errorf("zzz ResourceCount = %d, want 1 (no duplicate from discovery)", d.ResourceCount)
	}
}

func TestResolve_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		files map[string]string
		want  error
	}{
		{
			name: "prefab cycle",
			files: map[string]string{
				"a.prefab": `children: ["b.prefab"]`,
				"b.prefab": `children: ["a.prefab"]`,
			},
			want: ErrCircularReference,
		},
		{
			name:  "self reference",
			files: map[string]string{"a.prefab": `children: ["a.prefab"]`},
			want:  ErrCircularReference,
		},
		{
			name:  "missing target",
			files: map[string]string{"a.mesh": `vertices: [], material: "nope.material"`},
			want:  ErrResourceNotFound,
		},
		{
			name:  "unloaded package",
			files: map[string]string{"a.mesh": `vertices: [], material: "ghost:nope.material"`},
			want:  ErrResourceNotFound,
		},
		{
			name:  "malformed reference",
			files: map[string]string{"a.mesh": `vertices: [], material: ":nope.material"`},
			want:  ErrInvalidReference,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := t.TempDir()
			opts := []packtest.Option{}
			for p, c := range tt.files {
				opts = append(opts, packtest.WithFile(p, c))
			}
			packtest.Write(t, root, "core", opts...)

			e := newTestEngine(t, root, Options{})
			rep := mustStart(t, e)

			got := rep.Totals()
			if got.Imported != 0 || got.Failed != len(tt.files) {
				t.Errorf("Totals() = %+v, want %d failed", got, len(tt.files))
			}
			if !slices.ContainsFunc(rep.Diagnostics, func(d Diagnostic) bool { return errors.Is(d.Cause, tt.want) }) {
				t.Errorf("no diagnostic wraps %v: %+v", tt.want, rep.Diagnostics)
			}
		})
	}
}

func TestFailedReference_ReleasesAcquiredHandles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	packtest.Write(t, root, "core",
		packtest.WithFile("a.material", `shader: "lit"`),
		// The second child is missing, so the first must be given back.
		packtest.WithFile("p.prefab", `children: ["m.mesh", "missing.mesh"]`),
		packtest.WithFile("m.mesh", `vertices: [], material: "a.material"`),
	)

	e := newTestEngine(t, root, Options{})
	mustStart(t, e)

	mesh := recordOf(t, e, "core", "m.mesh").Handle()
	if mesh.Refs() != 1 {
		t.Errorf("mesh refs = %d, want 1 after the prefab failed", mesh.Refs())
	}
	if mat := recordOf(t, e, "core", "a.material").Handle(); mat.Refs() != 2 {
		t.Errorf("material refs = %d, want 2", mat.Refs())
	}
}

func TestLoadAll_DependencyCascade(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	packtest.Write(t, root, "bar", packtest.WithVersion("0.5.0"))
	packtest.Write(t, root, "foo", packtest.WithDependency("bar", "1.0.0"))
	packtest.Write(t, root, "baz", packtest.WithDependency("foo", "1.0.0"))

	e := newTestEngine(t, root, Options{})
	rep, err := e.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}

	if got := e.Sequence(); !slices.Equal(got, []string{"bar"}) {
		t.Errorf("Sequence() = %v, want [bar]", got)
	}
	var removed []string
	for _, rm := range rep.Removed {
		removed = append(removed, string(rm.Package.Name))
	}
	slices.Sort(removed)
	if !slices.Equal(removed, []string{"baz", "foo"}) {
		t.Errorf("Removed = %v, want [baz foo]", removed)
	}
	if !hasCode(rep, CodeDependencyUnsatisfied) {
		t.Errorf("missing %s diagnostic", CodeDependencyUnsatisfied)
	}
}

func TestLoadAll_StructuralErrors(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	packtest.Write(t, root, "mymod2", packtest.WithDirectory("MyMod"))
	testutil.MustMkdirAll(t, filepath.Join(root, "nomanifest"))
	packtest.Write(t, root, "broken", packtest.WithManifest("manifest.cue", `name: "broken"`+"\n"+`version: `))
	packtest.Write(t, root, "dupdep",
		packtest.WithDependency("bar", "1.0.0"),
		packtest.WithDependency("Bar", "2.0.0"))
	packtest.Write(t, root, "off")
	packtest.Write(t, root, "good")
	testutil.MustMkdirAll(t, filepath.Join(root, ".cache"))
	testutil.MustWriteFile(t, filepath.Join(root, "stray.txt"), "not a package")

	e := newTestEngine(t, root, Options{Disabled: []string{"OFF"}})
	rep, err := e.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}

	if !slices.Equal(rep.Loaded, []string{"good"}) {
		t.Errorf("Loaded = %v, want [good]", rep.Loaded)
	}
	for _, code := range []string{
		CodeNameDirectoryMismatch, CodeManifestMissing, CodeManifestMalformed,
		CodeDuplicateDependency, CodePackageDisabled,
	} {
		if !hasCode(rep, code) {
			t.Errorf("missing %s diagnostic", code)
		}
	}
	if len(rep.Diagnostics) != 5 {
		t.Errorf("got %d diagnostics, want 5: %+v", len(rep.Diagnostics), rep.Diagnostics)
	}
}

func TestLoadAll_DuplicateRegistration(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if !caseSensitive(t, root) {
		t.Skip("file system is case-insensitive")
	}
	packtest.Write(t, root, "dup", packtest.WithDirectory("Dup"), packtest.WithVersion("1.0.0"))
	packtest.Write(t, root, "dup", packtest.WithVersion("2.0.0"))

	e := newTestEngine(t, root, Options{})
	rep, err := e.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if !hasCode(rep, CodeDuplicateRegistration) {
		t.Fatalf("missing %s diagnostic", CodeDuplicateRegistration)
	}
	d, err := e.Describe("dup")
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if d.Version != "1.0.0" {
		t.Errorf("Version = %s, want the first registration to stay", d.Version)
	}
}

func TestLoadAll_MissingRoot(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, filepath.Join(t.TempDir(), "absent"), Options{})
	if _, err := e.LoadAll(context.Background()); err == nil {
		t.Error("LoadAll() succeeded for a missing root")
	}
}

func TestSequence_FollowsHints(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	packtest.Write(t, root, "a", packtest.WithProcessAfter("c"))
	packtest.Write(t, root, "b")
	packtest.Write(t, root, "c", packtest.WithProcessAfter("ghost"))

	e := newTestEngine(t, root, Options{})
	rep, _ := e.LoadAll(context.Background())

	if got := e.Sequence(); !slices.Equal(got, []string{"b", "c", "a"}) {
		t.Errorf("Sequence() = %v, want [b c a]", got)
	}
	if hasCode(rep, CodeProcessingOrderCycle) {
		t.Error("unexpected cycle diagnostic")
	}
}

func TestSequence_CycleIsAWarning(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	packtest.Write(t, root, "a", packtest.WithProcessAfter("b"))
	packtest.Write(t, root, "b", packtest.WithProcessAfter("a"))

	e := newTestEngine(t, root, Options{})
	rep, err := e.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if !hasCode(rep, CodeProcessingOrderCycle) {
		t.Fatal("missing cycle diagnostic")
	}
	if rep.HasErrors() {
		t.Errorf("cycle reported as an error: %+v", rep.Diagnostics)
	}
	if got := e.Sequence(); len(got) != 2 {
		t.Errorf("Sequence() = %v, want both packages", got)
	}
}

func TestUnloadAll_ThenStart_RestoresSameResources(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	packtest.Write(t, root, "alpha",
		packtest.WithFile("shared.material", `shader: "lit"`),
		packtest.WithFile("a.mesh", `vertices: [], material: "shared.material"`),
		packtest.WithFile("docs/readme.md", "# alpha"),
	)
	packtest.Write(t, root, "beta",
		packtest.WithDependency("alpha", "1.0"),
		packtest.WithFile("b.mesh", `vertices: [], material: "alpha:shared.material"`),
	)

	e := newTestEngine(t, root, Options{})
	ctx := context.Background()

	snapshot := func() map[guid.ResourceGUID]resource.Kind {
		out := map[guid.ResourceGUID]resource.Kind{}
		for _, s := range e.List() {
			d, err := e.Describe(s.Name)
			if err != nil {
				t.Fatalf("Describe(%s) error = %v", s.Name, err)
			}
			for _, r := range d.Resources {
				out[r.GUID] = r.Kind
			}
		}
		return out
	}

	mustStart(t, e)
	before := snapshot()
	shared := recordOf(t, e, "alpha", "shared.material").Handle()

	rep, err := e.UnloadAll(ctx)
	if err != nil {
		t.Fatalf("UnloadAll() error = %v", err)
	}
	if !slices.Equal(rep.Unloaded, []string{"beta", "alpha"}) {
		t.Errorf("Unloaded = %v, want reverse processing order", rep.Unloaded)
	}
	if len(e.List()) != 0 {
		t.Errorf("List() = %v after UnloadAll", e.List())
	}
	if !shared.Destroyed() {
		t.Error("shared material survived UnloadAll")
	}

	mustStart(t, e)
	after := snapshot()
	if len(before) != 4 || len(after) != len(before) {
		t.Fatalf("resources before = %d, after = %d", len(before), len(after))
	}
	for id, kind := range before {
		if after[id] != kind {
			t.Errorf("resource %s: kind %s after restart, want %s", id, after[id], kind)
		}
	}
}

func TestUnloadAll_DependentsBeforeDependencies(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	// aaa sorts first and carries no ordering hint, so the reverse processing
	// order alone would unload zzz while aaa still holds its material.
	packtest.Write(t, root, "aaa",
		packtest.WithDependency("zzz", "1.0"),
		packtest.WithFile("m.mesh", `vertices: [], material: "zzz:stone.material"`),
	)
	packtest.Write(t, root, "zzz",
		packtest.WithFile("stone.material", `metallic: 0.5`),
	)

	e := newTestEngine(t, root, Options{})
	mustStart(t, e)
	stone := recordOf(t, e, "zzz", "stone.material").Handle()

	rep, err := e.UnloadAll(context.Background())
	if err != nil {
		t.Fatalf("UnloadAll() error = %v", err)
	}
	if !slices.Equal(rep.Unloaded, []string{"aaa", "zzz"}) {
		t.Errorf("Unloaded = %v, want [aaa zzz]", rep.Unloaded)
	}
	if !stone.Destroyed() {
		t.Errorf("material still alive after UnloadAll (refs %d)", stone.Refs())
	}
}

func TestUnloadPackage(t *testing.T) {
	t.Parallel()

	setup := func(t *testing.T, revalidate bool) *Engine {
		t.Helper()
		root := t.TempDir()
		packtest.Write(t, root, "bar")
		packtest.Write(t, root, "foo", packtest.WithDependency("bar", "1.0.0"))
		e := newTestEngine(t, root, Options{RevalidateOnUnload: revalidate})
		mustStart(t, e)
		return e
	}

	t.Run("revalidate removes dependents", func(t *testing.T) {
		t.Parallel()
		e := setup(t, true)
		rep, err := e.UnloadPackage(context.Background(), "bar")
		if err != nil {
			t.Fatalf("UnloadPackage() error = %v", err)
		}
		if len(rep.Removed) != 1 || rep.Removed[0].Package.Name != "foo" {
			t.Errorf("Removed = %+v, want foo", rep.Removed)
		}
		if len(e.List()) != 0 {
			t.Errorf("List() = %v, want empty", e.List())
		}
	})

	t.Run("without revalidation dependents stay", func(t *testing.T) {
		t.Parallel()
		e := setup(t, false)
		if _, err := e.UnloadPackage(context.Background(), "bar"); err != nil {
			t.Fatalf("UnloadPackage() error = %v", err)
		}
		if got := e.Sequence(); !slices.Equal(got, []string{"foo"}) {
			t.Errorf("Sequence() = %v, want [foo]", got)
		}
		unmet, err := e.Unmet("foo")
		if err != nil || len(unmet) != 1 || unmet[0].String() != "bar: 1.0.0" {
			t.Errorf("Unmet(foo) = %v, %v", unmet, err)
		}

		rep := e.Validate()
		if len(rep.Removed) != 1 {
			t.Errorf("Validate() removed %d packages, want 1", len(rep.Removed))
		}
	})

	t.Run("unknown package", func(t *testing.T) {
		t.Parallel()
		e := setup(t, false)
		if _, err := e.UnloadPackage(context.Background(), "ghost"); !errors.Is(err, registry.ErrPackageNotFound) {
			t.Errorf("UnloadPackage(ghost) error = %v, want ErrPackageNotFound", err)
		}
	})
}

func TestReloadPackage(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := packtest.Write(t, root, "core", packtest.WithFile("a.txt", "old"))

	e := newTestEngine(t, root, Options{})
	ctx := context.Background()
	mustStart(t, e)
	old := recordOf(t, e, "core", "a.txt").Handle()

	packtest.Write(t, root, "core",
		packtest.WithVersion("2.0.0"),
		packtest.WithFile("a.txt", "new"),
		packtest.WithFile("b.txt", "added"),
	)
	rep, err := e.ReloadPackage(ctx, "core")
	if err != nil {
		t.Fatalf("ReloadPackage() error = %v", err)
	}
	if got := rep.Totals(); got.Imported != 2 {
		t.Errorf("Totals() = %+v, want 2 imported", got)
	}
	if !old.Destroyed() {
		t.Error("old payload not released")
	}
	d, _ := e.Describe("core")
	if d.Version != "2.0.0" || d.ResourceCount != 2 {
		t.Errorf("Describe() = version %s, %d resources", d.Version, d.ResourceCount)
	}
	if v := recordOf(t, e, "core", "a.txt").Payload(); v != "new" {
		t.Errorf("a.txt = %v, want new", v)
	}

	testutil.MustWriteFile(t, filepath.Join(dir, "manifest.cue"), `name: "other"`+"\n"+`version: "1.0.0"`)
	if _, err := e.ReloadPackage(ctx, "core"); err == nil {
		t.Fatal("ReloadPackage() accepted a renamed manifest")
	}
	if len(e.List()) != 0 {
		t.Errorf("List() = %v, want the broken package unloaded", e.List())
	}
}

func TestReloadAll(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	packtest.Write(t, root, "a", packtest.WithFile("x.txt", "x"))
	bDir := packtest.Write(t, root, "b", packtest.WithFile("y.txt", "y"))

	e := newTestEngine(t, root, Options{})
	mustStart(t, e)

	testutil.MustRemoveAll(t, filepath.Join(bDir, "manifest.cue"))
	rep, err := e.ReloadAll(context.Background())
	if err == nil {
		t.Fatal("ReloadAll() error = nil, want the failure of b")
	}
	if !hasCode(rep, CodeManifestMissing) {
		t.Errorf("missing %s diagnostic", CodeManifestMissing)
	}
	if got := e.Sequence(); !slices.Equal(got, []string{"a"}) {
		t.Errorf("Sequence() = %v, want [a]", got)
	}
}

func TestLoadPackage(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	packtest.Write(t, root, "base")
	e := newTestEngine(t, root, Options{})
	mustStart(t, e)

	dir := packtest.Write(t, root, "extra",
		packtest.WithDependency("base", "1.0.0"),
		packtest.WithFile("hello.txt", "hi"))
	rep, err := e.LoadPackage(context.Background(), dir)
	if err != nil {
		t.Fatalf("LoadPackage() error = %v", err)
	}
	if !slices.Equal(rep.Loaded, []string{"extra"}) || rep.Totals().Imported != 1 {
		t.Errorf("LoadPackage() report = %+v", rep)
	}

	bad := packtest.Write(t, root, "Bad", packtest.WithDirectory("bad2"))
	if _, err := e.LoadPackage(context.Background(), bad); err == nil {
		t.Error("LoadPackage() accepted an invalid package")
	}
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	coreDir := packtest.Write(t, root, "core", packtest.WithFile("a.txt", "old"))
	oldDir := packtest.Write(t, root, "old", packtest.WithFile("b.txt", "b"))
	e := newTestEngine(t, root, Options{RevalidateOnUnload: true})
	mustStart(t, e)

	testutil.MustWriteFile(t, filepath.Join(coreDir, "a.txt"), "new")
	testutil.MustRemoveAll(t, oldDir)
	packtest.Write(t, root, "fresh", packtest.WithFile("c.txt", "c"))

	rep, err := e.Refresh(context.Background(), []string{"core", "old", "fresh", "never-existed"})
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if !slices.Equal(rep.Unloaded, []string{"old"}) || !slices.Equal(rep.Loaded, []string{"fresh"}) {
		t.Errorf("Refresh() unloaded %v, loaded %v", rep.Unloaded, rep.Loaded)
	}
	if got := e.Sequence(); !slices.Equal(got, []string{"core", "fresh"}) {
		t.Errorf("Sequence() = %v, want [core fresh]", got)
	}
	if v := recordOf(t, e, "core", "a.txt").Payload(); v != "new" {
		t.Errorf("a.txt = %v, want new", v)
	}
	if v := recordOf(t, e, "fresh", "c.txt").Payload(); v != "c" {
		t.Errorf("c.txt = %v, want c", v)
	}

	testutil.MustRemoveAll(t, filepath.Join(coreDir, "manifest.cue"))
	if _, err := e.Refresh(context.Background(), []string{"core"}); err == nil {
		t.Error("Refresh() error = nil for a package whose manifest vanished")
	}
	if got := e.Sequence(); !slices.Equal(got, []string{"fresh"}) {
		t.Errorf("Sequence() = %v, want [fresh]", got)
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	packtest.Write(t, root, "base", packtest.WithVersion("1.2.0"))
	packtest.Write(t, root, "game",
		packtest.WithDependency("base", "1.0"),
		packtest.WithProcessAfter("base"),
		packtest.WithFile("mat.material", `shader: "lit"`),
		packtest.WithFile("m.mesh", `vertices: [], material: "mat.material"`),
	)

	e := newTestEngine(t, root, Options{})
	mustStart(t, e)

	list := e.List()
	if len(list) != 2 || list[0].Name != "base" || list[1].DependencyCount != 1 || list[1].ResourceCount != 2 {
		t.Errorf("List() = %+v", list)
	}

	d, err := e.Describe("GAME")
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if d.ID != guid.PackageIDOf("game") {
		t.Errorf("ID = %s", d.ID)
	}
	if len(d.Authors) != 0 {
		t.Errorf("Authors = %v", d.Authors)
	}
	want := DependencyInfo{Name: "base", MinVersion: "1.0", Loaded: "1.2.0", Satisfied: true}
	if len(d.Dependencies) != 1 || d.Dependencies[0] != want {
		t.Errorf("Dependencies = %+v, want %+v", d.Dependencies, want)
	}
	refs := map[string]int{}
	for _, r := range d.Resources {
		refs[r.Path] = r.Refs
	}
	if refs["mat.material"] != 2 || refs["m.mesh"] != 1 {
		t.Errorf("refs = %v", refs)
	}

	if _, err := e.Describe("ghost"); !errors.Is(err, registry.ErrPackageNotFound) {
		t.Errorf("Describe(ghost) error = %v, want ErrPackageNotFound", err)
	}
}
