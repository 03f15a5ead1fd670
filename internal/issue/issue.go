// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

// Id identifies a catalog entry.
type Id int

const (
	ModsDirNotFoundId Id = iota + 1
	ConfigLoadFailedId
	ManifestMissingId
	ManifestMalformedId
	InvalidNameId
	NameDirectoryMismatchId
	DuplicateDependencyId
	DuplicateRegistrationId
	DependencyUnsatisfiedId
	ProcessingOrderCycleId
	ResourceImportFailedId
	GUIDCollisionId
	PackageNotFoundId
	ConsoleStartFailedId
)

type (
	// MarkdownMsg is catalog text in Markdown.
	MarkdownMsg string

	// Issue is one catalog entry. Code, when set, is the lifecycle
	// diagnostic code the entry explains.
	Issue struct {
		id    Id
		code  string
		mdMsg MarkdownMsg
	}
)

// Id returns the entry's identifier.
func (i *Issue) Id() Id { return i.id }

// Code returns the diagnostic code the entry explains, or "".
func (i *Issue) Code() string { return i.code }

// MarkdownMsg returns the raw Markdown.
func (i *Issue) MarkdownMsg() MarkdownMsg { return i.mdMsg }

// Render renders the entry for a terminal. stylePath is a glamour style
// name ("dark", "light", "notty") or a path to a style file.
func (i *Issue) Render(stylePath string) (string, error) {
	return render(string(i.mdMsg), stylePath)
}

var (
	render = glamour.Render

	modsDirNotFoundIssue = &Issue{
		id: ModsDirNotFoundId,
		mdMsg: `
# Mods directory not found

modhost scans one directory and treats each subdirectory as a package.
That directory does not exist or cannot be read.

## Things you can try:
- Pass the directory explicitly:
~~~
$ modhost --mods ./mods list
~~~
- Set ` + "`mods_dir`" + ` in your config.cue
- Check the directory permissions`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Configuration could not be loaded

The config file is checked against a closed schema, so misspelled keys are
reported as errors.

## Things you can try:
- Show the effective configuration:
~~~
$ modhost config show
~~~
- Compare your file with the defaults:
~~~cue
mods_dir: "mods"
log: {level: "info", format: "text"}
packages: {revalidate_on_unload: true}
watch: {debounce: "500ms"}
console: {host: "127.0.0.1", port: 2222}
~~~`,
	}

	manifestMissingIssue = &Issue{
		id:   ManifestMissingId,
		code: "manifest_missing",
		mdMsg: `
# Package has no manifest

Every package directory needs a manifest at its root. The first of these
files found is used:

1. manifest.cue
2. manifest.json
3. manifest.toml
4. manifest.yaml
5. manifest.yml

## Minimal manifest:
~~~cue
name:    "mymod"
version: "1.0.0"
~~~`,
	}

	manifestMalformedIssue = &Issue{
		id:   ManifestMalformedId,
		code: "manifest_malformed",
		mdMsg: `
# Manifest could not be parsed

The manifest has a syntax error, an unknown key or a value of the wrong type.

## Things you can try:
- Check the line and field named in the error
- Keys are case-sensitive: ` + "`displayName`, `processAfter`" + `
- Versions are semantic versions such as ` + "`1`, `1.2` or `1.2.3-beta`",
	}

	invalidNameIssue = &Issue{
		id:   InvalidNameId,
		code: "invalid_name",
		mdMsg: `
# Invalid package name

Package names are 1 to 64 characters from ` + "`a-z`, `0-9`, `.`, `_` and `-`" + `.
Upper-case letters and spaces are not allowed.`,
	}

	nameDirectoryMismatchIssue = &Issue{
		id:   NameDirectoryMismatchId,
		code: "name_directory_mismatch",
		mdMsg: `
# Package name does not match its directory

The manifest ` + "`name`" + ` must equal the package directory name, ignoring case.
A manifest naming ` + "`mymod2`" + ` inside ` + "`MyMod/`" + ` is rejected.

## Things you can try:
- Rename the directory to the package name
- Or change ` + "`name`" + ` in the manifest`,
	}

	duplicateDependencyIssue = &Issue{
		id:   DuplicateDependencyId,
		code: "duplicate_dependency",
		mdMsg: `
# Dependency declared twice

A dependency may appear only once. Names are compared without case, so
` + "`Bar`" + ` and ` + "`bar`" + ` are the same dependency.`,
	}

	duplicateRegistrationIssue = &Issue{
		id:   DuplicateRegistrationId,
		code: "duplicate_registration",
		mdMsg: `
# Package already registered

Two directories declare the same package. The first one loaded keeps the
name; the other is skipped.`,
	}

	dependencyUnsatisfiedIssue = &Issue{
		id:   DependencyUnsatisfiedId,
		code: "dependency_unsatisfied",
		mdMsg: `
# Dependencies not satisfied

A package was removed because a dependency is missing or older than the
declared minimum. Removing it may remove its own dependents in turn.

## Things you can try:
- Install the missing package into the mods directory
- Update the dependency to a version at or above the minimum
- Inspect what a package needs:
~~~
$ modhost info <name>
~~~`,
	}

	processingOrderCycleIssue = &Issue{
		id:   ProcessingOrderCycleId,
		code: "processing_order_cycle",
		mdMsg: `
# Ordering hints form a cycle

The ` + "`processAfter`" + ` hints of some packages contradict each other. Loading
continues with a best-effort order: packages outside the cycle are placed
first and the rest follow in name order.

## Things you can try:
- Remove one ` + "`processAfter`" + ` entry from the packages listed`,
	}

	resourceImportFailedIssue = &Issue{
		id:   ResourceImportFailedId,
		code: "resource_import_failed",
		mdMsg: `
# Resource import failed

A file could not be decoded and was left out of its package. The rest of
the package is imported normally.

## Common causes:
- The content does not match the extension
- A material, mesh or prefab references a resource that does not exist
- Resources reference each other in a cycle
- A material uses a property other than ` + "`shader`, `color`, `texture`, `metallic`, `smoothness`, `doubleSided`",
	}

	guidCollisionIssue = &Issue{
		id:   GUIDCollisionId,
		code: "guid_collision",
		mdMsg: `
# Resource paths collide

Resource identifiers ignore case, so ` + "`Textures/Wall.png`" + ` and
` + "`textures/wall.png`" + ` are the same resource. The first path keeps the
identifier and the second is skipped.`,
	}

	packageNotFoundIssue = &Issue{
		id: PackageNotFoundId,
		mdMsg: `
# Package not loaded

No loaded package has that name. It may have failed to load or been removed
by dependency validation.

## Things you can try:
~~~
$ modhost list
$ modhost check
~~~`,
	}

	consoleStartFailedIssue = &Issue{
		id: ConsoleStartFailedId,
		mdMsg: `
# Management console failed to start

The SSH console could not listen on the configured address.

## Things you can try:
- Pick a free port with ` + "`--port`" + ` or ` + "`console.port`" + ` in config.cue
- Bind to a different interface with ` + "`--host`",
	}

	issues = map[Id]*Issue{
		modsDirNotFoundIssue.Id():       modsDirNotFoundIssue,
		configLoadFailedIssue.Id():      configLoadFailedIssue,
		manifestMissingIssue.Id():       manifestMissingIssue,
		manifestMalformedIssue.Id():     manifestMalformedIssue,
		invalidNameIssue.Id():           invalidNameIssue,
		nameDirectoryMismatchIssue.Id(): nameDirectoryMismatchIssue,
		duplicateDependencyIssue.Id():   duplicateDependencyIssue,
		duplicateRegistrationIssue.Id(): duplicateRegistrationIssue,
		dependencyUnsatisfiedIssue.Id(): dependencyUnsatisfiedIssue,
		processingOrderCycleIssue.Id():  processingOrderCycleIssue,
		resourceImportFailedIssue.Id():  resourceImportFailedIssue,
		guidCollisionIssue.Id():         guidCollisionIssue,
		packageNotFoundIssue.Id():       packageNotFoundIssue,
		consoleStartFailedIssue.Id():    consoleStartFailedIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

// Get returns the entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}

// ForCode returns the entry explaining a diagnostic code.
func ForCode(code string) (*Issue, bool) {
	if code == "" {
		return nil, false
	}
	for _, i := range issues {
		if i.code == code {
			return i, true
		}
	}
	return nil, false
}
