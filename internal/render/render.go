// SPDX-License-Identifier: MPL-2.0

package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/modhost/modhost/internal/engine"
	"github.com/modhost/modhost/pkg/modpack"
)

const (
	checkMark = "✓"
	crossMark = "✗"

	// headerRow is the row index lipgloss tables pass for the header.
	headerRow = -1
)

// Packages renders the package listing as a table. Rows keep the order of
// summaries, which is the processing order when taken from engine.List.
func Packages(summaries []engine.Summary) string {
	if len(summaries) == 0 {
		return SubtitleStyle.Render("No packages loaded.") + "\n"
	}

	rows := make([][]string, 0, len(summaries))
	for i, s := range summaries {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			s.Name,
			s.Version,
			s.DisplayName,
			strconv.Itoa(s.DependencyCount),
			strconv.Itoa(s.ResourceCount),
			s.ID.String(),
		})
	}
	t := newTable("#", "Name", "Version", "Display name", "Deps", "Resources", "ID").Rows(rows...)
	return t.Render() + "\n"
}

// Detail renders one package with its dependencies and resources.
func Detail(d engine.Detail) string {
	var b strings.Builder

	title := d.Name
	if d.DisplayName != "" {
		title = d.DisplayName + " (" + d.Name + ")"
	}
	b.WriteString(TitleStyle.Render(title) + "\n")
	if d.Description != "" {
		b.WriteString(SubtitleStyle.Render(d.Description) + "\n")
	}
	b.WriteString("\n")

	field(&b, "Version", d.Version)
	field(&b, "ID", d.ID.String())
	field(&b, "Directory", d.Dir)
	field(&b, "Manifest", d.ManifestPath)
	if len(d.Authors) > 0 {
		field(&b, "Authors", authors(d.Authors))
	}
	if len(d.ProcessAfter) > 0 {
		field(&b, "After", strings.Join(d.ProcessAfter, ", "))
	}

	if len(d.Dependencies) > 0 {
		b.WriteString("\n" + TitleStyle.Render("Dependencies") + "\n")
		for _, dep := range d.Dependencies {
			mark, style := checkMark, SuccessStyle
			loaded := dep.Loaded
			if !dep.Satisfied {
				mark, style = crossMark, ErrorStyle
			}
			if loaded == "" {
				loaded = "not loaded"
			}
			fmt.Fprintf(&b, "  %s %s >= %s %s\n",
				style.Render(mark), NameStyle.Render(dep.Name), dep.MinVersion, SubtitleStyle.Render("("+loaded+")"))
		}
	}

	b.WriteString("\n" + TitleStyle.Render(fmt.Sprintf("Resources (%d)", len(d.Resources))) + "\n")
	if len(d.Resources) == 0 {
		b.WriteString(SubtitleStyle.Render("  none") + "\n")
		return b.String()
	}
	rows := make([][]string, 0, len(d.Resources))
	for _, r := range d.Resources {
		state := "pending"
		if r.Imported {
			state = "imported"
		}
		refs := "-"
		if r.Refs > 0 {
			refs = strconv.Itoa(r.Refs)
		}
		rows = append(rows, []string{r.Path, r.Kind.String(), state, refs, r.GUID.String()})
	}
	b.WriteString(newTable("Path", "Kind", "State", "Refs", "GUID").Rows(rows...).Render() + "\n")
	return b.String()
}

// Report renders the outcome of a lifecycle operation.
func Report(rep engine.Report) string {
	var b strings.Builder

	if len(rep.Loaded) > 0 {
		fmt.Fprintf(&b, "%s loaded: %s\n", SuccessStyle.Render(checkMark), strings.Join(rep.Loaded, ", "))
	}
	if len(rep.Unloaded) > 0 {
		fmt.Fprintf(&b, "%s unloaded: %s\n", SubtitleStyle.Render("•"), strings.Join(rep.Unloaded, ", "))
	}
	for _, rm := range rep.Removed {
		fmt.Fprintf(&b, "%s removed %s: unmet %s\n",
			ErrorStyle.Render(crossMark), NameStyle.Render(string(rm.Package.Name)), strings.Join(rm.Strings(), ", "))
	}
	if len(rep.Imports) > 0 {
		totals := rep.Totals()
		fmt.Fprintf(&b, "%s imported %d, failed %d, skipped %d across %d packages\n",
			SuccessStyle.Render(checkMark), totals.Imported, totals.Failed, totals.Skipped, len(rep.Imports))
	}
	b.WriteString(Diagnostics(rep.Diagnostics))
	return b.String()
}

// Diagnostics renders one line per diagnostic, prefixed by its severity.
func Diagnostics(diags []engine.Diagnostic) string {
	var b strings.Builder
	for _, d := range diags {
		var label string
		switch d.Severity {
		case engine.SeverityError:
			label = ErrorStyle.Render("error")
		case engine.SeverityWarning:
			label = WarningStyle.Render("warning")
		default:
			label = SubtitleStyle.Render("info")
		}
		fmt.Fprintf(&b, "%s [%s] %s", label, d.Code, d.Message)
		if d.Path != "" && !strings.Contains(d.Message, d.Path) {
			b.WriteString(SubtitleStyle.Render(" (" + d.Path + ")"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == headerRow {
				return headerStyle
			}
			return cellStyle
		})
}

func field(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label) + value + "\n")
}

func authors(list []modpack.Author) string {
	names := make([]string, len(list))
	for i, a := range list {
		names[i] = a.Name
		if a.Email != "" && a.Email != modpack.UnknownAuthorInfo {
			names[i] += " <" + a.Email + ">"
		}
	}
	return strings.Join(names, ", ")
}
