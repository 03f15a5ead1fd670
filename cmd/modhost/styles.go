// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/modhost/modhost/internal/render"
)

// CLI styles share the render palette so command output and views match.
var (
	TitleStyle    = render.TitleStyle
	SubtitleStyle = render.SubtitleStyle
	SuccessStyle  = render.SuccessStyle
	ErrorStyle    = render.ErrorStyle
	WarningStyle  = render.WarningStyle

	// KeyStyle renders configuration keys and labels.
	KeyStyle = lipgloss.NewStyle().Foreground(render.ColorHighlight).Bold(true)

	// HighlightStyle marks progress arrows in long-running commands.
	HighlightStyle = lipgloss.NewStyle().Foreground(render.ColorPrimary).Bold(true)
)
