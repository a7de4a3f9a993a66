package monitor

import "github.com/charmbracelet/lipgloss"

// accent matches the default particle tint.
const accent = lipgloss.Color("#ecf0ff")

var (
	canvasStyle      = lipgloss.NewStyle().Padding(canvasPadY, canvasPadX).Foreground(accent)
	statsStyle       = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(statsWidth)
	headerStyle      = lipgloss.NewStyle().Foreground(accent).Bold(true).MarginBottom(1)
	labelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeParamStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("111")).Padding(1, 0)
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(2)
	statusActive     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88"))
	statusIdle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#666688"))
	statusPaused     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffaa00"))
)
