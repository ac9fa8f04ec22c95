package dashboard

import "github.com/charmbracelet/lipgloss"

// Theme defines color scheme for the dashboard
type Theme struct {
	Name    string
	Primary lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Border  lipgloss.Color
	Focus   lipgloss.Color
	Stable  lipgloss.Color
	Warning lipgloss.Color
	Alarm   lipgloss.Color
	Spill   lipgloss.Color
}

var (
	ThemeControlRoom = Theme{
		Name:    "control-room",
		Primary: lipgloss.Color("#00cccc"),
		Text:    lipgloss.Color("#e0e6ed"),
		Muted:   lipgloss.Color("#666688"),
		Border:  lipgloss.Color("#444466"),
		Focus:   lipgloss.Color("#00ffff"),
		Stable:  lipgloss.Color("#1a7f37"),
		Warning: lipgloss.Color("#d4a72c"),
		Alarm:   lipgloss.Color("#ff4444"),
		Spill:   lipgloss.Color("#2b98ff"),
	}

	ThemeRetroGreen = Theme{
		Name:    "retro",
		Primary: lipgloss.Color("#00ff00"),
		Text:    lipgloss.Color("#00ff00"),
		Muted:   lipgloss.Color("#005500"),
		Border:  lipgloss.Color("#00aa00"),
		Focus:   lipgloss.Color("#88ff88"),
		Stable:  lipgloss.Color("#88ff88"),
		Warning: lipgloss.Color("#ffff00"),
		Alarm:   lipgloss.Color("#ff0000"),
		Spill:   lipgloss.Color("#00ffcc"),
	}

	ThemeMinimal = Theme{
		Name:    "minimal",
		Primary: lipgloss.Color("#ffffff"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#888888"),
		Border:  lipgloss.Color("#555555"),
		Focus:   lipgloss.Color("#0088ff"),
		Stable:  lipgloss.Color("#00ff00"),
		Warning: lipgloss.Color("#ffaa00"),
		Alarm:   lipgloss.Color("#ff0000"),
		Spill:   lipgloss.Color("#0088ff"),
	}

	Themes = []Theme{
		ThemeControlRoom,
		ThemeRetroGreen,
		ThemeMinimal,
	}
)

// GetTheme returns a theme by name, falling back to control-room.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeControlRoom
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
