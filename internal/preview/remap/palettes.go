package remap

// Fallback is the built-in replacement palette used when no target palette
// is available; the remap flow never blocks on a missing palette.
var Fallback = []string{
	"#1a1a2e",
	"#16213e",
	"#0f3460",
	"#533483",
	"#e94560",
	"#f5f5f5",
}

// Palettes are the built-in named target palettes offered by the UI.
var Palettes = map[string][]string{
	"midnight": {"#0f0f1a", "#1a1a2e", "#16213e", "#0f3460", "#533483", "#e94560", "#eaeaea"},
	"forest":   {"#1b2a1b", "#2d4a2d", "#4a7c59", "#8fb996", "#d8e2dc", "#f4f9f4"},
	"sunset":   {"#2b124c", "#522b5b", "#854f6c", "#dfb6b2", "#fbe4d8"},
	"mono":     {"#111111", "#333333", "#666666", "#999999", "#cccccc", "#f2f2f2"},
	"paper":    {"#2f2f2f", "#5b5b5b", "#8a7f6d", "#cabfab", "#efe9dc", "#fbf8f1"},
}

// Palette returns a named built-in palette, falling back to Fallback for
// unknown names.
func Palette(name string) []string {
	if p, ok := Palettes[name]; ok {
		return append([]string(nil), p...)
	}
	return append([]string(nil), Fallback...)
}
