package classify

import "strings"

// classRule maps window class/process substrings to a category. Rules are
// checked in order and the first match wins, so more specific families come
// before the catch-alls.
type classRule struct {
	category Category
	needles  []string
}

var rules = []classRule{
	{CategoryBrowser, []string{
		"firefox", "librewolf", "zen-browser", "chromium", "chrome",
		"brave", "vivaldi", "opera", "epiphany", "qutebrowser",
	}},
	{CategoryIDE, []string{
		"code", "codium", "cursor", "jetbrains", "idea", "goland",
		"pycharm", "clion", "rider", "webstorm", "eclipse", "zed",
	}},
	{CategoryOffice, []string{
		"libreoffice", "soffice", "onlyoffice", "wps", "excel", "word",
		"powerpoint",
	}},
	{CategoryTextEditor, []string{
		"gedit", "kate", "mousepad", "sublime", "obsidian", "typora",
		"emacs", "gvim", "neovide",
	}},
	{CategoryCommunication, []string{
		"slack", "discord", "telegram", "signal", "element",
		"thunderbird", "evolution", "teams", "zoom",
	}},
	{CategoryTerminal, []string{
		"kitty", "alacritty", "foot", "wezterm", "ghostty", "konsole",
		"gnome-terminal", "xterm", "terminator", "tilix",
	}},
}

// Categorize resolves a window class and process name to a category using
// the ordered ruleset. Matching is case-insensitive substring containment,
// class first, then process name. No match falls through to Other.
func Categorize(windowClass, processName string) Category {
	class := strings.ToLower(strings.TrimSpace(windowClass))
	process := strings.ToLower(strings.TrimSpace(processName))

	for _, rule := range rules {
		for _, needle := range rule.needles {
			if class != "" && strings.Contains(class, needle) {
				return rule.category
			}
			if process != "" && strings.Contains(process, needle) {
				return rule.category
			}
		}
	}
	return CategoryOther
}
