// Package classify maps the foreground window to an application profile
// describing how text can safely be delivered to it.
package classify

// Category is the application family a foreground window resolves to.
type Category string

const (
	CategoryBrowser       Category = "browser"
	CategoryIDE           Category = "ide"
	CategoryOffice        Category = "office"
	CategoryTextEditor    Category = "text-editor"
	CategoryCommunication Category = "communication"
	CategoryTerminal      Category = "terminal"
	CategoryOther         Category = "other"
)

// Method is an injection technique for placing text into the focused app.
type Method string

const (
	MethodKeystroke Method = "keystroke"
	MethodClipboard Method = "clipboard"
)

// Opposite returns the alternate injection method.
func (m Method) Opposite() Method {
	if m == MethodClipboard {
		return MethodKeystroke
	}
	return MethodClipboard
}

// Capabilities describes how a category of application accepts text.
type Capabilities struct {
	PreferredMethod Method
	SupportsUnicode bool
	SpecialHandling bool
	MaxTextLength   int
}

// Profile is the classifier's record of the focused application.
type Profile struct {
	ProcessName  string
	WindowTitle  string
	WindowClass  string
	Category     Category
	Capabilities Capabilities
}

// Equal reports whether two profiles describe the same application state.
func (p Profile) Equal(other Profile) bool {
	return p.ProcessName == other.ProcessName &&
		p.WindowTitle == other.WindowTitle &&
		p.WindowClass == other.WindowClass &&
		p.Category == other.Category &&
		p.Capabilities == other.Capabilities
}

// SameApplication reports whether two profiles resolve to the same
// application identity, ignoring title changes within one app.
func (p Profile) SameApplication(other Profile) bool {
	return p.ProcessName == other.ProcessName && p.Category == other.Category
}

// AssessCapabilities is the pure category-to-capability table. Office apps
// get clipboard injection (keystroke streams confuse their input handling),
// terminals get ASCII-only keystrokes, everything else types Unicode.
func AssessCapabilities(category Category) Capabilities {
	switch category {
	case CategoryOffice:
		return Capabilities{
			PreferredMethod: MethodClipboard,
			SupportsUnicode: true,
			SpecialHandling: true,
			MaxTextLength:   100000,
		}
	case CategoryTerminal:
		return Capabilities{
			PreferredMethod: MethodKeystroke,
			SupportsUnicode: false,
			SpecialHandling: true,
			MaxTextLength:   2000,
		}
	case CategoryBrowser:
		return Capabilities{
			PreferredMethod: MethodKeystroke,
			SupportsUnicode: true,
			MaxTextLength:   10000,
		}
	case CategoryIDE:
		return Capabilities{
			PreferredMethod: MethodKeystroke,
			SupportsUnicode: true,
			MaxTextLength:   50000,
		}
	case CategoryTextEditor:
		return Capabilities{
			PreferredMethod: MethodKeystroke,
			SupportsUnicode: true,
			MaxTextLength:   100000,
		}
	case CategoryCommunication:
		return Capabilities{
			PreferredMethod: MethodKeystroke,
			SupportsUnicode: true,
			MaxTextLength:   5000,
		}
	default:
		return Capabilities{
			PreferredMethod: MethodKeystroke,
			SupportsUnicode: true,
			MaxTextLength:   10000,
		}
	}
}
