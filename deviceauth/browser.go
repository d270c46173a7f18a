package deviceauth

import (
	"os/exec"
	"runtime"
)

// Opener presents the verification URL to the user. Best-effort: callers
// treat a failed Open as a warning, not an error.
type Opener interface {
	Open(url string) error
}

// BrowserOpener opens the URL with the platform's default browser.
type BrowserOpener struct{}

func (BrowserOpener) Open(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(url string) error

func (f OpenerFunc) Open(url string) error {
	return f(url)
}
