// Package translate formats user visible messages through a locale aware
// message printer.
//
// The host locale is detected on first use. SetLanguage overrides it, for
// example from a command line flag.
package translate

import (
	"log"
	"sync"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const DEFAULT_LANGUAGE = "en-US"

var (
	lock    sync.Mutex
	printer *message.Printer
)

// hostLanguages returns the user's preferred locales, best first.
func hostLanguages() (languages []string) {
	languages, err := locale.GetLocales()
	if err != nil {
		log.Printf("nspemu: locale: %v", err)
	}
	if len(languages) == 0 {
		languages = []string{DEFAULT_LANGUAGE}
	}
	return
}

func current() *message.Printer {
	lock.Lock()
	defer lock.Unlock()

	if printer == nil {
		printer = message.NewPrinter(message.MatchLanguage(hostLanguages()...))
	}
	return printer
}

// SetLanguage selects the message language by BCP 47 tag. An empty tag
// returns to the host locale.
func SetLanguage(tag string) (err error) {
	lock.Lock()
	defer lock.Unlock()

	if len(tag) == 0 {
		printer = nil
		return
	}

	parsed, err := language.Parse(tag)
	if err != nil {
		return
	}
	printer = message.NewPrinter(parsed)
	return
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return current().Sprintf(key, args...)
}
