// Package i18n translates objtrans's own user-facing messages.
//
// Catalogs are gettext .po files embedded in the binary under
// locales/{lang}/LC_MESSAGES/objtrans.po. Init picks the catalog that best
// matches the requested or environment language; without a match the
// messages stay in English.
package i18n

import (
	"embed"
	"io/fs"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
	"golang.org/x/text/language"
)

//go:embed all:locales
var locales embed.FS

// domain is the gettext domain name of objtrans.
const domain = "objtrans"

// po is the active catalog; nil means untranslated.
var po *gotext.Locale

// lang is the catalog language in use.
var lang = "en"

// Init loads the catalog for the given language. If requested is empty,
// the language is detected from LANGUAGE, LC_ALL, LC_MESSAGES and LANG
// (GNU gettext order). Init should be called once, before T or N.
func Init(requested string) {
	if requested == "" {
		requested = detectLanguage()
	}
	lang = match(requested, available())
	if lang == "en" {
		po = nil
		return
	}
	po = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// Lang returns the language of the active catalog.
func Lang() string { return lang }

// T translates a message, returning it unchanged when untranslated.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a message with plural forms.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// available lists the embedded catalog languages.
func available() []string {
	entries, err := fs.ReadDir(locales, "locales")
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out
}

// match returns the catalog closest to requested, or "en".
func match(requested string, catalogs []string) string {
	want, err := language.Parse(strings.ReplaceAll(requested, "_", "-"))
	if err != nil || len(catalogs) == 0 {
		return "en"
	}
	names := []string{"en"}
	tags := []language.Tag{language.English}
	for _, c := range catalogs {
		t, err := language.Parse(strings.ReplaceAll(c, "_", "-"))
		if err != nil {
			continue
		}
		names = append(names, c)
		tags = append(tags, t)
	}
	_, idx, conf := language.NewMatcher(tags).Match(want)
	if conf < language.High {
		return "en"
	}
	return names[idx]
}

// detectLanguage reads the locale environment variables the way GNU
// gettext does.
func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		if i := strings.IndexByte(val, '.'); i >= 0 {
			val = val[:i]
		}
		if val == "C" || val == "POSIX" || val == "" {
			continue
		}
		return val
	}
	return "en"
}
