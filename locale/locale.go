// Package locale resolves which translation locales are in scope.
package locale

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/minios-linux/objtrans/metadata"
)

// Resolve lists the org's Translations and returns their names in org
// order, restricted to requested when it is non-empty. Errors of the list
// call are returned unmodified.
func Resolve(ctx context.Context, svc metadata.Service, apiVersion string, requested []string) ([]string, error) {
	res, err := svc.List(ctx, []metadata.ListQuery{{Type: metadata.TypeTranslations}}, apiVersion)
	if err != nil {
		return nil, err
	}
	var org []string
	for _, p := range res.List() {
		org = append(org, p.FullName)
	}
	return Filter(org, requested), nil
}

// Filter keeps the entries of org that appear in requested, in org order.
// An empty requested keeps everything.
func Filter(org, requested []string) []string {
	out := make([]string, 0, len(org))
	if len(requested) == 0 {
		return append(out, org...)
	}
	want := make(map[string]bool, len(requested))
	for _, r := range requested {
		want[r] = true
	}
	for _, l := range org {
		if want[l] {
			out = append(out, l)
		}
	}
	return out
}

// Missing returns the requested locales absent from resolved.
func Missing(requested, resolved []string) []string {
	have := make(map[string]bool, len(resolved))
	for _, l := range resolved {
		have[l] = true
	}
	var out []string
	for _, r := range requested {
		if !have[r] {
			out = append(out, r)
		}
	}
	return out
}

// Tag parses an org locale code such as "pt_BR" as a BCP 47 tag.
func Tag(code string) (language.Tag, error) {
	return language.Parse(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
}

// Validate checks that every locale code is a well-formed language tag.
func Validate(codes []string) error {
	for _, c := range codes {
		if _, err := Tag(c); err != nil {
			return fmt.Errorf("invalid locale %q: %w", c, err)
		}
	}
	return nil
}

// Describe returns the locale's name in its own language ("Deutsch"),
// falling back to the code itself.
func Describe(code string) string {
	tag, err := Tag(code)
	if err != nil {
		return code
	}
	if name := display.Self.Name(tag); name != "" {
		return name
	}
	return code
}
