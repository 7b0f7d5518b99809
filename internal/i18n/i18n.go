// Package i18n loads the embedded locale files and translates UI strings
// and notification texts.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

type Language struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	NativeName string `json:"native_name"`
}

type Translator struct {
	bundle  *i18n.Bundle
	matcher language.Matcher
	tags    []language.Tag
	// english source text -> message id
	sources map[string]string
}

func New() (*Translator, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	files, err := fs.ReadDir(localeFS, "locales")
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + f.Name())
		if err != nil {
			return nil, err
		}
		if _, err := bundle.ParseMessageFileBytes(data, f.Name()); err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.Name(), err)
		}
	}

	// English first so the matcher falls back to it
	tags := []language.Tag{language.English}
	for _, t := range bundle.LanguageTags() {
		if t != language.English {
			tags = append(tags, t)
		}
	}

	en, err := localeFS.ReadFile("locales/en.yaml")
	if err != nil {
		return nil, err
	}
	var raw map[string]string
	if err := yaml.Unmarshal(en, &raw); err != nil {
		return nil, err
	}
	sources := make(map[string]string, len(raw))
	for id, text := range raw {
		if !strings.Contains(text, "{{") {
			sources[text] = id
		}
	}

	return &Translator{
		bundle:  bundle,
		matcher: language.NewMatcher(tags),
		tags:    tags,
		sources: sources,
	}, nil
}

// Normalize maps an Accept-Language style value onto a supported code.
func (t *Translator) Normalize(lang string) string {
	tag, _ := language.MatchStrings(t.matcher, lang)
	base, _ := tag.Base()
	return base.String()
}

// Message localizes a message id. Missing translations fall back to English.
func (t *Translator) Message(lang, id string, data map[string]any) string {
	loc := i18n.NewLocalizer(t.bundle, lang)
	msg, err := loc.Localize(&i18n.LocalizeConfig{MessageID: id, TemplateData: data})
	if msg == "" && err != nil {
		return id
	}
	return msg
}

// Translate looks up an English UI string and returns it in lang, or the
// input unchanged when it is not a known string or lang is unsupported.
func (t *Translator) Translate(text, lang string) string {
	id, ok := t.sources[text]
	if !ok {
		return text
	}
	loc := i18n.NewLocalizer(t.bundle, lang)
	msg, err := loc.Localize(&i18n.LocalizeConfig{MessageID: id})
	if err != nil || msg == "" {
		return text
	}
	return msg
}

func (t *Translator) Languages() []Language {
	out := make([]Language, 0, len(t.tags))
	for _, tag := range t.tags {
		out = append(out, Language{
			Code:       tag.String(),
			Name:       display.English.Languages().Name(tag),
			NativeName: display.Self.Name(tag),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
