// Package intl resolves locales and serves compiled message bundles.
package intl

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sync"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"
	"golang.org/x/text/message/catalog"
)

// DefaultLocale is used for anonymous requests and unsupported preferences.
var DefaultLocale = language.English

var supported = []language.Tag{
	language.English,
	language.Croatian,
	language.German,
	language.Spanish,
	language.French,
	language.Italian,
}

var matcher = language.NewMatcher(supported)

// SupportedLocales lists the locales with a message bundle.
func SupportedLocales() []language.Tag {
	out := make([]language.Tag, len(supported))
	copy(out, supported)
	return out
}

// Supported maps a preferred locale onto a supported one, falling back to DefaultLocale.
func Supported(locale string) language.Tag {
	if locale == "" {
		return DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return DefaultLocale
	}
	_, idx, confidence := matcher.Match(tag)
	if confidence == language.No {
		return DefaultLocale
	}
	return supported[idx]
}

// Bundle is an immutable compiled message bundle for one locale.
type Bundle struct {
	Tag      language.Tag
	Messages map[string]string
	catalog  catalog.Catalog
}

// Catalog loads bundles lazily and caches them for the life of the process.
// Safe for concurrent use.
type Catalog struct {
	fsys  fs.FS
	dir   string
	cache sync.Map
	group singleflight.Group
}

// NewCatalog reads bundles from <dir>/<locale>.json inside fsys.
func NewCatalog(fsys fs.FS, dir string) *Catalog {
	return &Catalog{fsys: fsys, dir: dir}
}

// Bundle returns the bundle for the supported locale closest to locale.
func (c *Catalog) Bundle(ctx context.Context, locale string) (*Bundle, error) {
	tag := Supported(locale)
	key := tag.String()
	if cached, ok := c.cache.Load(key); ok {
		return cached.(*Bundle), nil
	}
	resultChan := c.group.DoChan(key, func() (interface{}, error) {
		if cached, ok := c.cache.Load(key); ok {
			return cached, nil
		}
		bundle, err := c.read(tag)
		if err != nil {
			return nil, err
		}
		actual, _ := c.cache.LoadOrStore(key, bundle)
		return actual, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Bundle), nil
	}
}

func (c *Catalog) read(tag language.Tag) (*Bundle, error) {
	name := path.Join(c.dir, tag.String()+".json")
	raw, err := fs.ReadFile(c.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("intl: read %s: %w", name, err)
	}
	var messages map[string]string
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("intl: parse %s: %w", name, err)
	}
	builder := catalog.NewBuilder(catalog.Fallback(DefaultLocale))
	for id, msg := range messages {
		if err := builder.SetString(tag, id, msg); err != nil {
			return nil, fmt.Errorf("intl: compile %s/%s: %w", tag, id, err)
		}
	}
	return &Bundle{Tag: tag, Messages: messages, catalog: builder}, nil
}
