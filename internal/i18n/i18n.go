package i18n

import (
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/iamwavecut/ngrelay/resources"
)

const (
	defaultLanguage = "en"
	resourcesPath   = "i18n"
)

var state = struct {
	sync.RWMutex
	translations map[string]map[string]string
	loaded       map[string]bool
}{
	translations: make(map[string]map[string]string),
	loaded:       make(map[string]bool),
}

func load(lang string) map[string]string {
	state.Lock()
	defer state.Unlock()
	if state.loaded[lang] {
		return state.translations[lang]
	}
	state.loaded[lang] = true

	raw, err := resources.FS.ReadFile(path.Join(resourcesPath, lang+".yml"))
	if err != nil {
		log.WithError(err).WithField("lang", lang).Errorln("cant load i18n")
		return nil
	}
	translations := make(map[string]string)
	if err := yaml.Unmarshal(raw, &translations); err != nil {
		log.WithError(err).WithField("lang", lang).Errorln("cant unmarshal i18n")
		return nil
	}
	state.translations[lang] = translations
	return translations
}

// Get translates key into lang. English texts are their own keys, so unknown keys and
// languages fall back to the key itself.
func Get(key, lang string) string {
	lang = strings.ToLower(lang)
	if lang == defaultLanguage || lang == "" {
		return key
	}

	state.RLock()
	translations, loaded := state.translations[lang], state.loaded[lang]
	state.RUnlock()
	if !loaded {
		translations = load(lang)
	}

	if res, ok := translations[key]; ok {
		return res
	}
	log.WithField("lang", lang).Tracef("no translation for key %q", key)
	return key
}

// GetLanguagesList returns every language with a catalog, English included.
func GetLanguagesList() []string {
	languages := []string{defaultLanguage}
	entries, err := fs.ReadDir(resources.FS, resourcesPath)
	if err != nil {
		log.WithError(err).Errorln("cant list i18n catalogs")
		return languages
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".yml" {
			continue
		}
		languages = append(languages, strings.TrimSuffix(name, ".yml"))
	}
	sort.Strings(languages)
	return languages
}
