package notify

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// defaultMessages are the built-in texts per language.
var defaultMessages = map[language.Tag]map[string]string{
	language.English: {
		MsgCouldNotSaveOption:             "Could not save option.",
		MsgSomeSettingsAreManaged:         "Some settings are managed by your administrator and cannot be changed.",
		MsgCouldNotLoadOptions:            "Could not load options.",
		MsgResettingOptionsWorked:         "All options were reset to their defaults.",
		MsgUndoButton:                     "Undo",
		MsgCouldNotUndoAction:             "Could not undo the last action.",
		MsgResettingOptionsFailed:         "Resetting the options failed.",
		MsgOptionIsDisabledBecauseManaged: "This option is managed by your administrator.",
	},
	language.German: {
		MsgCouldNotSaveOption:             "Die Einstellung konnte nicht gespeichert werden.",
		MsgSomeSettingsAreManaged:         "Einige Einstellungen werden von Ihrem Administrator verwaltet und können nicht geändert werden.",
		MsgCouldNotLoadOptions:            "Die Einstellungen konnten nicht geladen werden.",
		MsgResettingOptionsWorked:         "Alle Einstellungen wurden zurückgesetzt.",
		MsgUndoButton:                     "Rückgängig",
		MsgCouldNotUndoAction:             "Die letzte Aktion konnte nicht rückgängig gemacht werden.",
		MsgResettingOptionsFailed:         "Das Zurücksetzen der Einstellungen ist fehlgeschlagen.",
		MsgOptionIsDisabledBecauseManaged: "Diese Einstellung wird von Ihrem Administrator verwaltet.",
	},
}

// CatalogOption configures a Catalog.
type CatalogOption func(*catalog.Builder) error

// WithMessage adds or replaces the text of key for tag.
func WithMessage(tag language.Tag, key, text string) CatalogOption {
	return func(b *catalog.Builder) error {
		return b.SetString(tag, key, text)
	}
}

// Catalog translates message keys through golang.org/x/text. Unknown keys
// are printed verbatim.
type Catalog struct {
	printer *message.Printer
}

// NewCatalog builds a Catalog for tag seeded with the built-in messages.
func NewCatalog(tag language.Tag, opts ...CatalogOption) (*Catalog, error) {
	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	for lang, messages := range defaultMessages {
		for key, text := range messages {
			if err := builder.SetString(lang, key, text); err != nil {
				return nil, err
			}
		}
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(builder); err != nil {
			return nil, err
		}
	}
	return &Catalog{printer: message.NewPrinter(tag, message.Catalog(builder))}, nil
}

// Translate implements Translator.
func (c *Catalog) Translate(key string) string {
	return c.printer.Sprintf(key)
}
