package resources

import "embed"

// FS holds schema migrations for every supported store dialect and the translation catalogs.
//
//go:embed migrations i18n
var FS embed.FS
