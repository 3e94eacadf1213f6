package prompt

import _ "embed"

// embeddedTemplates is the built-in template set, used whenever no template
// file is configured or the configured one does not exist.
//
//go:embed templates/test_generation.yaml
var embeddedTemplates []byte
