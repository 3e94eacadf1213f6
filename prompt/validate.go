package prompt

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidateFile checks a template file and returns every problem found,
// one message per issue. An empty slice means the file is valid.
func ValidateFile(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return []string{fmt.Sprintf("read file: %v", err)}
	}

	var tf templateFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return []string{fmt.Sprintf("yaml syntax: %v", err)}
	}

	if len(tf.Templates) == 0 {
		return []string{"no test_generation_prompts section"}
	}

	var issues []string
	for _, name := range sortedKeys(tf.Templates) {
		tmpl := tf.Templates[name]
		if tmpl.Name == "" {
			issues = append(issues, fmt.Sprintf("template %s: missing field name", name))
		}
		if tmpl.Description == "" {
			issues = append(issues, fmt.Sprintf("template %s: missing field description", name))
		}
		if tmpl.Template == "" {
			issues = append(issues, fmt.Sprintf("template %s: missing field template", name))
			continue
		}
		if tmpl.Variables.Required == nil {
			issues = append(issues, fmt.Sprintf("template %s: missing required variables list", name))
			continue
		}
		for _, v := range tmpl.Variables.Required {
			if !strings.Contains(tmpl.Template, "{"+v+"}") {
				issues = append(issues,
					fmt.Sprintf("template %s: no placeholder for required variable %s", name, v))
			}
		}
	}

	// Selection rules must point at templates the file declares.
	for _, category := range sortedKeys(tf.Selection.HeadingKeywords) {
		if t := tf.Selection.HeadingKeywords[category].Template; t != "" {
			if _, ok := tf.Templates[t]; !ok {
				issues = append(issues,
					fmt.Sprintf("heading rule %s: unknown template %s", category, t))
			}
		}
	}
	for _, category := range sortedKeys(tf.Selection.IDPatterns) {
		if t := tf.Selection.IDPatterns[category].Template; t != "" {
			if _, ok := tf.Templates[t]; !ok {
				issues = append(issues,
					fmt.Sprintf("id rule %s: unknown template %s", category, t))
			}
		}
	}

	return issues
}
