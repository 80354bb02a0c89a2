package domain

import (
	"regexp"
	"strings"
)

// Template is a message format with {{variable}} placeholders. Strategies
// use it to shape subject, body and metadata into provider text.
type Template struct {
	Name      string   `json:"name"`
	Content   string   `json:"content"`
	Variables []string `json:"variables"`
}

// variablePattern matches template variables like {{variable_name}}
var variablePattern = regexp.MustCompile(`\{\{\s*([\w.-]+)\s*\}\}`)

// NewTemplate creates a new template
func NewTemplate(name, content string) *Template {
	t := &Template{
		Name:    name,
		Content: content,
	}
	t.ExtractVariables()
	return t
}

// ExtractVariables extracts variable names from the template content
func (t *Template) ExtractVariables() {
	matches := variablePattern.FindAllStringSubmatch(t.Content, -1)
	seen := make(map[string]bool)
	variables := make([]string, 0)

	for _, match := range matches {
		if len(match) > 1 && !seen[match[1]] {
			variables = append(variables, match[1])
			seen[match[1]] = true
		}
	}
	t.Variables = variables
}

// Render renders the template with the given variables. Unknown
// placeholders are left untouched.
func (t *Template) Render(vars map[string]string) string {
	return variablePattern.ReplaceAllStringFunc(t.Content, func(placeholder string) string {
		name := strings.TrimSpace(strings.Trim(placeholder, "{}"))
		if value, ok := vars[name]; ok {
			return value
		}
		return placeholder
	})
}

// Validate returns the variables the template needs that vars does not provide
func (t *Template) Validate(vars map[string]string) []string {
	missing := make([]string, 0)
	for _, v := range t.Variables {
		if _, ok := vars[v]; !ok {
			missing = append(missing, v)
		}
	}
	return missing
}

// TemplateVars builds the variable set available to templates for a request:
// every metadata entry plus subject, body and recipient, which take precedence.
func TemplateVars(req *NotificationRequest) map[string]string {
	vars := make(map[string]string, len(req.Metadata)+3)
	for k, v := range req.Metadata {
		vars[k] = v
	}
	vars["subject"] = req.Subject
	vars["body"] = req.Body
	vars["recipient"] = req.Recipient
	return vars
}
