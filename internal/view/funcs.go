package view

import (
	"html/template"

	"go-course-format/internal/i18n"
)

// Funcs returns the template functions looking up strings in s.
func Funcs(s *i18n.Strings) template.FuncMap {
	return template.FuncMap{
		"str":    s.Get,
		"plural": s.Plural,
	}
}
