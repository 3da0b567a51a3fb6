// Package templating implements the placeholder language used by document
// templates: {{ expr | filter(args) }} outputs, {% if %} and {% for %} blocks
// and {# comments #}, evaluated against a tagged Value context.
package templating
