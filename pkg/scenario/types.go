// Package scenario defines mock scenarios: named, independently
// togglable collections of mock routes, each a matching rule plus a
// templated or static response.
package scenario

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario is a named group of mock routes. Routes are tried in
// declaration order; the first full match wins.
type Scenario struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Enabled     *bool    `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Routes      []*Route `json:"routes" yaml:"routes"`
}

// IsEnabled reports whether the scenario participates in matching.
// Unset means enabled.
func (s *Scenario) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Validate checks the scenario definition.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	if len(s.Routes) == 0 {
		return fmt.Errorf("scenario %q has no routes", s.Name)
	}
	for i, r := range s.Routes {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("scenario %q route %d: %w", s.Name, i, err)
		}
	}
	return nil
}

// Route is one mock rule: a method+path pattern, optional predicates,
// and the response to produce.
type Route struct {
	ID       string    `json:"id,omitempty" yaml:"id,omitempty"`
	Method   string    `json:"method" yaml:"method"`
	Path     string    `json:"path" yaml:"path"`
	Match    *Matcher  `json:"match,omitempty" yaml:"match,omitempty"`
	Response *Response `json:"response" yaml:"response"`
}

var validMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
	"ANY":              true,
}

// Validate checks the route definition, including predicate patterns
// that would otherwise fail silently at match time.
func (r *Route) Validate() error {
	method := strings.ToUpper(r.Method)
	if method == "" {
		return fmt.Errorf("method is required")
	}
	if !validMethods[method] {
		return fmt.Errorf("unsupported method %q", r.Method)
	}
	// Store the method normalized so routing and matching compare exact.
	r.Method = method
	if r.Path == "" || r.Path[0] != '/' {
		return fmt.Errorf("path must start with /")
	}
	if r.Response == nil {
		return fmt.Errorf("response is required")
	}
	if err := r.Response.Validate(); err != nil {
		return err
	}
	if r.Match != nil {
		if err := r.Match.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Matcher holds the optional predicates a request must satisfy beyond
// method and path. An empty matcher always matches.
type Matcher struct {
	// Headers maps header name to required value. Names are
	// case-insensitive, values case-sensitive.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// HeaderExists lists headers that must be present with any value.
	HeaderExists []string `json:"headerExists,omitempty" yaml:"headerExists,omitempty"`

	// QueryParams maps query parameter name to required value.
	QueryParams map[string]string `json:"queryParams,omitempty" yaml:"queryParams,omitempty"`

	// QueryExists lists query parameters that must be present.
	QueryExists []string `json:"queryExists,omitempty" yaml:"queryExists,omitempty"`

	BodyContains string `json:"bodyContains,omitempty" yaml:"bodyContains,omitempty"`
	BodyEquals   string `json:"bodyEquals,omitempty" yaml:"bodyEquals,omitempty"`

	// BodyPattern is an RE2 regular expression matched against the body.
	BodyPattern string `json:"bodyPattern,omitempty" yaml:"bodyPattern,omitempty"`

	// BodyJSONPath maps JSONPath expressions to expected values. A value
	// of {"exists": true|false} is a presence check instead.
	BodyJSONPath map[string]any `json:"bodyJsonPath,omitempty" yaml:"bodyJsonPath,omitempty"`

	// When is an optional expression over the request (method, path,
	// headers, query) that must evaluate to true.
	When string `json:"when,omitempty" yaml:"when,omitempty"`
}

// Validate checks that the compiled predicates are well-formed.
func (m *Matcher) Validate() error {
	if m.BodyPattern != "" {
		if _, err := regexp.Compile(m.BodyPattern); err != nil {
			return fmt.Errorf("bodyPattern: %w", err)
		}
	}
	return nil
}

// Response specifies the HTTP response a matched route produces.
type Response struct {
	StatusCode int               `json:"statusCode" yaml:"statusCode"`
	Headers    map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Body is the response body, rendered as a template when Template is
	// true, returned byte-for-byte otherwise.
	Body string `json:"body,omitempty" yaml:"body,omitempty"`

	// BodyFile reads the body from a file instead. Mutually exclusive
	// with Body.
	BodyFile string `json:"bodyFile,omitempty" yaml:"bodyFile,omitempty"`

	// Template selects rendered-body vs raw-body.
	Template bool `json:"template,omitempty" yaml:"template,omitempty"`

	// DelayMs suspends the request before the response is returned.
	DelayMs int `json:"delayMs,omitempty" yaml:"delayMs,omitempty"`
}

// Validate checks the response definition.
func (r *Response) Validate() error {
	if r.StatusCode < 100 || r.StatusCode > 599 {
		return fmt.Errorf("statusCode %d out of range", r.StatusCode)
	}
	if r.Body != "" && r.BodyFile != "" {
		return fmt.Errorf("body and bodyFile are mutually exclusive")
	}
	if r.DelayMs < 0 {
		return fmt.Errorf("delayMs must not be negative")
	}
	return nil
}

// UnmarshalYAML accepts the body field as either a string or a YAML
// mapping/sequence. Structured bodies are marshalled to a JSON string,
// so config files can write body: {id: 1} instead of body: '{"id": 1}'.
func (r *Response) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("response must be a mapping")
	}

	type responseAlias Response
	var alias responseAlias

	var bodyNode *yaml.Node
	for i := 0; i+1 < len(value.Content); i += 2 {
		if value.Content[i].Value != "body" {
			continue
		}
		node := value.Content[i+1]
		if node.Kind == yaml.ScalarNode {
			break
		}
		// Swap in an empty scalar so the alias decode does not choke on
		// the structured body, then restore the node.
		bodyNode = node
		value.Content[i+1] = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str"}
		defer func(i int) { value.Content[i+1] = bodyNode }(i)
		break
	}

	if err := value.Decode(&alias); err != nil {
		return err
	}
	*r = Response(alias)

	if bodyNode != nil {
		var structured any
		if err := bodyNode.Decode(&structured); err != nil {
			return fmt.Errorf("body: %w", err)
		}
		encoded, err := json.Marshal(structured)
		if err != nil {
			return fmt.Errorf("body: %w", err)
		}
		r.Body = string(encoded)
	}
	return nil
}
