// Package project holds the canonical model shared by the extractor, the
// adaptors and the generators: records, requests and their typed fields.
package project

import "strings"

const (
	// ResponseEmpty names the absence of a response or error body.
	ResponseEmpty = "ResponseEmpty"

	// InlineObject is the complex type name given to inline object schemas,
	// which cannot be mapped to a named record.
	InlineObject = "unresolved-inline-object"
)

// Field is a named, typed member of a record or request.
type Field struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Optional bool      `json:"optional"`
	Value    *string   `json:"value"`
}

// DataRecord is a named data shape, the counterpart of a schema object.
type DataRecord struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// Request is a named HTTP operation with its parameters and body types.
type Request struct {
	Name         string  `json:"name"`
	Path         string  `json:"path"`
	Fields       []Field `json:"fields"`
	Method       Method  `json:"method"`
	ResponseType string  `json:"response_type"`
	ErrorType    string  `json:"error_type"`
}

// Info carries the API location taken from the first declared server.
type Info struct {
	Host     string `json:"host"`
	Endpoint string `json:"endpoint"`
}

// Project is a full set of records and requests, either extracted from a
// specification or reported by an adaptor.
type Project struct {
	Info     Info         `json:"info"`
	Records  []DataRecord `json:"records"`
	Requests []Request    `json:"requests"`
}

// RecordNames returns the record names in order.
func (p *Project) RecordNames() []string {
	names := make([]string, 0, len(p.Records))
	for _, r := range p.Records {
		names = append(names, r.Name)
	}
	return names
}

// RequestNames returns the request names in order.
func (p *Project) RequestNames() []string {
	names := make([]string, 0, len(p.Requests))
	for _, r := range p.Requests {
		names = append(names, r.Name)
	}
	return names
}

var requestNameStripper = strings.NewReplacer("/", "", "{", "", "}", "")

// RequestName derives the stable request name for a path and method,
// e.g. "/users/{id}" + GET gives "usersidgetrequest".
func RequestName(path string, method Method) string {
	return strings.ToLower(requestNameStripper.Replace(path + string(method) + "request"))
}

// Operation describes the request as "<path> <lower-case method>", the words
// generators derive identifiers from, e.g. "/pets/{id} get".
func (r Request) Operation() string {
	return r.Path + " " + strings.ToLower(string(r.Method))
}
