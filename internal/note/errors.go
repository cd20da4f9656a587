package note

import "errors"

// ErrUnknownDocType indicates a document type with no template.
var ErrUnknownDocType = errors.New("unknown document type")

// ErrNoConverter indicates no PDF converter binary is installed.
var ErrNoConverter = errors.New("no PDF converter available (install pandoc or wkhtmltopdf)")
