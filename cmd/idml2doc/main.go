// Package main provides the entry point for the idml2doc CLI.
//
// idml2doc converts Adobe InDesign Markup (IDML) packages into simple,
// readable documents. It extracts the text of every story and the link
// path of every placed image, and writes them as HTML, Word (docx),
// Markdown, JSON or plain text.
//
// Usage:
//
//	idml2doc convert brochure.idml
//	idml2doc convert -f markdown --stdout brochure.idml
//	idml2doc history brochure.idml
//
// See --help for all available options.
package main

// main is the entry point for idml2doc.
func main() {
	Execute()
}
