// Package errors provides the classified error primitives shared by every
// build stage of sitebuilder.
//
// Each stage reports failures as a ClassifiedError whose category mirrors the
// build error taxonomy (io, empty_project, malformed_metadata,
// duplicate_identifier, render, template, config, internal). The context map
// carries the diagnosis details the author needs to fix a source file: the
// page path, an optional line number, the template name, or the conflicting
// path of a duplicate identifier.
//
// Example usage:
//
//	err := errors.MalformedMetadataError("metadata block is not closed").
//		WithContext(errors.KeyPath, "guide/intro.md").
//		WithContext(errors.KeyLine, 1).
//		Build()
package errors
