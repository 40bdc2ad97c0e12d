package site

import (
	"git.home.luguber.info/inful/sitebuilder/internal/compose"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/render"
)

// Option customizes a Build.
type Option func(*options)

type options struct {
	recorder    metrics.Recorder
	highlighter render.Highlighter
	engine      compose.Engine
	buildID     string
}

// WithRecorder sends stage and build metrics to r.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithHighlighter replaces the default chroma highlighter.
func WithHighlighter(h render.Highlighter) Option {
	return func(o *options) { o.highlighter = h }
}

// WithEngine replaces the template engine built from the theme.
func WithEngine(e compose.Engine) Option {
	return func(o *options) { o.engine = e }
}

// WithBuildID fixes the build identifier instead of generating one.
func WithBuildID(id string) Option {
	return func(o *options) { o.buildID = id }
}
