package site

// StageName is a strongly-typed identifier for a build stage.
type StageName string

// Canonical stages in execution order.
const (
	StageLoadSources       StageName = "load_sources"
	StageExtractMetadata   StageName = "extract_metadata"
	StageBuildTree         StageName = "build_tree"
	StageGitInfo           StageName = "git_info"
	StageResolveNavigation StageName = "resolve_navigation"
	StageRenderPages       StageName = "render_pages"
	StageWriteOutput       StageName = "write_output"
	StageLinkCheck         StageName = "link_check"
)
