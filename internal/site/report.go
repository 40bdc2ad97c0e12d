package site

import (
	stderrors "errors"
	"fmt"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// ReportFileName is written at the output root of every successful build.
const ReportFileName = "build-report.json"

// Outcome is the final result of a build.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeWarning  Outcome = "warning"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// IssueSeverity is either error or warning.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// Issue is one problem found during a build.
type Issue struct {
	Path     string        `json:"path,omitempty"`
	Line     int           `json:"line,omitempty"`
	Stage    StageName     `json:"stage"`
	Category string        `json:"category"`
	Severity IssueSeverity `json:"severity"`
	Message  string        `json:"message"`
}

// String formats the issue as "path:line: [category] message".
func (i Issue) String() string {
	loc := i.Path
	if loc != "" && i.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, i.Line)
	}
	if loc == "" {
		return fmt.Sprintf("[%s] %s", i.Category, i.Message)
	}
	return fmt.Sprintf("%s: [%s] %s", loc, i.Category, i.Message)
}

// StageCount aggregates outcomes for a stage.
type StageCount struct {
	Success  int `json:"success"`
	Warning  int `json:"warning"`
	Fatal    int `json:"fatal"`
	Canceled int `json:"canceled"`
}

// Report captures what a build did. It is returned from every Build call,
// including failed ones.
type Report struct {
	SchemaVersion  int                         `json:"schema_version"`
	BuildID        string                      `json:"build_id"`
	Version        string                      `json:"version"`
	Source         string                      `json:"source"`
	Output         string                      `json:"output"`
	Start          time.Time                   `json:"start"`
	End            time.Time                   `json:"end"`
	Outcome        Outcome                     `json:"outcome"`
	Files          int                         `json:"files"`
	Assets         int                         `json:"assets"`
	Pages          int                         `json:"pages"`
	Documents      int                         `json:"documents"`
	Skipped        []string                    `json:"skipped"`
	Issues         []Issue                     `json:"issues"`
	StageDurations map[StageName]time.Duration `json:"stage_durations"`
	StageCounts    map[StageName]StageCount    `json:"stage_counts"`
	ManifestHash   string                      `json:"manifest_hash,omitempty"`
}

func newReport(buildID, ver, src, dst string) *Report {
	return &Report{
		SchemaVersion:  1,
		BuildID:        buildID,
		Version:        ver,
		Source:         src,
		Output:         dst,
		Start:          time.Now(),
		Skipped:        []string{},
		Issues:         []Issue{},
		StageDurations: make(map[StageName]time.Duration),
		StageCounts:    make(map[StageName]StageCount),
	}
}

// Errors returns the error-severity issues.
func (r *Report) Errors() []Issue { return r.filter(SeverityError) }

// Warnings returns the warning-severity issues.
func (r *Report) Warnings() []Issue { return r.filter(SeverityWarning) }

func (r *Report) filter(sev IssueSeverity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}

// Duration is the wall time of the build.
func (r *Report) Duration() time.Duration {
	if r.End.IsZero() {
		return time.Since(r.Start)
	}
	return r.End.Sub(r.Start)
}

// Summary returns a human-readable single-line summary.
func (r *Report) Summary() string {
	return fmt.Sprintf("build=%s files=%d pages=%d documents=%d skipped=%d errors=%d warnings=%d duration=%s outcome=%s",
		r.BuildID, r.Files, r.Pages, r.Documents, len(r.Skipped), len(r.Errors()), len(r.Warnings()),
		r.Duration().Truncate(time.Millisecond), r.Outcome)
}

func (r *Report) addError(stage StageName, err error) {
	r.Issues = append(r.Issues, issueFrom(stage, SeverityError, err))
}

func (r *Report) addWarning(stage StageName, err error) {
	r.Issues = append(r.Issues, issueFrom(stage, SeverityWarning, err))
}

// issueFrom extracts location and category from classified errors. Other
// errors are reported under the internal category.
func issueFrom(stage StageName, sev IssueSeverity, err error) Issue {
	issue := Issue{Stage: stage, Severity: sev, Category: string(errors.CategoryInternal), Message: err.Error()}
	if ce, ok := errors.AsClassified(err); ok {
		issue.Path = ce.Path()
		issue.Line = ce.Line()
		issue.Category = string(ce.Category())
		issue.Message = ce.Message()
		if cause := ce.Cause(); cause != nil {
			issue.Message += ": " + cause.Error()
		}
	}
	return issue
}

func (r *Report) recordStage(stage StageName, res StageResult, rec metrics.Recorder) {
	sc := r.StageCounts[stage]
	switch res {
	case StageResultSuccess:
		sc.Success++
	case StageResultWarning:
		sc.Warning++
	case StageResultFatal:
		sc.Fatal++
	case StageResultCanceled:
		sc.Canceled++
	}
	r.StageCounts[stage] = sc
	rec.IncStageResult(string(stage), res.label())
}

// finish sets the end time and derives the outcome from err and the issues.
func (r *Report) finish(err error) {
	r.End = time.Now()
	var se *StageError
	switch {
	case err != nil && stderrors.As(err, &se) && se.Kind == StageErrorCanceled:
		r.Outcome = OutcomeCanceled
	case err != nil:
		r.Outcome = OutcomeFailed
	case len(r.Warnings()) > 0:
		r.Outcome = OutcomeWarning
	default:
		r.Outcome = OutcomeSuccess
	}
}
