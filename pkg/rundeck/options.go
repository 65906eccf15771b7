package rundeck

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"rundeck/pkg/apperrors"
)

// DupeOption controls how a job import treats an existing job with the same name.
type DupeOption string

const (
	DupeSkip   DupeOption = "skip"
	DupeCreate DupeOption = "create"
	DupeUpdate DupeOption = "update"
)

// UuidOption controls whether imported job definitions keep their UUIDs.
type UuidOption string

const (
	UuidPreserve UuidOption = "preserve"
	UuidRemove   UuidOption = "remove"
)

// JobDefFormat is a job definition serialization format.
type JobDefFormat string

const (
	FormatXML  JobDefFormat = "xml"
	FormatYAML JobDefFormat = "yaml"
)

// OutputFormat is an execution output serialization format.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputXML  OutputFormat = "xml"
	OutputYAML OutputFormat = "yaml"
)

func (f JobDefFormat) validate() error {
	if f == FormatXML || f == FormatYAML {
		return nil
	}
	return apperrors.InvalidArgument("format", fmt.Sprintf("unsupported job definition format %q", string(f)))
}

func (d DupeOption) validate() error {
	if d == "" || d == DupeSkip || d == DupeCreate || d == DupeUpdate {
		return nil
	}
	return apperrors.InvalidArgument("dupeOption", fmt.Sprintf("invalid dupeOption %q", string(d)))
}

func (u UuidOption) validate() error {
	if u == "" || u == UuidPreserve || u == UuidRemove {
		return nil
	}
	return apperrors.InvalidArgument("uuidOption", fmt.Sprintf("invalid uuidOption %q", string(u)))
}

// ListJobsOptions filters a job listing.
type ListJobsOptions struct {
	IDList         []string // job IDs to include
	GroupPath      string   // group or partial group path, "*" for all, "-" for top level
	JobFilter      string   // substring job name filter
	JobExactFilter string   // exact job name to match (API v2)
	GroupPathExact string   // exact group path to match (API v2)

	// Extra is passed through to the request untouched.
	Extra url.Values
}

func (o ListJobsOptions) params(project string) url.Values {
	p := url.Values{"project": {project}}
	if len(o.IDList) > 0 {
		p.Set("idlist", strings.Join(o.IDList, ","))
	}
	setIfPresent(p, "groupPath", o.GroupPath)
	setIfPresent(p, "jobFilter", o.JobFilter)
	setIfPresent(p, "jobExactFilter", o.JobExactFilter)
	setIfPresent(p, "groupPathExact", o.GroupPathExact)
	return mergeExtra(p, o.Extra)
}

// RunJobOptions configures a job run request.
type RunJobOptions struct {
	// ArgString is passed to the job as-is. When empty, Args is rendered as
	// "-key value" pairs instead.
	ArgString string
	Args      map[string]string

	LogLevel string // DEBUG, VERBOSE, INFO, WARN, ERROR
	AsUser   string

	// NodeFilters holds node inclusion/exclusion filters keyed by the server's
	// filter names (hostname, tags, os-name, exclude-hostname, ...).
	NodeFilters url.Values

	// Extra is passed through to the request untouched.
	Extra url.Values
}

func (o RunJobOptions) params() url.Values {
	p := url.Values{}
	if arg := renderArgString(o.ArgString, o.Args); arg != "" {
		p.Set("argString", arg)
	}
	setIfPresent(p, "loglevel", o.LogLevel)
	setIfPresent(p, "asUser", o.AsUser)
	for k, vs := range o.NodeFilters {
		for _, v := range vs {
			p.Add(k, v)
		}
	}
	return mergeExtra(p, o.Extra)
}

// ListExecutionsOptions filters an execution query.
type ListExecutionsOptions struct {
	StatusFilter Status
	UserFilter   string
	JobFilter    string
	RecentFilter string // e.g. "1d", "3w"
	Max          int
	Offset       int

	// Extra is passed through to the request untouched.
	Extra url.Values
}

func (o ListExecutionsOptions) params(project string) url.Values {
	p := url.Values{"project": {project}}
	setIfPresent(p, "statusFilter", string(o.StatusFilter))
	setIfPresent(p, "userFilter", o.UserFilter)
	setIfPresent(p, "jobFilter", o.JobFilter)
	setIfPresent(p, "recentFilter", o.RecentFilter)
	if o.Max > 0 {
		p.Set("max", fmt.Sprintf("%d", o.Max))
	}
	if o.Offset > 0 {
		p.Set("offset", fmt.Sprintf("%d", o.Offset))
	}
	return mergeExtra(p, o.Extra)
}

// ExecutionOutputOptions configures an execution output request.
type ExecutionOutputOptions struct {
	Offset    int
	LastLines int
	Format    OutputFormat

	// Extra is passed through to the request untouched.
	Extra url.Values
}

func (o ExecutionOutputOptions) params() url.Values {
	p := url.Values{}
	if o.Offset > 0 {
		p.Set("offset", fmt.Sprintf("%d", o.Offset))
	}
	if o.LastLines > 0 {
		p.Set("lastlines", fmt.Sprintf("%d", o.LastLines))
	}
	setIfPresent(p, "format", string(o.Format))
	return mergeExtra(p, o.Extra)
}

// ImportJobsOptions configures a job definition import.
type ImportJobsOptions struct {
	Format     JobDefFormat // defaults to xml
	DupeOption DupeOption
	UuidOption UuidOption // API v9
	Project    string

	// Extra is passed through to the request untouched.
	Extra url.Values
}

// ExportJobsOptions filters a job definition export.
type ExportJobsOptions struct {
	IDList    []string
	GroupPath string
	JobFilter string

	// Extra is passed through to the request untouched.
	Extra url.Values
}

func (o ExportJobsOptions) params(project string, format JobDefFormat) url.Values {
	p := url.Values{"project": {project}, "format": {string(format)}}
	if len(o.IDList) > 0 {
		p.Set("idlist", strings.Join(o.IDList, ","))
	}
	setIfPresent(p, "groupPath", o.GroupPath)
	setIfPresent(p, "jobFilter", o.JobFilter)
	return mergeExtra(p, o.Extra)
}

// AdhocOptions configures an ad-hoc command or script run.
type AdhocOptions struct {
	NodeThreadcount int
	NodeKeepgoing   bool
	AsUser          string

	// NodeFilters holds node inclusion/exclusion filters keyed by the server's
	// filter names.
	NodeFilters url.Values

	// Extra is passed through to the request untouched.
	Extra url.Values
}

func (o AdhocOptions) params(project string) url.Values {
	p := url.Values{"project": {project}}
	if o.NodeThreadcount > 0 {
		p.Set("nodeThreadcount", fmt.Sprintf("%d", o.NodeThreadcount))
	}
	if o.NodeKeepgoing {
		p.Set("nodeKeepgoing", "true")
	}
	setIfPresent(p, "asUser", o.AsUser)
	for k, vs := range o.NodeFilters {
		for _, v := range vs {
			p.Add(k, v)
		}
	}
	return mergeExtra(p, o.Extra)
}

// ListEventsOptions filters a history query.
type ListEventsOptions struct {
	JobIDFilter  string
	UserFilter   string
	StatusFilter string
	RecentFilter string
	Max          int
	Offset       int

	// Extra is passed through to the request untouched.
	Extra url.Values
}

func (o ListEventsOptions) params(project string) url.Values {
	p := url.Values{"project": {project}}
	setIfPresent(p, "jobIdFilter", o.JobIDFilter)
	setIfPresent(p, "userFilter", o.UserFilter)
	setIfPresent(p, "statusFilter", o.StatusFilter)
	setIfPresent(p, "recentFilter", o.RecentFilter)
	if o.Max > 0 {
		p.Set("max", fmt.Sprintf("%d", o.Max))
	}
	if o.Offset > 0 {
		p.Set("offset", fmt.Sprintf("%d", o.Offset))
	}
	return mergeExtra(p, o.Extra)
}

// renderArgString returns the explicit arg string when given, otherwise the
// args map rendered as "-key value" pairs in key order.
func renderArgString(argString string, args map[string]string) string {
	if argString != "" || len(args) == 0 {
		return argString
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, "-"+k+" "+args[k])
	}
	return strings.Join(parts, " ")
}

func setIfPresent(p url.Values, key, value string) {
	if value != "" {
		p.Set(key, value)
	}
}

// mergeExtra copies unrecognized caller options into the request untouched;
// they are never dropped.
func mergeExtra(p url.Values, extra url.Values) url.Values {
	for k, vs := range extra {
		for _, v := range vs {
			p.Add(k, v)
		}
	}
	return p
}
