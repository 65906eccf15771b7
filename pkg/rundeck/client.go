// Package rundeck is the endpoint facade for the Rundeck API: one method per
// server operation, shaped results via the envelope transforms, and the
// run-and-wait execution poller.
package rundeck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/beevik/etree"

	"rundeck/pkg/apperrors"
	"rundeck/pkg/connection"
	"rundeck/pkg/envelope"
	"rundeck/pkg/observability"
)

// Client is a facade over a server connection. Each method issues exactly one
// request; there are no retries and no caching.
type Client struct {
	conn    *connection.Connection
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a client over an established connection.
func New(conn *connection.Connection) *Client {
	return &Client{
		conn:   conn,
		logger: slog.With("component", "client"),
	}
}

// SetMetrics attaches an optional metrics recorder to the client and its
// connection. Nil disables recording.
func (c *Client) SetMetrics(m *observability.Metrics) {
	c.metrics = m
	if m != nil {
		c.conn.SetMetrics(m)
	}
}

// requiresVersion gates an operation on a minimum API version. The check runs
// before any request is issued.
func (c *Client) requiresVersion(op string, min int) error {
	if c.conn.APIVersion() < min {
		return apperrors.UnsupportedOperation(op, min, c.conn.APIVersion())
	}
	return nil
}

// call issues a request and returns the checked envelope's structured result.
func (c *Client) call(ctx context.Context, method, path string, params url.Values, transformName string) (any, error) {
	env, err := c.conn.Call(ctx, method, path, connection.RequestOptions{Params: params}, transformName)
	if err != nil {
		return nil, err
	}
	if err := env.CheckError(); err != nil {
		return nil, err
	}
	return env.AsStructured()
}

func (c *Client) callMap(ctx context.Context, method, path string, params url.Values, transformName string) (map[string]string, error) {
	res, err := c.call(ctx, method, path, params, transformName)
	if err != nil {
		return nil, err
	}
	m, ok := res.(map[string]string)
	if !ok {
		return nil, apperrors.MalformedResponse(transformName, fmt.Errorf("unexpected result shape %T", res))
	}
	return m, nil
}

func (c *Client) callList(ctx context.Context, method, path string, params url.Values, transformName string) ([]map[string]string, error) {
	res, err := c.call(ctx, method, path, params, transformName)
	if err != nil {
		return nil, err
	}
	l, ok := res.([]map[string]string)
	if !ok {
		return nil, apperrors.MalformedResponse(transformName, fmt.Errorf("unexpected result shape %T", res))
	}
	return l, nil
}

// SystemInfo returns the server's system information sections.
func (c *Client) SystemInfo(ctx context.Context) (map[string]any, error) {
	res, err := c.call(ctx, http.MethodGet, "system/info", nil, "system_info")
	if err != nil {
		return nil, err
	}
	return res.(map[string]any), nil
}

// ListJobs lists the jobs of a project.
func (c *Client) ListJobs(ctx context.Context, project string, opts ListJobsOptions) ([]map[string]string, error) {
	if opts.JobExactFilter != "" || opts.GroupPathExact != "" {
		if err := c.requiresVersion("jobs exact filters", 2); err != nil {
			return nil, err
		}
	}
	return c.callList(ctx, http.MethodGet, "jobs", opts.params(project), "jobs")
}

// GetJobID resolves an exact job name within a project to its server-assigned
// ID. Zero matches yield a not-found error.
func (c *Client) GetJobID(ctx context.Context, project, name string) (string, error) {
	if err := c.requiresVersion("job name lookup", 2); err != nil {
		return "", err
	}
	jobs, err := c.ListJobs(ctx, project, ListJobsOptions{JobExactFilter: name})
	if err != nil {
		return "", err
	}
	if len(jobs) == 0 {
		return "", apperrors.NotFound("job", name)
	}
	return jobs[0]["id"], nil
}

// ResolveJobID returns nameOrID unchanged when it is already shaped like a
// server-assigned ID, otherwise resolves it as an exact job name.
func (c *Client) ResolveJobID(ctx context.Context, project, nameOrID string) (string, error) {
	if IsJobID(nameOrID) {
		return nameOrID, nil
	}
	return c.GetJobID(ctx, project, nameOrID)
}

// RunJob submits a run of the identified job and returns the initial execution.
func (c *Client) RunJob(ctx context.Context, jobID string, opts RunJobOptions) (*Execution, error) {
	m, err := c.callMap(ctx, http.MethodGet, "job/"+jobID+"/run", opts.params(), "execution")
	if err != nil {
		return nil, err
	}
	exec := executionFromMap(m)
	c.logger.Info("Job run submitted", "jobId", jobID, "executionId", exec.ID)
	if c.metrics != nil {
		c.metrics.RecordExecutionStarted(ctx, m["project"])
	}
	return exec, nil
}

// RunJobByName resolves a job name within a project and submits a run.
func (c *Client) RunJobByName(ctx context.Context, project, name string, opts RunJobOptions) (*Execution, error) {
	id, err := c.ResolveJobID(ctx, project, name)
	if err != nil {
		return nil, err
	}
	return c.RunJob(ctx, id, opts)
}

// Execution fetches the current state of an execution.
func (c *Client) Execution(ctx context.Context, executionID string) (*Execution, error) {
	m, err := c.callMap(ctx, http.MethodGet, "execution/"+executionID, nil, "execution")
	if err != nil {
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.RecordExecutionPoll(ctx)
	}
	return executionFromMap(m), nil
}

// ListExecutions queries the executions of a project.
func (c *Client) ListExecutions(ctx context.Context, project string, opts ListExecutionsOptions) ([]map[string]string, error) {
	if err := c.requiresVersion("executions", 5); err != nil {
		return nil, err
	}
	return c.callList(ctx, http.MethodGet, "executions", opts.params(project), "executions")
}

// ListRunningExecutions lists the currently running executions of a project.
func (c *Client) ListRunningExecutions(ctx context.Context, project string) ([]map[string]string, error) {
	if err := c.requiresVersion("running executions", 5); err != nil {
		return nil, err
	}
	params := url.Values{"project": {project}}
	return c.callList(ctx, http.MethodGet, "executions/running", params, "executions")
}

// ExecutionOutput fetches the output of an execution.
func (c *Client) ExecutionOutput(ctx context.Context, executionID string, opts ExecutionOutputOptions) (map[string]string, error) {
	if err := c.requiresVersion("execution output", 5); err != nil {
		return nil, err
	}
	return c.callMap(ctx, http.MethodGet, "execution/"+executionID+"/output", opts.params(), "execution_output")
}

// AbortExecution requests an abort of a running execution.
func (c *Client) AbortExecution(ctx context.Context, executionID string) (map[string]any, error) {
	res, err := c.call(ctx, http.MethodGet, "execution/"+executionID+"/abort", nil, "execution_abort")
	if err != nil {
		return nil, err
	}
	return res.(map[string]any), nil
}

// RunAdhocCommand submits an ad-hoc command run and returns the execution ID.
func (c *Client) RunAdhocCommand(ctx context.Context, project, command string, opts AdhocOptions) (string, error) {
	params := opts.params(project)
	params.Set("exec", command)
	res, err := c.call(ctx, http.MethodGet, "run/command", params, "run_execution")
	if err != nil {
		return "", err
	}
	id := res.(string)
	c.logger.Info("Ad-hoc command submitted", "project", project, "executionId", id)
	return id, nil
}

// RunAdhocScript uploads and runs a script and returns the execution ID.
func (c *Client) RunAdhocScript(ctx context.Context, project string, script io.Reader, opts AdhocOptions) (string, error) {
	env, err := c.conn.Call(ctx, http.MethodPost, "run/script", connection.RequestOptions{
		Params: opts.params(project),
		Files:  map[string]io.Reader{"scriptFile": script},
	}, "run_execution")
	if err != nil {
		return "", err
	}
	if err := env.CheckError(); err != nil {
		return "", err
	}
	res, err := env.AsStructured()
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

// RunAdhocScriptURL runs a script fetched from a URL and returns the
// execution ID.
func (c *Client) RunAdhocScriptURL(ctx context.Context, project, scriptURL string, opts AdhocOptions) (string, error) {
	if err := c.requiresVersion("run script url", 4); err != nil {
		return "", err
	}
	params := opts.params(project)
	params.Set("scriptURL", scriptURL)
	res, err := c.call(ctx, http.MethodPost, "run/url", params, "run_execution")
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

// ExportJobs exports a project's job definitions in the requested format and
// returns the raw document.
func (c *Client) ExportJobs(ctx context.Context, project string, format JobDefFormat, opts ExportJobsOptions) (string, error) {
	if format == "" {
		format = FormatXML
	}
	if err := format.validate(); err != nil {
		return "", err
	}
	resp, err := c.conn.CallRaw(ctx, http.MethodGet, "jobs/export", connection.RequestOptions{
		Params: opts.params(project, format),
	})
	if err != nil {
		return "", err
	}
	return resp.Body, nil
}

// ImportJobs uploads job definitions and returns each job's import outcome
// ("succeeded", "failed" or "skipped") keyed by job name.
func (c *Client) ImportJobs(ctx context.Context, defs io.Reader, opts ImportJobsOptions) (map[string]string, error) {
	format := opts.Format
	if format == "" {
		format = FormatXML
	}
	if err := format.validate(); err != nil {
		return nil, err
	}
	if err := opts.DupeOption.validate(); err != nil {
		return nil, err
	}
	if err := opts.UuidOption.validate(); err != nil {
		return nil, err
	}
	if opts.UuidOption != "" {
		if err := c.requiresVersion("import uuidOption", 9); err != nil {
			return nil, err
		}
	}

	params := url.Values{"format": {string(format)}}
	setIfPresent(params, "dupeOption", string(opts.DupeOption))
	setIfPresent(params, "uuidOption", string(opts.UuidOption))
	setIfPresent(params, "project", opts.Project)
	params = mergeExtra(params, opts.Extra)

	env, err := c.conn.Call(ctx, http.MethodPost, "jobs/import", connection.RequestOptions{
		Params: params,
		Files:  map[string]io.Reader{"xmlBatch": defs},
	}, "job_import_status")
	if err != nil {
		return nil, err
	}
	if err := env.CheckError(); err != nil {
		return nil, err
	}
	res, err := env.AsStructured()
	if err != nil {
		return nil, err
	}
	return res.(map[string]string), nil
}

// GetJobDefinition exports a single job definition in the requested format.
func (c *Client) GetJobDefinition(ctx context.Context, jobID string, format JobDefFormat) (string, error) {
	if format == "" {
		format = FormatXML
	}
	if err := format.validate(); err != nil {
		return "", err
	}
	resp, err := c.conn.CallRaw(ctx, http.MethodGet, "job/"+jobID, connection.RequestOptions{
		Params: url.Values{"format": {string(format)}},
	})
	if err != nil {
		return "", err
	}
	return resp.Body, nil
}

// DeleteJob deletes a job by ID.
func (c *Client) DeleteJob(ctx context.Context, jobID string) error {
	resp, err := c.conn.CallRaw(ctx, http.MethodDelete, "job/"+jobID, connection.RequestOptions{})
	if err != nil {
		return err
	}
	// Newer servers reply 204 with no body on success.
	if resp.StatusCode == http.StatusNoContent || resp.Body == "" {
		return nil
	}
	env, err := envelope.New(resp.Body, c.conn.APIVersion())
	if err != nil {
		return err
	}
	return env.CheckError()
}

// BulkDeleteFailure records one job that could not be deleted.
type BulkDeleteFailure struct {
	ID      string
	Message string
}

// BulkDeleteReport is the partial-results outcome of a bulk delete.
type BulkDeleteReport struct {
	Deleted []string
	Failed  []BulkDeleteFailure
}

// DeleteJobs deletes jobs one by one, collecting per-job server failures into
// a report instead of stopping at the first. Transport failures still abort
// the whole operation.
func (c *Client) DeleteJobs(ctx context.Context, jobIDs []string) (*BulkDeleteReport, error) {
	report := &BulkDeleteReport{}
	for _, id := range jobIDs {
		err := c.DeleteJob(ctx, id)
		if err == nil {
			report.Deleted = append(report.Deleted, id)
			continue
		}
		if errors.Is(err, apperrors.ErrServer) || errors.Is(err, apperrors.ErrHTTP) {
			c.logger.Warn("Job delete failed", "jobId", id, "error", err)
			report.Failed = append(report.Failed, BulkDeleteFailure{ID: id, Message: err.Error()})
			continue
		}
		return nil, err
	}
	return report, nil
}

// ListProjects lists all projects visible to the caller.
func (c *Client) ListProjects(ctx context.Context) ([]map[string]string, error) {
	return c.callList(ctx, http.MethodGet, "projects", nil, "projects")
}

// GetProject fetches one project by name.
func (c *Client) GetProject(ctx context.Context, name string) (map[string]string, error) {
	return c.callMap(ctx, http.MethodGet, "project/"+name, nil, "project")
}

// FindProject looks a project up by name. The second result reports whether
// it exists; creation on absence is the caller's policy, via CreateProject.
func (c *Client) FindProject(ctx context.Context, name string) (map[string]string, bool, error) {
	projects, err := c.ListProjects(ctx)
	if err != nil {
		return nil, false, err
	}
	for _, p := range projects {
		if p["name"] == name {
			return p, true, nil
		}
	}
	return nil, false, nil
}

// CreateProject creates a new project.
func (c *Client) CreateProject(ctx context.Context, name string) (map[string]string, error) {
	if err := c.requiresVersion("project creation", 11); err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	doc.CreateElement("project").CreateElement("name").SetText(name)
	body, err := doc.WriteToString()
	if err != nil {
		return nil, err
	}
	env, err := c.conn.Call(ctx, http.MethodPost, "projects", connection.RequestOptions{
		Body:        strings.NewReader(body),
		ContentType: "application/xml",
	}, "project")
	if err != nil {
		return nil, err
	}
	if err := env.CheckError(); err != nil {
		return nil, err
	}
	res, err := env.AsStructured()
	if err != nil {
		return nil, err
	}
	c.logger.Info("Project created", "project", name)
	return res.(map[string]string), nil
}

// ProjectResources lists a project's node inventory.
func (c *Client) ProjectResources(ctx context.Context, project string) ([]map[string]string, error) {
	return c.callList(ctx, http.MethodGet, "project/"+project+"/resources", nil, "project_resources")
}

// UpdateProjectResources replaces a project's node inventory.
func (c *Client) UpdateProjectResources(ctx context.Context, project string, nodes []Node) (map[string]any, error) {
	doc, err := nodesDocument(nodes)
	if err != nil {
		return nil, err
	}
	env, err := c.conn.Call(ctx, http.MethodPost, "project/"+project+"/resources", connection.RequestOptions{
		Body:        strings.NewReader(doc),
		ContentType: "text/xml",
	}, "success_message")
	if err != nil {
		return nil, err
	}
	if err := env.CheckError(); err != nil {
		return nil, err
	}
	res, err := env.AsStructured()
	if err != nil {
		return nil, err
	}
	return res.(map[string]any), nil
}

// RefreshProjectResources asks the server to refresh a project's resources,
// optionally from a specific provider URL.
func (c *Client) RefreshProjectResources(ctx context.Context, project, providerURL string) (map[string]any, error) {
	if err := c.requiresVersion("resources refresh", 2); err != nil {
		return nil, err
	}
	params := url.Values{}
	setIfPresent(params, "providerURL", providerURL)
	res, err := c.call(ctx, http.MethodPost, "project/"+project+"/resources/refresh", params, "success_message")
	if err != nil {
		return nil, err
	}
	return res.(map[string]any), nil
}

// ListEvents queries a project's history.
func (c *Client) ListEvents(ctx context.Context, project string, opts ListEventsOptions) ([]map[string]string, error) {
	if err := c.requiresVersion("history", 5); err != nil {
		return nil, err
	}
	return c.callList(ctx, http.MethodGet, "history", opts.params(project), "events")
}
