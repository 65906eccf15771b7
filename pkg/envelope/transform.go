package envelope

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"rundeck/pkg/apperrors"
)

// Transform is a pure function shaping an Envelope into a domain result.
// Implementations must not mutate the envelope and perform no I/O.
//
// Result types by registered name:
//
//	map[string]string    execution, execution_output, project, job_import_status
//	map[string]any       system_info, execution_abort, success_message
//	[]map[string]string  jobs, executions, projects, project_resources, events
//	string               run_execution
type Transform func(*Envelope) (any, error)

// registry is process-wide and read-only after init.
var registry = map[string]Transform{
	"system_info":       systemInfo,
	"jobs":              jobs,
	"execution":         execution,
	"executions":        executions,
	"execution_output":  executionOutput,
	"execution_abort":   executionAbort,
	"run_execution":     runExecution,
	"project":           project,
	"projects":          projects,
	"project_resources": projectResources,
	"success_message":   successMessage,
	"events":            events,
	"job_import_status": jobImportStatus,
}

// Lookup returns the transform registered under name.
func Lookup(name string) (Transform, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// attrMap returns an element's attributes as a map.
func attrMap(el *etree.Element) map[string]string {
	m := make(map[string]string, len(el.Attr))
	for _, a := range el.Attr {
		m[a.Key] = a.Value
	}
	return m
}

// childMap returns an element's immediate children as tag/text pairs.
func childMap(el *etree.Element) map[string]string {
	children := el.ChildElements()
	m := make(map[string]string, len(children))
	for _, c := range children {
		m[c.Tag] = c.Text()
	}
	return m
}

// elementMap merges childMap and attrMap; attributes win on key collision.
func elementMap(el *etree.Element) map[string]string {
	m := childMap(el)
	for k, v := range attrMap(el) {
		m[k] = v
	}
	return m
}

// section locates the wrapper element carrying a payload: the root itself when
// its tag matches, otherwise the first matching descendant.
func section(e *Envelope, tag string) *etree.Element {
	root := e.Root()
	if root.Tag == tag {
		return root
	}
	return root.FindElement(".//" + tag)
}

// collect returns the wrapper's immediate item children, in document order,
// as merged maps. A missing wrapper or empty wrapper yields an empty slice.
func collect(e *Envelope, wrapperTag, itemTag string) []map[string]string {
	out := []map[string]string{}
	wrapper := section(e, wrapperTag)
	if wrapper == nil {
		return out
	}
	for _, el := range wrapper.SelectElements(itemTag) {
		out = append(out, elementMap(el))
	}
	return out
}

// single returns the first item element under the wrapper.
func single(e *Envelope, wrapperTag, itemTag, op string) (*etree.Element, error) {
	if wrapper := section(e, wrapperTag); wrapper != nil {
		if el := wrapper.SelectElement(itemTag); el != nil {
			return el, nil
		}
	}
	// Some replies carry the item without its plural wrapper.
	if el := section(e, itemTag); el != nil {
		return el, nil
	}
	return nil, apperrors.MalformedResponse(op, fmt.Errorf("no <%s> element in response", itemTag))
}

func systemInfo(e *Envelope) (any, error) {
	sys := section(e, "system")
	if sys == nil {
		return nil, apperrors.MalformedResponse("transform.system_info", errors.New("no <system> element in response"))
	}
	m := make(map[string]any)
	for _, child := range sys.ChildElements() {
		m[child.Tag] = elementMap(child)
	}
	return m, nil
}

func jobs(e *Envelope) (any, error) {
	return collect(e, "jobs", "job"), nil
}

func execution(e *Envelope) (any, error) {
	el, err := single(e, "executions", "execution", "transform.execution")
	if err != nil {
		return nil, err
	}
	m := elementMap(el)
	// The nested <job id=...> element carries the job ID, not the execution's.
	if job := el.SelectElement("job"); job != nil {
		if id := job.SelectAttrValue("id", ""); id != "" {
			m["job_id"] = id
		}
	}
	return m, nil
}

func executions(e *Envelope) (any, error) {
	return collect(e, "executions", "execution"), nil
}

func executionOutput(e *Envelope) (any, error) {
	out := section(e, "output")
	if out == nil {
		return nil, apperrors.MalformedResponse("transform.execution_output", errors.New("no <output> element in response"))
	}
	m := elementMap(out)
	delete(m, "entries")
	if entries := out.SelectElement("entries"); entries != nil {
		lines := make([]string, 0, len(entries.ChildElements()))
		for _, entry := range entries.SelectElements("entry") {
			lines = append(lines, entry.SelectAttrValue("log", entry.Text()))
		}
		m["entries"] = strings.Join(lines, "\n")
	}
	return m, nil
}

func executionAbort(e *Envelope) (any, error) {
	abort := section(e, "abort")
	if abort == nil {
		return nil, apperrors.MalformedResponse("transform.execution_abort", errors.New("no <abort> element in response"))
	}
	m := make(map[string]any)
	for k, v := range attrMap(abort) {
		m[k] = v
	}
	if exec := abort.SelectElement("execution"); exec != nil {
		m["execution"] = attrMap(exec)
	}
	return m, nil
}

func runExecution(e *Envelope) (any, error) {
	el, err := single(e, "executions", "execution", "transform.run_execution")
	if err != nil {
		return nil, err
	}
	id := el.SelectAttrValue("id", "")
	if id == "" {
		return nil, apperrors.MalformedResponse("transform.run_execution", errors.New("execution id missing from response"))
	}
	return id, nil
}

func project(e *Envelope) (any, error) {
	el, err := single(e, "projects", "project", "transform.project")
	if err != nil {
		return nil, err
	}
	return elementMap(el), nil
}

func projects(e *Envelope) (any, error) {
	return collect(e, "projects", "project"), nil
}

func projectResources(e *Envelope) (any, error) {
	return collect(e, "project", "node"), nil
}

func successMessage(e *Envelope) (any, error) {
	return map[string]any{
		"success": e.Success(),
		"message": e.Message(),
	}, nil
}

func events(e *Envelope) (any, error) {
	return collect(e, "events", "event"), nil
}

func jobImportStatus(e *Envelope) (any, error) {
	m := make(map[string]string)
	for _, outcome := range []string{"succeeded", "failed", "skipped"} {
		wrapper := section(e, outcome)
		if wrapper == nil {
			continue
		}
		for _, job := range wrapper.SelectElements("job") {
			if name := job.SelectElement("name"); name != nil {
				m[name.Text()] = outcome
			}
		}
	}
	return m, nil
}
