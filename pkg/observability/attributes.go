package observability

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys
const (
	attrMethod   = "method"
	attrPath     = "path"
	attrStatus   = "status"
	attrProject  = "project"
	attrExecStat = "execution_status"
	attrTimedOut = "timed_out"
)

func methodAttr(method string) attribute.KeyValue {
	return attribute.String(attrMethod, method)
}

func pathAttr(path string) attribute.KeyValue {
	// Normalize paths with IDs to reduce cardinality
	// /api/11/job/abc123/run -> /api/{version}/job/{id}/run
	return attribute.String(attrPath, normalizePath(path))
}

func statusAttr(code int) attribute.KeyValue {
	// Group status codes to reduce cardinality
	// 200-299 -> 2xx, 400-499 -> 4xx, 500-599 -> 5xx
	group := fmt.Sprintf("%dxx", code/100)
	return attribute.String(attrStatus, group)
}

func projectAttr(project string) attribute.KeyValue {
	return attribute.String(attrProject, project)
}

func statusStrAttr(status string) attribute.KeyValue {
	return attribute.String(attrExecStat, status)
}

func timedOutAttr(timedOut bool) attribute.KeyValue {
	return attribute.Bool(attrTimedOut, timedOut)
}

// normalizePath replaces dynamic path segments with placeholders.
func normalizePath(path string) string {
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		switch parts[i-1] {
		case "api":
			parts[i] = "{version}"
		case "job", "execution", "project":
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}
