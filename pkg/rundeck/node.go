package rundeck

import (
	"strings"

	"github.com/beevik/etree"

	"rundeck/pkg/apperrors"
)

// Node is one entry of a project's resource model.
type Node struct {
	Name     string
	Hostname string
	Username string

	Description string
	OsArch      string
	OsFamily    string
	OsName      string
	EditURL     string
	RemoteURL   string
	Tags        []string

	// Attributes holds additional free-form node attributes.
	Attributes map[string]string
}

// Validate checks the fields the resource model format requires.
func (n Node) Validate() error {
	if n.Name == "" {
		return apperrors.InvalidArgument("name", "node name is required")
	}
	if n.Hostname == "" {
		return apperrors.InvalidArgument("hostname", "node hostname is required")
	}
	if n.Username == "" {
		return apperrors.InvalidArgument("username", "node username is required")
	}
	return nil
}

// xml renders the node as a resource model <node> element.
func (n Node) xml(parent *etree.Element) {
	el := parent.CreateElement("node")
	el.CreateAttr("name", n.Name)
	el.CreateAttr("hostname", n.Hostname)
	el.CreateAttr("username", n.Username)
	if n.Description != "" {
		el.CreateAttr("description", n.Description)
	}
	if n.OsArch != "" {
		el.CreateAttr("osArch", n.OsArch)
	}
	if n.OsFamily != "" {
		el.CreateAttr("osFamily", n.OsFamily)
	}
	if n.OsName != "" {
		el.CreateAttr("osName", n.OsName)
	}
	if n.EditURL != "" {
		el.CreateAttr("editUrl", n.EditURL)
	}
	if n.RemoteURL != "" {
		el.CreateAttr("remoteUrl", n.RemoteURL)
	}
	if len(n.Tags) > 0 {
		el.CreateAttr("tags", strings.Join(n.Tags, ","))
	}
	for k, v := range n.Attributes {
		attr := el.CreateElement("attribute")
		attr.CreateAttr("name", k)
		attr.CreateAttr("value", v)
	}
}

// nodesDocument renders a full resource model document for an inventory update.
func nodesDocument(nodes []Node) (string, error) {
	for _, n := range nodes {
		if err := n.Validate(); err != nil {
			return "", err
		}
	}
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("project")
	for _, n := range nodes {
		n.xml(root)
	}
	return doc.WriteToString()
}
