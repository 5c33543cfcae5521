package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `stepflow routes projects through numbered approval steps.

Core concepts:
- Project: an owner, a description, and a list of steps. Status is in_progress, completed or cancelled.
- Step: a number, a name, and one assigned user. Steps run from the highest number down to 1.
- Current step: the single in_progress step. Only its assignee may act on the project.
- Action: an append-only log entry for every change (create, forward, send_back, ...).

Typical loop:
1) list_notifications or dashboard_stats to find work.
2) get_project to read the steps and see whose turn it is.
3) forward_step to pass the project on (or complete it from step 1).
4) send_back_step with comments to return it to the previous step.
5) list_actions for the history.

Docs:
- stepflow://docs/workflow-rules
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "stepflow://docs/workflow-rules",
		Name:        "workflow_rules",
		Title:       "stepflow workflow rules",
		Description: "How steps are ordered, who may act, and what each transition does.",
		Content: `# Workflow rules

## Ordering

Steps execute in descending step_number. A project with steps 3, 2, 1 starts at 3
and completes after step 1 is forwarded. Numbers need not be contiguous: 10, 4, 1
is valid. Numbers must be unique within a project and at least 1.

## Who may act

- Forward and send back: only the assignee of the current step.
- Edit, reassign, cancel, delete: only the project owner.
- Reads (get, actions, assets): the owner and any assigned user.

## Transitions

| Transition | From step N | Result |
|---|---|---|
| forward | N > smallest | next lower number becomes in_progress, N completed |
| forward | N = smallest | project completed, owner notified |
| send back | N < largest | next higher number becomes in_progress, N marked sent_back |
| send back | N = largest | rejected: NO_PRIOR_STEP |

Send back requires non-empty comments. Every successful transition writes exactly
one action and notifies the user now responsible.

## Errors

- NOT_AUTHORIZED: you are not the current assignee (or not the owner).
- INVALID_STATE: the project is completed or cancelled.
- INVALID_INPUT: missing comments, duplicate or non-positive step numbers.
- STORAGE_UNAVAILABLE: nothing was changed; retry.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
