package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/stepflow/internal/domain/action"
	"github.com/rpggio/stepflow/internal/domain/notification"
	"github.com/rpggio/stepflow/internal/domain/project"
	"github.com/rpggio/stepflow/internal/domain/workflow"
)

// CreateProjectInput is the create_project argument.
type CreateProjectInput struct {
	Name        string      `json:"project_name" jsonschema:"Project display name"`
	Description string      `json:"description,omitempty" jsonschema:"Project description"`
	Steps       []StepInput `json:"steps" jsonschema:"Workflow steps; executed from the highest step_number down"`
}

// StepInput describes one step of a new project.
type StepInput struct {
	StepNumber      int    `json:"step_number" jsonschema:"Unique positive step number"`
	Name            string `json:"step_name" jsonschema:"Step name"`
	TaskDescription string `json:"task_description,omitempty" jsonschema:"What the assignee should do"`
	AssignedUserID  string `json:"assigned_user_id" jsonschema:"User responsible for the step"`
}

// ProjectInput identifies a project.
type ProjectInput struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID"`
}

// TransitionInput is the forward_step and send_back_step argument.
type TransitionInput struct {
	ProjectID string `json:"project_id" jsonschema:"Project ID"`
	Comments  string `json:"comments,omitempty" jsonschema:"Comments for the next assignee; required when sending back"`
}

// NotificationInput identifies a notification.
type NotificationInput struct {
	NotificationID string `json:"notification_id" jsonschema:"Notification ID"`
}

// EmptyInput is the argument of tools that take none.
type EmptyInput struct{}

type toolHandler[In any] func(ctx context.Context, userID string, in In) (any, error)

// addTool registers a typed tool whose result is rendered as JSON text.
func addTool[In any](server *sdkmcp.Server, name, description string, handle toolHandler[In]) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: name, Description: description},
		func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, any, error) {
			userID := getUserID(ctx)
			if userID == "" {
				return nil, nil, fmt.Errorf("unauthorized: no user")
			}
			out, err := handle(ctx, userID, in)
			if err != nil {
				return nil, nil, toolError(err)
			}
			return jsonResult(out)
		})
}

func jsonResult(v any) (*sdkmcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encoding result: %w", err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func registerTools(server *sdkmcp.Server, svc Services) {
	addTool(server, "create_project", "Create a project with its workflow steps; you become the owner",
		func(ctx context.Context, userID string, in CreateProjectInput) (any, error) {
			req := workflow.CreateRequest{Name: in.Name, Description: in.Description}
			for _, s := range in.Steps {
				req.Steps = append(req.Steps, workflow.StepInput{
					StepNumber:      s.StepNumber,
					Name:            s.Name,
					TaskDescription: s.TaskDescription,
					AssignedUserID:  s.AssignedUserID,
				})
			}
			res, err := svc.Workflow.Create(ctx, userID, req)
			if err != nil {
				return nil, err
			}
			return res.Project, nil
		})

	addTool(server, "list_projects", "List projects you own or are assigned to",
		func(ctx context.Context, userID string, _ EmptyInput) (any, error) {
			projects, err := svc.Projects.List(ctx, userID)
			if projects == nil {
				projects = []project.Project{}
			}
			return projects, err
		})

	addTool(server, "get_project", "Get a project with its steps and current step",
		func(ctx context.Context, userID string, in ProjectInput) (any, error) {
			return svc.Projects.Get(ctx, userID, in.ProjectID)
		})

	addTool(server, "forward_step", "Complete your current step and pass the project to the next lower step, or complete the project",
		func(ctx context.Context, userID string, in TransitionInput) (any, error) {
			res, err := svc.Workflow.Forward(ctx, workflow.TransitionRequest{ProjectID: in.ProjectID, ActorID: userID, Comments: in.Comments})
			if err != nil {
				return nil, err
			}
			return res.Project, nil
		})

	addTool(server, "send_back_step", "Return the project to the previous (higher-numbered) step; comments required",
		func(ctx context.Context, userID string, in TransitionInput) (any, error) {
			res, err := svc.Workflow.SendBack(ctx, workflow.TransitionRequest{ProjectID: in.ProjectID, ActorID: userID, Comments: in.Comments})
			if err != nil {
				return nil, err
			}
			return res.Project, nil
		})

	addTool(server, "list_actions", "List a project's action history, oldest first",
		func(ctx context.Context, userID string, in ProjectInput) (any, error) {
			if _, err := svc.Projects.Get(ctx, userID, in.ProjectID); err != nil {
				return nil, err
			}
			entries, err := svc.Actions.ListByProject(ctx, in.ProjectID)
			if entries == nil {
				entries = []action.Action{}
			}
			return entries, err
		})

	addTool(server, "list_notifications", "List your notifications, newest first",
		func(ctx context.Context, userID string, _ EmptyInput) (any, error) {
			notes, err := svc.Notifications.List(ctx, userID)
			if notes == nil {
				notes = []notification.Notification{}
			}
			return notes, err
		})

	addTool(server, "mark_notification_read", "Mark one of your notifications as read",
		func(ctx context.Context, userID string, in NotificationInput) (any, error) {
			if err := svc.Notifications.MarkRead(ctx, userID, in.NotificationID); err != nil {
				return nil, err
			}
			return map[string]string{"message": "Notification marked as read"}, nil
		})

	addTool(server, "dashboard_stats", "Project counts, your active steps and unread notifications",
		func(ctx context.Context, userID string, _ EmptyInput) (any, error) {
			return svc.Dashboard.Stats(ctx, userID)
		})
}
