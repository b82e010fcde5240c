// Package tools exposes the editor as MCP tools so an assistant can drive
// a drafting session over stdio.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/xhad/escrito/internal/logger"
	"github.com/xhad/escrito/internal/models"
	"github.com/xhad/escrito/pkg/editor"
)

const Version = "1.0.0"

type SessionRequest struct {
	SessionID string `json:"session_id"`
}

type InitializeRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type ContextualEditRequest struct {
	SessionID    string `json:"session_id"`
	SelectedText string `json:"selected_text"`
	Instruction  string `json:"instruction"`
}

type GlobalEditRequest struct {
	SessionID   string `json:"session_id"`
	Instruction string `json:"instruction"`
}

type CommandRequest struct {
	SessionID string `json:"session_id"`
	Command   string `json:"command"`
}

type GenerateRequest struct {
	SessionID    string         `json:"session_id"`
	DocumentType string         `json:"document_type"`
	Facts        string         `json:"facts"`
	Parties      []models.Party `json:"parties"`
}

type ImportRequest struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// Handlers binds the editor service to tool calls. Calls for the same
// session are serialized.
type Handlers struct {
	service *editor.Service
	locks   *editor.SessionLocks
	log     *logger.Logger
}

func NewHandlers(service *editor.Service, locks *editor.SessionLocks, log *logger.Logger) *Handlers {
	if locks == nil {
		locks = editor.NewSessionLocks()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Handlers{service: service, locks: locks, log: log.Component("mcp")}
}

// NewServer creates an MCP server with one tool per editor operation.
func NewServer(h *Handlers) *server.MCPServer {
	s := server.NewMCPServer(
		"Escrito Editor MCP",
		Version,
		server.WithToolCapabilities(false),
	)

	sessionArg := mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("Identifier of the drafting session"),
	)

	s.AddTool(mcp.NewTool("initialize_document",
		mcp.WithDescription("Load a document into a session, replacing any previous text"),
		sessionArg,
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Full document text; paragraphs are separated by blank lines"),
		),
	), mcp.NewTypedToolHandler(h.Initialize))

	s.AddTool(mcp.NewTool("apply_contextual_edit",
		mcp.WithDescription("Apply an instruction to a selected fragment only"),
		sessionArg,
		mcp.WithString("selected_text",
			mcp.Required(),
			mcp.Description("Exact text selected in the document"),
		),
		mcp.WithString("instruction",
			mcp.Required(),
			mcp.Description("Natural-language instruction in Spanish, e.g. 'poner en mayúsculas'"),
		),
	), mcp.NewTypedToolHandler(h.ContextualEdit))

	s.AddTool(mcp.NewTool("apply_global_edit",
		mcp.WithDescription("Apply an instruction to the whole document"),
		sessionArg,
		mcp.WithString("instruction",
			mcp.Required(),
			mcp.Description("Natural-language instruction in Spanish, e.g. 'cambiar Juan por Pedro'"),
		),
	), mcp.NewTypedToolHandler(h.GlobalEdit))

	s.AddTool(mcp.NewTool("execute_command",
		mcp.WithDescription("Run a structured paragraph command (insert, modify, delete, replace)"),
		sessionArg,
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("Command such as 'Eliminar el párrafo 3' or 'Reemplazar \"a\" por \"b\"'"),
		),
	), mcp.NewTypedToolHandler(h.ExecuteCommand))

	s.AddTool(mcp.NewTool("get_full_text",
		mcp.WithDescription("Return the current document text"),
		sessionArg,
	), mcp.NewTypedToolHandler(h.FullText))

	s.AddTool(mcp.NewTool("get_paragraphs",
		mcp.WithDescription("Return the numbered paragraphs of the document"),
		sessionArg,
	), mcp.NewTypedToolHandler(h.Paragraphs))

	s.AddTool(mcp.NewTool("get_history",
		mcp.WithDescription("Return the edit history of the session"),
		sessionArg,
	), mcp.NewTypedToolHandler(h.History))

	s.AddTool(mcp.NewTool("generate_document",
		mcp.WithDescription("Draft a new document and load it into the session"),
		sessionArg,
		mcp.WithString("document_type",
			mcp.Description("Kind of document, e.g. 'demanda laboral'"),
		),
		mcp.WithString("facts",
			mcp.Description("Facts of the case"),
		),
		mcp.WithArray("parties",
			mcp.Description("Parties with role, name, identifier, nationality and address"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"role":        map[string]any{"type": "string"},
					"name":        map[string]any{"type": "string"},
					"identifier":  map[string]any{"type": "string"},
					"nationality": map[string]any{"type": "string"},
					"address":     map[string]any{"type": "string"},
				},
			}),
		),
	), mcp.NewTypedToolHandler(h.Generate))

	s.AddTool(mcp.NewTool("import_document",
		mcp.WithDescription("Import a draft from a web page into the session"),
		sessionArg,
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Address of the page holding the draft"),
		),
	), mcp.NewTypedToolHandler(h.Import))

	return s
}

// ServeStdio runs the tool server on stdin/stdout until the input closes.
func ServeStdio(h *Handlers) error {
	return server.ServeStdio(NewServer(h))
}

func (h *Handlers) Initialize(ctx context.Context, _ mcp.CallToolRequest, args InitializeRequest) (*mcp.CallToolResult, error) {
	if args.SessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	return h.call(args.SessionID, "initialize_document", func() editor.Result {
		return h.service.InitializeDocument(ctx, args.SessionID, args.Text)
	})
}

func (h *Handlers) ContextualEdit(ctx context.Context, _ mcp.CallToolRequest, args ContextualEditRequest) (*mcp.CallToolResult, error) {
	if args.SessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	if args.SelectedText == "" {
		return mcp.NewToolResultError("selected_text is required"), nil
	}
	return h.call(args.SessionID, "apply_contextual_edit", func() editor.Result {
		return h.service.ApplyContextualEdit(ctx, args.SessionID, args.SelectedText, args.Instruction)
	})
}

func (h *Handlers) GlobalEdit(ctx context.Context, _ mcp.CallToolRequest, args GlobalEditRequest) (*mcp.CallToolResult, error) {
	if args.SessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	return h.call(args.SessionID, "apply_global_edit", func() editor.Result {
		return h.service.ApplyGlobalEdit(ctx, args.SessionID, args.Instruction)
	})
}

func (h *Handlers) ExecuteCommand(ctx context.Context, _ mcp.CallToolRequest, args CommandRequest) (*mcp.CallToolResult, error) {
	if args.SessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	return h.call(args.SessionID, "execute_command", func() editor.Result {
		return h.service.ExecuteCommand(ctx, args.SessionID, args.Command)
	})
}

func (h *Handlers) FullText(ctx context.Context, _ mcp.CallToolRequest, args SessionRequest) (*mcp.CallToolResult, error) {
	if args.SessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	return h.call(args.SessionID, "get_full_text", func() editor.Result {
		return h.service.GetFullText(ctx, args.SessionID)
	})
}

func (h *Handlers) Paragraphs(ctx context.Context, _ mcp.CallToolRequest, args SessionRequest) (*mcp.CallToolResult, error) {
	if args.SessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	return h.call(args.SessionID, "get_paragraphs", func() editor.Result {
		return h.service.GetParagraphs(ctx, args.SessionID)
	})
}

func (h *Handlers) History(ctx context.Context, _ mcp.CallToolRequest, args SessionRequest) (*mcp.CallToolResult, error) {
	if args.SessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	return h.call(args.SessionID, "get_history", func() editor.Result {
		return h.service.GetHistory(ctx, args.SessionID)
	})
}

func (h *Handlers) Generate(ctx context.Context, _ mcp.CallToolRequest, args GenerateRequest) (*mcp.CallToolResult, error) {
	if args.SessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	req := models.DraftRequest{
		DocumentType: args.DocumentType,
		Parties:      args.Parties,
		Facts:        args.Facts,
	}
	return h.call(args.SessionID, "generate_document", func() editor.Result {
		return h.service.GenerateDocument(ctx, args.SessionID, req)
	})
}

func (h *Handlers) Import(ctx context.Context, _ mcp.CallToolRequest, args ImportRequest) (*mcp.CallToolResult, error) {
	if args.SessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	if args.URL == "" {
		return mcp.NewToolResultError("url is required"), nil
	}
	return h.call(args.SessionID, "import_document", func() editor.Result {
		return h.service.ImportDocument(ctx, args.SessionID, args.URL)
	})
}

// call runs fn under the session lock and renders its result. Failed
// editor results become tool errors carrying the user-facing message.
func (h *Handlers) call(sessionID, tool string, fn func() editor.Result) (*mcp.CallToolResult, error) {
	unlock := h.locks.Lock(sessionID)
	result := fn()
	unlock()

	h.log.Debug().
		Str("tool", tool).
		Str("session_id", sessionID).
		Bool("success", result.Success).
		Msg("Tool call")

	if !result.Success {
		return mcp.NewToolResultError(fmt.Sprintf("%s (%s)", result.Message, result.Error)), nil
	}

	responseBytes, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseBytes)), nil
}
