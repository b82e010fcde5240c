package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/xhad/escrito/internal/models"
	"github.com/xhad/escrito/pkg/editor"
)

// Message types accepted on /ws.
const (
	TypeInitialize     = "initialize"
	TypeContextualEdit = "contextual_edit"
	TypeGlobalEdit     = "global_edit"
	TypeCommand        = "command"
	TypeGetText        = "get_text"
	TypeGetParagraphs  = "get_paragraphs"
	TypeGetHistory     = "get_history"
	TypeGenerate       = "generate"
	TypeImport         = "import"
)

// Message types sent back.
const (
	TypeResult = "result"
	TypeStatus = "status"
	TypeError  = "error"
)

type Message struct {
	Type         string               `json:"type"`
	RequestID    string               `json:"requestId,omitempty"`
	SessionID    string               `json:"sessionId,omitempty"`
	Content      string               `json:"content,omitempty"`
	SelectedText string               `json:"selectedText,omitempty"`
	Instruction  string               `json:"instruction,omitempty"`
	Draft        *models.DraftRequest `json:"draft,omitempty"`
	Data         interface{}          `json:"data,omitempty"`
}

// conn serializes writes; gorilla connections allow one concurrent writer.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(msg)
}

func (s *WSServer) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.config.AllowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range s.config.AllowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := s.upgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer ws.Close()

	c := &conn{ws: ws}
	ctx := r.Context()

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Msg("Error reading message")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			s.sendError(c, Message{}, "El mensaje no es JSON válido", editor.CodeParse)
			continue
		}

		// messages of one connection are applied in the order they arrive
		s.handleMessage(ctx, c, msg)
	}
}

func (s *WSServer) handleMessage(ctx context.Context, c *conn, msg Message) {
	if msg.SessionID == "" {
		s.sendError(c, msg, "Falta el identificador de sesión", editor.CodeParse)
		return
	}

	var call func() editor.Result
	switch msg.Type {
	case TypeInitialize:
		call = func() editor.Result { return s.service.InitializeDocument(ctx, msg.SessionID, msg.Content) }
	case TypeContextualEdit:
		call = func() editor.Result {
			return s.service.ApplyContextualEdit(ctx, msg.SessionID, msg.SelectedText, msg.Instruction)
		}
	case TypeGlobalEdit:
		call = func() editor.Result { return s.service.ApplyGlobalEdit(ctx, msg.SessionID, msg.Instruction) }
	case TypeCommand:
		call = func() editor.Result { return s.service.ExecuteCommand(ctx, msg.SessionID, msg.Content) }
	case TypeGetText:
		call = func() editor.Result { return s.service.GetFullText(ctx, msg.SessionID) }
	case TypeGetParagraphs:
		call = func() editor.Result { return s.service.GetParagraphs(ctx, msg.SessionID) }
	case TypeGetHistory:
		call = func() editor.Result { return s.service.GetHistory(ctx, msg.SessionID) }
	case TypeGenerate:
		var req models.DraftRequest
		if msg.Draft != nil {
			req = *msg.Draft
		}
		s.send(c, Message{Type: TypeStatus, RequestID: msg.RequestID, SessionID: msg.SessionID, Content: "Generando el escrito"})
		call = func() editor.Result { return s.service.GenerateDocument(ctx, msg.SessionID, req) }
	case TypeImport:
		s.send(c, Message{Type: TypeStatus, RequestID: msg.RequestID, SessionID: msg.SessionID, Content: "Importando " + msg.Content})
		call = func() editor.Result { return s.service.ImportDocument(ctx, msg.SessionID, msg.Content) }
	default:
		s.sendError(c, msg, "Tipo de mensaje desconocido: "+msg.Type, editor.CodeParse)
		return
	}

	unlock := s.locks.Lock(msg.SessionID)
	result := call()
	unlock()

	s.send(c, Message{
		Type:      TypeResult,
		RequestID: msg.RequestID,
		SessionID: msg.SessionID,
		Content:   result.Message,
		Data:      result,
	})
}

func (s *WSServer) sendError(c *conn, msg Message, message, code string) {
	s.send(c, Message{
		Type:      TypeError,
		RequestID: msg.RequestID,
		SessionID: msg.SessionID,
		Content:   message,
		Data:      editor.Result{SessionID: msg.SessionID, Message: message, Error: code},
	})
}

func (s *WSServer) send(c *conn, msg Message) {
	if err := c.send(msg); err != nil {
		s.log.Warn().Err(err).Str("type", msg.Type).Msg("Error sending message")
	}
}
