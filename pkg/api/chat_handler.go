package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/oldnordic/odincode/pkg/chat"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsMessage is the envelope exchanged over /chat/ws in both directions:
// a client sends {"type":"user_message","text":"..."} or
// {"type":"approval","approved":true,"scope":"once"}; the server sends
// {"type":"text"|"approval_required"|"forbidden"|"max_steps_exceeded","text":"...","approval":{...}}.
// Grounded on tarsy's pkg/api/websocket.go WSMessage envelope, narrowed
// from its broadcast-hub shape to one connection per chat session since a
// chat session is never shared across clients.
type wsMessage struct {
	Type     string                `json:"type"`
	Text     string                `json:"text,omitempty"`
	Approved bool                  `json:"approved,omitempty"`
	Scope    string                `json:"scope,omitempty"`
	Approval *chat.PendingApproval `json:"approval,omitempty"`
}

func (s *Server) handleChatWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("chat ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	adapter, err := s.newAdapter(s.cfg.LM())
	if err != nil {
		conn.WriteJSON(wsMessage{Type: "text", Text: "language model adapter unavailable: " + err.Error()})
		return
	}
	chatCfg := chat.Config{
		Memory:    s.mem,
		Tool:      s.toolCfg,
		Adapter:   adapter,
		Model:     s.cfg.LM().Model,
		LMTimeout: s.cfg.LM().Timeout(0),
	}

	sess, err := chat.NewSession(reqCtx(c), chatCfg, uuid.NewString())
	if err != nil {
		conn.WriteJSON(wsMessage{Type: "text", Text: "could not start chat session: " + err.Error()})
		return
	}

	for {
		var in wsMessage
		if err := conn.ReadJSON(&in); err != nil {
			return
		}

		var result chat.TurnResult
		switch in.Type {
		case "user_message":
			result, err = chat.HandleUserMessage(c.Request.Context(), chatCfg, sess, in.Text)
		case "approval":
			scope := chat.ScopeOnce
			if in.Scope == "session_all_gated" {
				scope = chat.ScopeSessionAllGated
			}
			result, err = chat.ResolveApproval(c.Request.Context(), chatCfg, sess, chat.ApprovalDecision{Approved: in.Approved, Scope: scope})
		default:
			conn.WriteJSON(wsMessage{Type: "text", Text: "unknown message type " + in.Type})
			continue
		}
		if err != nil {
			conn.WriteJSON(wsMessage{Type: "text", Text: "error: " + err.Error()})
			continue
		}

		if err := conn.WriteJSON(wsMessage{Type: string(result.Outcome), Text: result.Text, Approval: result.Approval}); err != nil {
			return
		}
	}
}
