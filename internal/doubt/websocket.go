package doubt

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/preppysphere/internal/ai"
	"github.com/p-n-ai/preppysphere/internal/intent"
)

// wsRequest is one inbound frame.
type wsRequest struct {
	Question string `json:"question"`
}

// wsResponse is one outbound frame. Error carries the failure kind.
type wsResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
}

// WebSocketHandler serves one conversation per connection. Frames are
// handled in order, so a question is only read after the previous answer
// has been sent.
type WebSocketHandler struct {
	assistant      *Assistant
	originPatterns []string
}

func NewWebSocketHandler(assistant *Assistant, originPatterns ...string) *WebSocketHandler {
	return &WebSocketHandler{assistant: assistant, originPatterns: originPatterns}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("failed to accept websocket", "error", err)
		return
	}
	defer ws.CloseNow()

	ctx := r.Context()
	conv, err := h.assistant.Start(ctx)
	if err != nil {
		slog.Error("failed to start conversation", "error", err)
		ws.Close(websocket.StatusInternalError, "conversation unavailable")
		return
	}
	if err := wsjson.Write(ctx, ws, wsResponse{Role: RoleAssistant, Content: Greeting}); err != nil {
		slog.Debug("websocket write error", "error", err)
		return
	}

	if err := h.serve(ctx, ws, conv.ID); err != nil {
		slog.Debug("doubt session ended", "conversation_id", conv.ID, "error", err)
		return
	}
	ws.Close(websocket.StatusNormalClosure, "")
}

func (h *WebSocketHandler) serve(ctx context.Context, ws *websocket.Conn, conversationID string) error {
	for {
		var req wsRequest
		if err := wsjson.Read(ctx, ws, &req); err != nil {
			if websocket.CloseStatus(err) != -1 {
				return nil
			}
			return err
		}

		msg, err := h.assistant.Ask(ctx, conversationID, req.Question)
		resp := wsResponse{Role: msg.Role, Content: msg.Content}
		switch {
		case errors.Is(err, intent.ErrInvalidRequest):
			resp = wsResponse{Role: RoleAssistant, Content: "Please type a question first.", Error: "invalid_request"}
		case err != nil && msg.Role == "":
			return err
		case err != nil:
			resp.Error = ai.KindOf(err).String()
		}

		if err := wsjson.Write(ctx, ws, resp); err != nil {
			return err
		}
	}
}
