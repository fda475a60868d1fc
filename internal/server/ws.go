package server

import (
	"context"
	"net/http"

	"github.com/coder/websocket"

	"github.com/voxhaven/voxgate/internal/session"
)

// statusAuthFailed is the application close code sent when token
// verification fails after the upgrade.
const statusAuthFailed = websocket.StatusCode(4001)

// wsTransport adapts a WebSocket connection to the session transport.
// Sessions serialize their own writes, so no extra locking is needed here.
type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) ReadFrame(ctx context.Context) (session.Frame, error) {
	typ, data, err := t.conn.Read(ctx)
	if err != nil {
		return session.Frame{}, err
	}
	return session.Frame{Binary: typ == websocket.MessageBinary, Data: data}, nil
}

func (t *wsTransport) WriteText(ctx context.Context, data []byte) error {
	return t.conn.Write(ctx, websocket.MessageText, data)
}

func (t *wsTransport) WriteBinary(ctx context.Context, data []byte) error {
	return t.conn.Write(ctx, websocket.MessageBinary, data)
}

// handleVoice upgrades the connection, verifies the token from the query
// string, and hands the socket to a streaming session. The upgrade happens
// before verification so rejected clients receive a proper close frame with
// code 4001 instead of an HTTP error.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn("websocket accept failed", "err", err)
		return
	}

	userID, err := s.verifier.Verify(r.URL.Query().Get("token"))
	if err != nil {
		s.log.Warn("connection rejected", "err", err)
		conn.Close(statusAuthFailed, "authentication failed")
		return
	}

	ctx := r.Context()
	sess := session.New(&wsTransport{conn: conn}, session.Config{
		UserID:        userID,
		STT:           s.sttp,
		TTS:           s.ttsp,
		Stream:        s.cfg.Stream,
		VoiceID:       s.cfg.VoiceID,
		Engine:        s.cfg.Engine,
		OutputFormat:  s.cfg.OutputFormat,
		QueueCapacity: s.cfg.QueueCapacity,
		DrainTimeout:  s.cfg.DrainTimeout,
		Logger:        s.log,
		Metrics:       s.metrics,
	})

	if err := s.reg.Add(sess); err != nil {
		s.log.Error("register session", "err", err)
		conn.Close(websocket.StatusInternalError, "session setup failed")
		return
	}
	defer s.reg.Remove(sess.ID())

	if s.metrics != nil {
		s.metrics.SessionOpened(ctx)
		defer s.metrics.SessionClosed(ctx)
	}

	if err := sess.Run(ctx); err != nil {
		s.log.Warn("session ended with error", "session_id", sess.ID(), "err", err)
		conn.Close(websocket.StatusInternalError, "session failed")
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}
