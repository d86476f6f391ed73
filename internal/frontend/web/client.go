package web

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/chatrooms/internal/chat/session"
	"github.com/cory-johannsen/chatrooms/internal/chatserver"
	"github.com/cory-johannsen/chatrooms/internal/config"
)

// client pumps one WebSocket connection: the reader turns frames into chat
// events, the writer drains the session outbox. Only the writer writes to conn.
type client struct {
	id     string
	conn   *websocket.Conn
	chat   ChatService
	cfg    config.HTTPConfig
	logger *zap.Logger
}

func newClient(id string, conn *websocket.Conn, chat ChatService, cfg config.HTTPConfig, logger *zap.Logger) *client {
	conn.SetReadLimit(cfg.MaxMessageSize)
	return &client{
		id:     id,
		conn:   conn,
		chat:   chat,
		cfg:    cfg,
		logger: logger.With(zap.String("conn_id", id), zap.String("remote_addr", conn.RemoteAddr().String())),
	}
}

// run connects the chat session and blocks until the connection ends.
//
// Postcondition: The chat session is disconnected and conn is closed.
func (c *client) run() {
	sess, err := c.chat.Connect(c.id)
	if err != nil {
		c.logger.Error("connecting chat session", zap.Error(err))
		_ = c.conn.Close()
		return
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump(sess.Outbox)
	}()

	c.readPump()

	// Disconnect closes the outbox, which ends the writer with a close frame.
	if err := c.chat.Disconnect(c.id); err != nil {
		c.logger.Warn("disconnecting chat session", zap.Error(err))
	}
	<-writerDone
}

func (c *client) readPump() {
	c.setupReadDeadline()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		env, err := DecodeEnvelope(data)
		if err != nil {
			c.logger.Debug("ignoring malformed frame", zap.Error(err))
			continue
		}
		err = Dispatch(c.chat, c.id, env)
		switch {
		case err == nil:
		case errors.Is(err, ErrUnknownTarget), errors.Is(err, ErrBadArguments):
			c.logger.Debug("ignoring frame", zap.String("target", env.Target), zap.Error(err))
		case errors.Is(err, chatserver.ErrUnknownSession):
			c.logger.Warn("session vanished", zap.Error(err))
			return
		default:
			// Rejections were already reported to the client as notifications.
			c.logger.Debug("event rejected", zap.String("target", env.Target), zap.Error(err))
		}
	}
}

func (c *client) setupReadDeadline() {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
		c.logger.Debug("setting read deadline", zap.Error(err))
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	})
}

func (c *client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger.Info("frame exceeded read limit", zap.Int64("max_message_size", c.cfg.MaxMessageSize))
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		c.logger.Info("client closed connection")
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		c.logger.Info("connection closed")
	default:
		c.logger.Info("read failed", zap.Error(err))
	}
}

func (c *client) writePump(outbox *session.Outbox) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case n, ok := <-outbox.Events():
			if !ok {
				c.writeClose()
				return
			}
			frame, err := EncodeNotification(n)
			if err != nil {
				c.logger.Error("encoding notification", zap.String("kind", string(n.Kind)), zap.Error(err))
				continue
			}
			if err := c.write(websocket.TextMessage, frame); err != nil {
				c.logger.Debug("writing notification", zap.String("kind", string(n.Kind)), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("writing ping", zap.Error(err))
				return
			}
		}
	}
}

func (c *client) write(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

func (c *client) writeClose() {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.write(websocket.CloseMessage, msg); err != nil {
		c.logger.Debug("writing close frame", zap.Error(err))
	}
}
