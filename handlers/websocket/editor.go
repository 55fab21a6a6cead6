package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"idcard-designer/core"
	"idcard-designer/editor"
	"idcard-designer/editor/geometry"
	"idcard-designer/editor/insertion"
	"idcard-designer/editor/styling"
	"idcard-designer/handlers/auth"
	"image"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/engine.io/v2/utils"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

const (
	insertQueueSize = 16
	storeTimeout    = 10 * time.Second
)

var (
	ErrUnknownEvent = errors.New("unknown editor event")
	ErrBadArgument  = errors.New("bad event argument")
	ErrUnauthorized = errors.New("unauthorized")
)

type (
	PointerEvent struct {
		X int `json:"x"`
		Y int `json:"y"`
	}

	FieldEvent struct {
		ID string `json:"id"`
		X  int    `json:"x"`
		Y  int    `json:"y"`
	}

	OpenTemplateEvent struct {
		TemplateID string `json:"templateId"`
	}

	SideEvent struct {
		Side core.Side `json:"side"`
	}

	// DropEvent carries the native drop payload and the viewport position
	// it was released at. Data may be the payload object or its json text.
	DropEvent struct {
		Data json.RawMessage `json:"data"`
		X    int             `json:"x"`
		Y    int             `json:"y"`
	}

	StyleEvent struct {
		ID string `json:"id"`
		styling.Op
	}

	SizeEvent struct {
		ID     string `json:"id"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	}

	// LayoutState is what the server emits after every change.
	LayoutState struct {
		TemplateID string               `json:"templateId"`
		ActiveSide core.Side            `json:"activeSide"`
		Canvas     geometry.Size        `json:"canvas"`
		Selected   string               `json:"selected,omitempty"`
		Gesture    string               `json:"gesture"`
		Front      []core.TemplateField `json:"front"`
		Back       []core.TemplateField `json:"back"`
	}

	TokenParser interface {
		ParseToken(token string) (*auth.OperatorClaims, error)
	}

	// Hub runs one editing session per connected socket.
	Hub struct {
		store         core.TemplateStore
		tokens        TokenParser
		defaultCanvas geometry.Size

		mu       sync.RWMutex
		sessions map[string]*editor.Loop
	}

	eventHandler func(ctx context.Context, h *Hub, loop *editor.Loop, arg any) (string, any, error)
)

// NewHub creates a hub. With a nil token parser sockets are not authenticated.
func NewHub(store core.TemplateStore, tokens TokenParser, defaultCanvas geometry.Size) *Hub {
	return &Hub{
		store:         store,
		tokens:        tokens,
		defaultCanvas: defaultCanvas,
		sessions:      make(map[string]*editor.Loop),
	}
}

// Sessions returns the number of live editing sessions.
func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Insert queues a payload for the session of a socket. The queue stamps the
// timestamp, so concurrent producers stay ordered.
func (h *Hub) Insert(sessionID string, p insertion.Payload) bool {
	h.mu.RLock()
	loop, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return loop.Inserts().Send(p)
}

func (h *Hub) open(ctx context.Context, id string, onInsert func(*editor.Session)) *editor.Loop {
	loop := editor.NewLoop(editor.NewSession(h.defaultCanvas), insertQueueSize)
	loop.OnInsert = onInsert
	go loop.Run(ctx)

	h.mu.Lock()
	h.sessions[id] = loop
	h.mu.Unlock()
	return loop
}

func (h *Hub) close(id string) {
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
}

func (h *Hub) authenticate(handshake *socketio.Handshake) (*core.Operator, error) {
	if h.tokens == nil {
		return &core.Operator{Subject: "anonymous"}, nil
	}
	token := ""
	if a, ok := handshake.Auth.(map[string]any); ok {
		token, _ = a["token"].(string)
	}
	if token == "" {
		if values := handshake.Query["token"]; len(values) > 0 {
			token = values[0]
		}
	}
	if token == "" {
		return nil, fmt.Errorf("missing token: %w", ErrUnauthorized)
	}
	claims, err := h.tokens.ParseToken(token)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrUnauthorized)
	}
	return claims.Operator(), nil
}

// SetupSocketIO creates the socket.io server serving the editor channel.
func (h *Hub) SetupSocketIO(maxBufferSize int64) *socketio.Server {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(maxBufferSize)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})
	srv := socketio.NewServer(nil, opts)

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	srv.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}
		me := string(socket.Id())

		operator, err := h.authenticate(socket.Handshake())
		if err != nil {
			utils.Log().Printf("rejecting editor socket %v: %v\n", me, err)
			_ = socket.Emit("editor-error", map[string]any{"message": err.Error()})
			socket.Disconnect(true)
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		loop := h.open(ctx, me, func(s *editor.Session) {
			_ = socket.Emit("layout", stateOf(s))
		})
		log := logrus.WithFields(logrus.Fields{
			"socket":   me,
			"operator": operator.Subject,
		})
		log.Info("Editor session opened")
		_ = socket.Emit("session", map[string]any{"id": me})

		for event := range handlers {
			event := event
			//nolint:errcheck // Socket.IO event handlers do not return useful errors
			socket.On(event, func(datas ...any) {
				ack, args := extractAck(datas)
				var arg any
				if len(args) > 0 {
					arg = args[0]
				}

				reply, payload, err := h.dispatch(ctx, loop, event, arg)
				if err != nil {
					log.WithFields(logrus.Fields{
						"event": event,
						"error": err,
					}).Warn("Editor event failed")
					if reply == "" {
						reply, payload = "editor-error", map[string]any{"event": event, "message": err.Error()}
					}
				}
				respond(socket, ack, reply, payload, err)
			})
		}

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On("disconnect", func(...any) {
			cancel()
			h.close(me)
			log.Info("Editor session closed")
			socket.RemoveAllListeners("")
		})
	})
	return srv
}

var handlers = map[string]eventHandler{
	"open-template": handleOpenTemplate,
	"set-origin":    handleSetOrigin,
	"set-side":      handleSetSide,
	"select":        handleSelect,
	"pointer-down":  handlePointerDown,
	"resize-down":   handleResizeDown,
	"pointer-move":  handlePointerMove,
	"pointer-up":    handlePointerUp,
	"drop":          handleDrop,
	"insert":        handleInsert,
	"style":         handleStyle,
	"set-size":      handleSetSize,
	"delete":        handleDelete,
	"save":          handleSave,
}

// dispatch runs a single editor event against a loop.
func (h *Hub) dispatch(ctx context.Context, loop *editor.Loop, event string, arg any) (string, any, error) {
	handle, ok := handlers[event]
	if !ok {
		return "", nil, fmt.Errorf("%q: %w", event, ErrUnknownEvent)
	}
	return handle(ctx, h, loop, arg)
}

func stateOf(s *editor.Session) LayoutState {
	l := s.Layout()
	state := LayoutState{
		TemplateID: l.TemplateID,
		ActiveSide: s.ActiveSide(),
		Canvas:     s.Canvas(s.ActiveSide()),
		Gesture:    s.GestureState().String(),
		Front:      l.Front,
		Back:       l.Back,
	}
	if f, ok := s.Selected(); ok {
		state.Selected = f.ID
	}
	return state
}

// mutate runs fn on the loop and replies with the resulting layout.
func mutate(ctx context.Context, loop *editor.Loop, fn func(*editor.Session) error) (string, any, error) {
	var (
		state LayoutState
		ferr  error
	)
	err := loop.Do(ctx, func(s *editor.Session) {
		ferr = fn(s)
		state = stateOf(s)
	})
	if err != nil {
		return "", nil, err
	}
	if ferr != nil {
		return "", nil, ferr
	}
	return "layout", state, nil
}

func decode[T any](arg any) (T, error) {
	var v T
	if arg == nil {
		return v, fmt.Errorf("missing argument: %w", ErrBadArgument)
	}
	if err := decodeArg(arg, &v); err != nil {
		return v, fmt.Errorf("%v: %w", err, ErrBadArgument)
	}
	return v, nil
}

func handleOpenTemplate(ctx context.Context, h *Hub, loop *editor.Loop, arg any) (string, any, error) {
	ev, err := decode[OpenTemplateEvent](arg)
	if err != nil {
		return "", nil, err
	}

	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	template, err := h.store.Get(storeCtx, ev.TemplateID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open template: %w", err)
	}
	layout, err := h.store.Layout(storeCtx, ev.TemplateID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load layout: %w", err)
	}

	return mutate(ctx, loop, func(s *editor.Session) error {
		s.Load(template, layout)
		return nil
	})
}

func handleSetOrigin(ctx context.Context, _ *Hub, loop *editor.Loop, arg any) (string, any, error) {
	ev, err := decode[PointerEvent](arg)
	if err != nil {
		return "", nil, err
	}
	return mutate(ctx, loop, func(s *editor.Session) error {
		s.SetOrigin(image.Pt(ev.X, ev.Y))
		return nil
	})
}

func handleSetSide(ctx context.Context, _ *Hub, loop *editor.Loop, arg any) (string, any, error) {
	ev, err := decode[SideEvent](arg)
	if err != nil {
		return "", nil, err
	}
	return mutate(ctx, loop, func(s *editor.Session) error {
		return s.SetSide(ev.Side)
	})
}

func handleSelect(ctx context.Context, _ *Hub, loop *editor.Loop, arg any) (string, any, error) {
	ev, err := decode[FieldEvent](arg)
	if err != nil {
		return "", nil, err
	}
	return mutate(ctx, loop, func(s *editor.Session) error {
		return s.Select(ev.ID)
	})
}

func handlePointerDown(ctx context.Context, _ *Hub, loop *editor.Loop, arg any) (string, any, error) {
	ev, err := decode[PointerEvent](arg)
	if err != nil {
		return "", nil, err
	}
	return mutate(ctx, loop, func(s *editor.Session) error {
		s.PointerDown(image.Pt(ev.X, ev.Y))
		return nil
	})
}

func handleResizeDown(ctx context.Context, _ *Hub, loop *editor.Loop, arg any) (string, any, error) {
	ev, err := decode[FieldEvent](arg)
	if err != nil {
		return "", nil, err
	}
	return mutate(ctx, loop, func(s *editor.Session) error {
		if !s.ResizeDown(ev.ID, image.Pt(ev.X, ev.Y)) {
			return fmt.Errorf("%s: %w", ev.ID, editor.ErrFieldNotFound)
		}
		return nil
	})
}

func handlePointerMove(ctx context.Context, _ *Hub, loop *editor.Loop, arg any) (string, any, error) {
	ev, err := decode[PointerEvent](arg)
	if err != nil {
		return "", nil, err
	}
	return mutate(ctx, loop, func(s *editor.Session) error {
		s.PointerMove(image.Pt(ev.X, ev.Y))
		return nil
	})
}

func handlePointerUp(ctx context.Context, _ *Hub, loop *editor.Loop, arg any) (string, any, error) {
	ev, err := decode[PointerEvent](arg)
	if err != nil {
		return "", nil, err
	}
	return mutate(ctx, loop, func(s *editor.Session) error {
		s.PointerUp(image.Pt(ev.X, ev.Y))
		return nil
	})
}

// handleDrop never fails on a malformed payload: the canvas just stays as
// it was.
func handleDrop(ctx context.Context, _ *Hub, loop *editor.Loop, arg any) (string, any, error) {
	ev, err := decode[DropEvent](arg)
	if err != nil {
		return "", nil, err
	}
	data := []byte(ev.Data)
	var text string
	if json.Unmarshal(ev.Data, &text) == nil {
		data = []byte(text)
	}
	return mutate(ctx, loop, func(s *editor.Session) error {
		s.Drop(data, image.Pt(ev.X, ev.Y)) //nolint:errcheck
		return nil
	})
}

// handleInsert posts a client-side insert through the session queue. The
// resulting layout is emitted by the loop once the insert is applied.
func handleInsert(_ context.Context, _ *Hub, loop *editor.Loop, arg any) (string, any, error) {
	p, err := decode[insertion.Payload](arg)
	if err != nil {
		return "", nil, err
	}
	if !loop.Inserts().Send(p) {
		return "", nil, errors.New("insert queue is full")
	}
	return "", nil, nil
}

func handleStyle(ctx context.Context, _ *Hub, loop *editor.Loop, arg any) (string, any, error) {
	ev, err := decode[StyleEvent](arg)
	if err != nil {
		return "", nil, err
	}
	return mutate(ctx, loop, func(s *editor.Session) error {
		_, err := s.ApplyStyle(ev.ID, ev.Op)
		return err
	})
}

func handleSetSize(ctx context.Context, _ *Hub, loop *editor.Loop, arg any) (string, any, error) {
	ev, err := decode[SizeEvent](arg)
	if err != nil {
		return "", nil, err
	}
	return mutate(ctx, loop, func(s *editor.Session) error {
		_, err := s.SetSize(ev.ID, geometry.Size{Width: ev.Width, Height: ev.Height})
		return err
	})
}

func handleDelete(ctx context.Context, _ *Hub, loop *editor.Loop, arg any) (string, any, error) {
	ev, err := decode[FieldEvent](arg)
	if err != nil {
		return "", nil, err
	}
	return mutate(ctx, loop, func(s *editor.Session) error {
		s.Delete(ev.ID)
		return nil
	})
}

// handleSave persists both sides. Failures are reported in save-result and
// leave the session untouched.
func handleSave(ctx context.Context, h *Hub, loop *editor.Loop, _ any) (string, any, error) {
	var saveErr error
	err := loop.Do(ctx, func(s *editor.Session) {
		storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
		defer cancel()
		saveErr = s.Save(storeCtx, h.store)
	})
	if err != nil {
		return "", nil, err
	}
	if saveErr != nil {
		return "save-result", map[string]any{"ok": false, "message": saveErr.Error()}, saveErr
	}
	return "save-result", map[string]any{"ok": true}, nil
}
