package ws

import (
	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/PageCast/internal/infrastructure/monitoring"
)

// InputEvent is a pointer or keyboard event sent by the viewer page.
type InputEvent struct {
	Type   string  `json:"type"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Button string  `json:"button,omitempty"`
	Key    string  `json:"key,omitempty"`
	DeltaY float64 `json:"deltaY,omitempty"`
}

// InputPolicy decides what happens to messages viewers send.
//
// Input is never forwarded to the page. When disabled every message is
// dropped unread; when enabled it is decoded and logged so the viewer page
// can be debugged.
type InputPolicy struct {
	enabled bool
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewInputPolicy creates a policy.
func NewInputPolicy(enabled bool, logger *zap.Logger, metrics *monitoring.Metrics) *InputPolicy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InputPolicy{enabled: enabled, logger: logger, metrics: metrics}
}

// Enabled reports whether input is decoded.
func (p *InputPolicy) Enabled() bool { return p.enabled }

// Handle processes one incoming message and returns the decoded event, or nil.
func (p *InputPolicy) Handle(viewerID string, msgType int, data []byte) *InputEvent {
	if !p.enabled {
		p.record("dropped")
		return nil
	}

	if msgType != websocket.TextMessage {
		p.record("binary")
		return nil
	}

	var ev InputEvent
	if err := sonic.Unmarshal(data, &ev); err != nil || ev.Type == "" {
		p.record("malformed")
		p.logger.Debug("malformed input", zap.String("viewer_id", viewerID), zap.Int("bytes", len(data)))
		return nil
	}

	p.record("input")
	if ce := p.logger.Check(zap.DebugLevel, "viewer input"); ce != nil {
		ce.Write(
			zap.String("viewer_id", viewerID),
			zap.String("type", ev.Type),
			zap.Float64("x", ev.X),
			zap.Float64("y", ev.Y),
			zap.String("key", ev.Key),
		)
	}
	return &ev
}

func (p *InputPolicy) record(kind string) {
	if p.metrics != nil {
		p.metrics.RecordWSMessage("in", kind)
	}
}
