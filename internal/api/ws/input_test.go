package ws

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/PageCast/internal/infrastructure/config"
	"github.com/GriffinCanCode/PageCast/internal/infrastructure/monitoring"
)

func zapNop() *zap.Logger { return zap.NewNop() }

func testStreamConfig() config.StreamConfig { return config.Default().Stream }

func TestInputDisabledDropsEverything(t *testing.T) {
	metrics := monitoring.NewMetrics()
	p := NewInputPolicy(false, nil, metrics)

	ev := p.Handle("viewer_a", websocket.TextMessage, []byte(`{"type":"click"}`))

	assert.Nil(t, ev)
	assert.False(t, p.Enabled())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.WSMessages.WithLabelValues("in", "dropped")))
}

func TestInputEnabledDecodes(t *testing.T) {
	tests := []struct {
		name    string
		msgType int
		data    string
		want    *InputEvent
		label   string
	}{
		{
			name:    "click",
			msgType: websocket.TextMessage,
			data:    `{"type":"click","x":12.5,"y":40,"button":"left"}`,
			want:    &InputEvent{Type: "click", X: 12.5, Y: 40, Button: "left"},
			label:   "input",
		},
		{
			name:    "wheel",
			msgType: websocket.TextMessage,
			data:    `{"type":"wheel","deltaY":-120}`,
			want:    &InputEvent{Type: "wheel", DeltaY: -120},
			label:   "input",
		},
		{name: "garbage", msgType: websocket.TextMessage, data: `not json`, label: "malformed"},
		{name: "missing type", msgType: websocket.TextMessage, data: `{"x":1}`, label: "malformed"},
		{name: "binary", msgType: websocket.BinaryMessage, data: "\x00\x01", label: "binary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := monitoring.NewMetrics()
			p := NewInputPolicy(true, nil, metrics)

			got := p.Handle("viewer_a", tt.msgType, []byte(tt.data))

			if tt.want == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, *tt.want, *got)
			}
			assert.Equal(t, float64(1), testutil.ToFloat64(metrics.WSMessages.WithLabelValues("in", tt.label)))
		})
	}
}
