package apiserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"meshcore/internal/telemetry"
)

type fakeController struct {
	lastNode, lastDest uint8
	lastBody           []byte
	lastPacketID       uint32
	upstreamNode       uint8
	upstreamUp         bool
	failSend           bool
}

func (f *fakeController) SendData(nodeID, dest uint8, body []byte, packetID uint32) error {
	if f.failSend {
		return assert.AnError
	}
	f.lastNode, f.lastDest, f.lastBody, f.lastPacketID = nodeID, dest, body, packetID
	return nil
}

func (f *fakeController) SetUpstream(nodeID uint8, up bool) error {
	f.upstreamNode, f.upstreamUp = nodeID, up
	return nil
}

func TestSendDataHandlerForwardsToController(t *testing.T) {
	ctrl := &fakeController{}
	body, _ := json.Marshal(sendDataPayload{NodeID: 1, DestID: 4, Body: "hello", PacketID: 7})
	req := httptest.NewRequest(http.MethodPost, "/api/send", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	SendDataHandler(ctrl)(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint8(1), ctrl.lastNode)
	assert.Equal(t, uint8(4), ctrl.lastDest)
	assert.Equal(t, []byte("hello"), ctrl.lastBody)
	assert.Equal(t, uint32(7), ctrl.lastPacketID)
}

func TestSendDataHandlerRejectsMalformedBody(t *testing.T) {
	ctrl := &fakeController{}
	req := httptest.NewRequest(http.MethodPost, "/api/send", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()

	SendDataHandler(ctrl)(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendDataHandlerPropagatesControllerError(t *testing.T) {
	ctrl := &fakeController{failSend: true}
	body, _ := json.Marshal(sendDataPayload{NodeID: 1, DestID: 4})
	req := httptest.NewRequest(http.MethodPost, "/api/send", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	SendDataHandler(ctrl)(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetUpstreamHandlerForwardsToController(t *testing.T) {
	ctrl := &fakeController{}
	body, _ := json.Marshal(upstreamPayload{NodeID: 2, Up: true})
	req := httptest.NewRequest(http.MethodPost, "/api/upstream", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	SetUpstreamHandler(ctrl)(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint8(2), ctrl.upstreamNode)
	assert.True(t, ctrl.upstreamUp)
}

func TestNewServerRoutesRequests(t *testing.T) {
	ctrl := &fakeController{}
	bus := telemetry.New(nil)
	srv := NewServer(ctrl, bus, nil)

	body, _ := json.Marshal(upstreamPayload{NodeID: 5, Up: false})
	req := httptest.NewRequest(http.MethodPost, "/api/upstream", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint8(5), ctrl.upstreamNode)
}
