package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAction_Known(t *testing.T) {
	for _, a := range []Action{ActionGet, ActionSet, ActionGetAll, ActionRemove, ActionClear, ActionGetByURL, ActionListURLs} {
		assert.True(t, a.Known(), a)
	}
	assert.False(t, Action("toggle").Known())
	assert.False(t, Action("").Known())
}

func TestResponse_Err(t *testing.T) {
	assert.NoError(t, OK(nil).Err())
	assert.EqualError(t, Fail(errors.New("quota exceeded")).Err(), "quota exceeded")
	assert.EqualError(t, Response{}.Err(), "request failed")
}

func TestMessage_WireShape(t *testing.T) {
	b, err := json.Marshal(StorageRequest(7, Request{Action: ActionSet, Key: "notes", Value: json.RawMessage(`{"a":[]}`)}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"postit:storage","id":7,"request":{"action":"set","key":"notes","value":{"a":[]}}}`, string(b))

	b, err = json.Marshal(StorageResponse(7, Response{Success: false, Error: "boom"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"postit:storage:response","id":7,"response":{"success":false,"error":"boom"}}`, string(b))

	b, err = json.Marshal(Signal(TypeExtensionReady))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"postit:extension:ready"}`, string(b), "signals carry no correlation id")
}
