package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"connectnow/domain"
	"connectnow/errors"
)

func Test_DecodeJoin_Accepts_A_Structured_Object(t *testing.T) {
	req := require.New(t)

	cmd, err := decodeJoin(json.RawMessage(`{"roomId":"A1B2C3","name":"Ann","userId":"u1"}`))

	req.NoError(err)
	req.Equal("A1B2C3", cmd.RoomID)
	req.Equal("Ann", cmd.Name)
	req.Equal("u1", cmd.UserID)
}

func Test_DecodeJoin_Accepts_A_String_Encoded_Object(t *testing.T) {
	req := require.New(t)
	inner, err := json.Marshal(domain.JoinRoomCommand{RoomID: "A1B2C3", Name: "Ann", UserID: "u1"})
	require.NoError(t, err)
	outer, err := json.Marshal(string(inner))
	require.NoError(t, err)

	cmd, err := decodeJoin(outer)

	req.NoError(err)
	req.Equal("A1B2C3", cmd.RoomID)
	req.Equal("Ann", cmd.Name)
}

func Test_DecodeJoin_Rejects_A_Payload_Without_Room(t *testing.T) {
	req := require.New(t)

	_, err := decodeJoin(json.RawMessage(`{"name":"Ann"}`))

	req.ErrorIs(err, errors.ErrMalformedPayload)
}

func Test_Decode_Rejects_Empty_And_Garbled_Payloads(t *testing.T) {
	req := require.New(t)

	_, err := decode[domain.SendMessageCommand](nil)
	req.ErrorIs(err, errors.ErrMalformedPayload)

	_, err = decode[domain.SendMessageCommand](json.RawMessage(`{not json`))
	req.ErrorIs(err, errors.ErrMalformedPayload)
}

func Test_Decode_Enforces_Field_Validation(t *testing.T) {
	req := require.New(t)

	_, err := decode[domain.UpdateProfileCommand](json.RawMessage(`{"roomCode":"A1B2C3","status":"invisible"}`))
	req.ErrorIs(err, errors.ErrMalformedPayload)

	cmd, err := decode[domain.UpdateProfileCommand](json.RawMessage(`{"roomCode":"A1B2C3","status":"away"}`))
	req.NoError(err)
	req.Equal("away", *cmd.Status)
	req.Nil(cmd.Avatar)
}
