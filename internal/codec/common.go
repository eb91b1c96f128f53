package codec

import (
	"bytes"
	"io"

	"github.com/bamboo-mc/bamboo/internal/canonical"
	"github.com/bamboo-mc/bamboo/internal/frame"
)

// The packet shapes below never changed across the protocol's history
// (or changed in ways this codebase doesn't model), so both v47 and v759
// decode/encode them identically. Version-specific packages call these
// directly rather than duplicating the field layout.

func DecodeHandshake(body []byte) (canonical.Handshake, error) {
	r := bytes.NewReader(body)
	protoVer, err := frame.ReadVarInt(r)
	if err != nil {
		return canonical.Handshake{}, frame.ErrMalformed
	}
	addr, err := frame.ReadString(r)
	if err != nil {
		return canonical.Handshake{}, frame.ErrMalformed
	}
	var portBuf [2]byte
	if _, err := io.ReadFull(r, portBuf[:]); err != nil {
		return canonical.Handshake{}, frame.ErrMalformed
	}
	port := uint16(portBuf[0])<<8 | uint16(portBuf[1])
	next, err := frame.ReadVarInt(r)
	if err != nil {
		return canonical.Handshake{}, frame.ErrMalformed
	}
	return canonical.Handshake{
		ProtocolVersion: protoVer,
		ServerAddress:   addr,
		ServerPort:      port,
		NextState:       canonical.NextState(next),
	}, nil
}

func DecodeStatusRequest([]byte) (canonical.StatusRequest, error) {
	return canonical.StatusRequest{}, nil
}

func EncodeStatusResponse(p canonical.StatusResponse) ([]byte, error) {
	var buf bytes.Buffer
	if err := frame.WriteJSON(&buf, p.JSON); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodePing(body []byte) (canonical.Ping, error) {
	r := bytes.NewReader(body)
	v, err := frame.ReadInt64(r)
	if err != nil {
		return canonical.Ping{}, frame.ErrMalformed
	}
	return canonical.Ping{Payload: v}, nil
}

func EncodePong(p canonical.Pong) ([]byte, error) {
	var buf bytes.Buffer
	if err := frame.WriteInt64(&buf, p.Payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeLoginStart(body []byte) (canonical.LoginStart, error) {
	r := bytes.NewReader(body)
	name, err := frame.ReadString(r)
	if err != nil {
		return canonical.LoginStart{}, frame.ErrMalformed
	}
	return canonical.LoginStart{Username: name}, nil
}

func EncodeEncryptionRequest(p canonical.EncryptionRequest) ([]byte, error) {
	var buf bytes.Buffer
	if err := frame.WriteString(&buf, p.ServerID); err != nil {
		return nil, err
	}
	if err := frame.WriteByteArray(&buf, p.PublicKey); err != nil {
		return nil, err
	}
	if err := frame.WriteByteArray(&buf, p.VerifyToken); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeEncryptionResponse(body []byte) (canonical.EncryptionResponse, error) {
	r := bytes.NewReader(body)
	secret, err := frame.ReadByteArray(r)
	if err != nil {
		return canonical.EncryptionResponse{}, frame.ErrMalformed
	}
	token, err := frame.ReadByteArray(r)
	if err != nil {
		return canonical.EncryptionResponse{}, frame.ErrMalformed
	}
	return canonical.EncryptionResponse{
		EncryptedSharedSecret: secret,
		EncryptedVerifyToken:  token,
	}, nil
}

func EncodeSetCompression(p canonical.SetCompression) ([]byte, error) {
	var buf bytes.Buffer
	if err := frame.WriteVarInt(&buf, p.Threshold); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func EncodeDisconnect(p canonical.Disconnect) ([]byte, error) {
	var buf bytes.Buffer
	if err := frame.WriteJSON(&buf, p.ReasonJSON); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func EncodeTimeUpdate(p canonical.TimeUpdate) ([]byte, error) {
	var buf bytes.Buffer
	if err := frame.WriteInt64(&buf, p.WorldAge); err != nil {
		return nil, err
	}
	if err := frame.WriteInt64(&buf, p.TimeOfDay); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PluginMessage is passed through opaquely: the channel name is the only structured field,
// everything after it is an uninterpreted blob bounded by the frame, not
// a length prefix of its own.

func DecodePluginMessage(body []byte) (canonical.PluginMessage, error) {
	r := bytes.NewReader(body)
	channel, err := frame.ReadString(r)
	if err != nil {
		return canonical.PluginMessage{}, frame.ErrMalformed
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return canonical.PluginMessage{}, frame.ErrMalformed
	}
	return canonical.PluginMessage{Channel: channel, Data: data}, nil
}

func EncodePluginMessage(p canonical.PluginMessage) ([]byte, error) {
	var buf bytes.Buffer
	if err := frame.WriteString(&buf, p.Channel); err != nil {
		return nil, err
	}
	if _, err := buf.Write(p.Data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
