package mqttendpoint

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialViaProxyRejectsMalformedURL(t *testing.T) {
	_, err := DialViaProxy("://not-a-url", "broker.example.com:1883", nil)
	require.Error(t, err)
	var te *TransportError
	assert.ErrorAs(t, err, &te)
}

func TestDialViaProxyConnectFailureWhenProxyUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close() // nothing listening at this address now

	tr, err := DialViaProxy("socks5://"+addr, "broker.example.com:1883", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err = tr.Connect(ctx)
	require.Error(t, err)
	var te *TransportError
	assert.ErrorAs(t, err, &te)
}

func TestDialViaProxyUnknownSchemeFailsAtConnect(t *testing.T) {
	tr, err := DialViaProxy("ftp://127.0.0.1:1080", "broker.example.com:1883", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err = tr.Connect(ctx)
	require.Error(t, err)
	var te *TransportError
	assert.ErrorAs(t, err, &te)
	assert.Equal(t, "proxy-setup", te.Op)
}
