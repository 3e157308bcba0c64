package conn

import (
	"context"

	"github.com/mickamy/mysqlwire/auth"
	"github.com/mickamy/mysqlwire/frame"
	"github.com/mickamy/mysqlwire/mysqlerr"
	"github.com/mickamy/mysqlwire/mysqltls"
	"github.com/mickamy/mysqlwire/protocol"
	"github.com/mickamy/mysqlwire/session"
)

// desiredCapabilities is the client's wish list before intersecting
// with the server's advertised set (spec.md §6). LOCAL_FILES is never
// requested (spec.md §4.8's COM_QUERY notes: LOCAL INFILE is refused).
func desiredCapabilities(cfg Config) protocol.CapabilityFlags {
	want := protocol.ClientLongPassword |
		protocol.ClientProtocol41 |
		protocol.ClientSecureConnection |
		protocol.ClientPluginAuth |
		protocol.ClientPluginAuthLenencClientData |
		protocol.ClientConnectAttrs |
		protocol.ClientTransactions |
		protocol.ClientDeprecateEOF

	if cfg.Database != "" {
		want |= protocol.ClientConnectWithDB
	}
	if cfg.MultiStatements {
		want |= protocol.ClientMultiStatements
	}
	if cfg.TLSMode != mysqltls.Disabled {
		want |= protocol.ClientSSL
	}
	return want
}

// handshake drives the CONNECTION-phase state machine to completion
// (spec.md §4.3, §4.4): read the greeting, optionally upgrade to TLS,
// negotiate capabilities, authenticate under whichever plugin the
// server names, and leave the connection's net.Conn, session, and
// sequence counter ready for the command phase.
func (c *Conn) handshake(ctx context.Context, cfg Config) error {
	greetingMsg, _, err := c.joiner.Feed(c.raw)
	if err != nil {
		return err
	}
	c.dumper.DumpEnvelope("greeting", greetingMsg)
	greeting, err := protocol.DecodeHandshakeV10(greetingMsg)
	if err != nil {
		return err
	}
	c.dumper.DumpMessage("greeting", greeting)

	c.session.ConnectionID = greeting.ConnectionID
	c.session.ServerVersion = greeting.ServerVersion
	c.session.Scramble = greeting.Salt
	c.session.CurrentAuthPlugin = greeting.AuthPluginName
	c.session.NegotiateCapabilities(greeting.Capabilities, desiredCapabilities(cfg))
	if err := c.session.SetCollation(cfg.collation()); err != nil {
		return err
	}
	c.session.Credentials = session.Credentials{Username: cfg.Username, Password: cfg.Password}
	c.session.Database = cfg.Database

	if c.session.ClientCapabilities.Has(protocol.ClientSSL) {
		if err := c.upgradeTLS(ctx, cfg); err != nil {
			return err
		}
	}

	authResponse, err := computeAuthResponse(c.session.CurrentAuthPlugin, cfg.Password, c.session.Scramble)
	if err != nil {
		return err
	}

	resp := protocol.HandshakeResponse41{
		ClientFlags:   c.session.ClientCapabilities,
		MaxPacketSize: frame.MaxPayload,
		CharacterSet:  c.session.CollationID,
		Username:      cfg.Username,
		AuthResponse:  authResponse,
		Database:      cfg.Database,
		AuthPlugin:    c.session.CurrentAuthPlugin,
		ConnectAttrs:  connectAttrs(cfg.ConnectAttrs),
	}
	c.dumper.DumpMessage("handshake response", resp)
	if err := c.slicer.Encode(c.raw, resp.Encode()); err != nil {
		return err
	}

	if err := c.authLoop(cfg); err != nil {
		return err
	}

	c.session.CompleteAuth()
	c.dctx.DeprecateEOF = c.session.DeprecateEOF()
	c.dctx.ToCommand()
	return nil
}

// authLoop consumes auth packets until OK or ERR, following whichever
// plugin continuation the server asks for (spec.md §4.4).
func (c *Conn) authLoop(cfg Config) error {
	for {
		raw, _, err := c.joiner.Feed(c.raw)
		if err != nil {
			return err
		}
		msg, err := protocol.Decode(c.dctx, raw)
		if err != nil {
			return err
		}
		c.dumper.DumpMessage("auth", msg)

		switch m := msg.(type) {
		case *protocol.OK:
			return nil
		case *protocol.ERR:
			return mysqlerr.New(mysqlerr.KindAuthFailed, true, "authentication failed: %s", m.Message)
		case *protocol.AuthSwitchRequest:
			c.session.CurrentAuthPlugin = m.PluginName
			c.session.Scramble = m.Salt
			reply, err := computeAuthResponse(m.PluginName, cfg.Password, m.Salt)
			if err != nil {
				return err
			}
			if err := c.slicer.Encode(c.raw, protocol.AuthSwitchResponse{Data: reply}.Encode()); err != nil {
				return err
			}
		case *protocol.AuthMoreData:
			reply, done, err := c.continueAuthMoreData(cfg, m.Data)
			if err != nil {
				return err
			}
			if done {
				continue
			}
			if err := c.slicer.Encode(c.raw, protocol.AuthSwitchResponse{Data: reply}.Encode()); err != nil {
				return err
			}
		default:
			return mysqlerr.New(mysqlerr.KindProtocolNotSupported, true, "unexpected message %T during authentication", msg)
		}
	}
}

// caching_sha2_password's AuthMoreData payload is a single status byte:
// 0x03 means the fast-phase hash already matched (no client reply, OK
// follows next); 0x04 means full authentication is required (spec.md
// §4.4). sha256_password has no status byte at all -- its AuthMoreData
// carries the server's PEM public key directly, which falls through to
// the same default branch below since it never starts with 0x03/0x04.
const (
	cachingSHA2FastAuthSuccess byte = 0x03
	cachingSHA2FullAuthNeeded  byte = 0x04
	cachingSHA2RequestPubKey   byte = 0x02
)

// continueAuthMoreData reacts to one AuthMoreData payload. done=true
// means no reply is needed (the server will send OK next).
func (c *Conn) continueAuthMoreData(cfg Config, data []byte) (reply []byte, done bool, err error) {
	if len(data) == 0 {
		return nil, true, nil
	}
	switch data[0] {
	case cachingSHA2FastAuthSuccess:
		return nil, true, nil
	case cachingSHA2FullAuthNeeded:
		if c.tlsActive {
			return auth.CachingSHA2FullPhaseOverTLS(cfg.Password), false, nil
		}
		// Not encrypted: ask for the server's RSA public key, then
		// encrypt against it once it arrives (handled by the pub-key
		// branch below on the next AuthMoreData).
		return []byte{cachingSHA2RequestPubKey}, false, nil
	default:
		// The payload is a PEM-encoded RSA public key sent in response
		// to our 0x02 request.
		ciphertext, err := auth.RSAEncryptPassword(cfg.Password, c.session.Scramble, data)
		if err != nil {
			return nil, false, err
		}
		return ciphertext, false, nil
	}
}

// computeAuthResponse runs the named plugin's fast phase (spec.md §4.4).
// caching_sha2_password computes its fast-phase guess up front, as
// mysql_native_password does; sha256_password has no fast phase and
// sends an empty response.
func computeAuthResponse(plugin, password string, salt []byte) ([]byte, error) {
	switch plugin {
	case auth.NativePassword:
		return auth.NativePasswordFastPhase(password, salt), nil
	case auth.CachingSHA2:
		return auth.CachingSHA2FastPhase(password, salt), nil
	case auth.ClearTextPassword:
		return append([]byte(password), 0x00), nil
	case auth.SHA256Password:
		// sha256_password has no fast phase; send an empty response. The
		// server's PEM public key then arrives as AuthMoreData and is
		// handled by continueAuthMoreData's default branch.
		return nil, nil
	default:
		return nil, mysqlerr.New(mysqlerr.KindProtocolNotSupported, true, "unsupported auth plugin %q", plugin)
	}
}

func connectAttrs(m map[string]string) []protocol.ConnectAttr {
	if len(m) == 0 {
		return nil
	}
	attrs := make([]protocol.ConnectAttr, 0, len(m))
	for k, v := range m {
		attrs = append(attrs, protocol.ConnectAttr{Key: k, Value: v})
	}
	return attrs
}

// upgradeTLS sends a bare SSLRequest and hands the raw socket to the
// caller's upgrade hook, then rewires the joiner/slicer to read and
// write through the encrypted connection (spec.md §4.3's SSL branch).
// The sequence id is not reset here: the SSLRequest and the
// HandshakeResponse41 that follows it are sequence ids 1 and 2 of the
// same handshake, per the protocol reference.
func (c *Conn) upgradeTLS(ctx context.Context, cfg Config) error {
	if cfg.TLSUpgrade == nil {
		return mysqlerr.New(mysqlerr.KindClientMisuse, true, "TLS requested but no TLSUpgrade hook configured")
	}
	req := protocol.SSLRequest{
		ClientFlags:   c.session.ClientCapabilities,
		MaxPacketSize: frame.MaxPayload,
		CharacterSet:  c.session.CollationID,
	}
	if err := c.slicer.Encode(c.raw, req.Encode()); err != nil {
		return err
	}
	upgraded, err := cfg.TLSUpgrade(ctx, c.raw, cfg.serverName())
	if err != nil {
		return mysqlerr.Wrap(mysqlerr.KindAuthFailed, true, err, "tls upgrade failed")
	}
	c.raw = upgraded
	c.tlsActive = true
	return nil
}
