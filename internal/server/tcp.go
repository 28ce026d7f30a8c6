package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	anetserver "github.com/andrei-cloud/anet/server"
	"github.com/andrei-cloud/go_nodehost/internal/logging"
	"github.com/andrei-cloud/go_nodehost/internal/objinfo"
	"github.com/rs/zerolog/log"
)

// Query commands understood by the TCP query server.
const (
	CmdListAll = "OA"
	CmdGetOne  = "OI"

	codeDisabled = "68"
)

// Querier answers object_info queries.
type Querier interface {
	ListAll(ctx context.Context) map[string]objinfo.Metadata
	GetOne(ctx context.Context, id string) map[string]objinfo.Metadata
}

// logAdapter implements anet.Logger using zerolog.
type logAdapter struct{}

func (l logAdapter) Print(v ...any) {
	log.Info().Msg(fmt.Sprint(v...))
}

func (l logAdapter) Printf(format string, v ...any) {
	log.Info().Msgf(format, v...)
}

func (l logAdapter) Infof(format string, v ...any) {
	log.Info().Msgf(format, v...)
}

func (l logAdapter) Warnf(format string, v ...any) {
	log.Warn().Msgf(format, v...)
}

func (l logAdapter) Errorf(format string, v ...any) {
	log.Error().Msgf(format, v...)
}

// QueryServer answers object_info queries over anet's framed TCP protocol.
//
// A request is a two character command followed by its payload. The response starts with
// the command code whose second character is incremented, followed by JSON:
//
//	OA        -> OB{...all nodes...}
//	OI<id>    -> OJ{...zero or one node...}
//
// Unknown commands get the incremented code followed by "68".
type QueryServer struct {
	address     string
	srv         *anetserver.Server
	querier     Querier
	activeConns int32
}

// NewQueryServer configures a query server on address.
func NewQueryServer(address string, q Querier) (*QueryServer, error) {
	cfg := &anetserver.ServerConfig{
		MaxConns:        100,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     0 * time.Second, // disable idle connection closure.
		ShutdownTimeout: 5 * time.Second,
		Logger:          logAdapter{},
	}

	s := &QueryServer{address: address, querier: q}
	srv, err := anetserver.NewServer(address, anetserver.HandlerFunc(s.handle), cfg)
	if err != nil {
		return nil, fmt.Errorf("query server setup failed: %w", err)
	}
	s.srv = srv

	return s, nil
}

// Start begins listening for connections.
func (s *QueryServer) Start() error {
	log.Info().Str("event", "tcp_started").Str("address", s.address).Msg("query server started")
	return s.srv.Start()
}

// Stop gracefully shuts down the server.
func (s *QueryServer) Stop() error {
	return s.srv.Stop()
}

// incrementCode returns the response code for cmd by incrementing its second character.
func incrementCode(cmd string) string {
	b := []byte(cmd)
	if len(b) < 2 {
		return cmd
	}
	if b[1] == 'Z' {
		b[1] = 'A'
	} else {
		b[1]++
	}

	return string(b)
}

func (s *QueryServer) handle(conn *anetserver.ServerConn, data []byte) ([]byte, error) {
	client := conn.Conn.RemoteAddr().String()
	atomic.AddInt32(&s.activeConns, 1)
	defer atomic.AddInt32(&s.activeConns, -1)

	if len(data) < 2 {
		log.Error().Str("client_ip", client).Msg("malformed request")
		return nil, errors.New("malformed request")
	}

	start := time.Now()
	cmd := string(data[:2])
	active := int(atomic.LoadInt32(&s.activeConns))
	logging.LogQuery(client, cmd, data[2:], active)

	resp := s.answer(cmd, data[2:])
	logging.LogAnswer(client, cmd, string(resp[:2]), len(resp), time.Since(start), active)

	return resp, nil
}

func (s *QueryServer) answer(cmd string, payload []byte) []byte {
	ctx := context.Background()
	code := incrementCode(cmd)

	var result map[string]objinfo.Metadata
	switch cmd {
	case CmdListAll:
		result = s.querier.ListAll(ctx)
	case CmdGetOne:
		result = s.querier.GetOne(ctx, string(payload))
	default:
		log.Warn().
			Str("event", "unknown_command").
			Str("command", cmd).
			Msg("command not recognized, responding with error code")
		return []byte(code + codeDisabled)
	}

	body, err := json.Marshal(result)
	if err != nil {
		log.Error().Str("event", "encode_error").Str("command", cmd).Err(err).Msg("failed to encode response")
		return []byte(code + codeDisabled)
	}

	return append([]byte(code), body...)
}
