package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"chatd/wire"
)

type BaseSuite struct {
	suite.Suite
	Config Config
	client *http.Client
}

// SetupSuite loads the environment configuration before running tests. A
// missing SERVER_ADDR skips the suite so the package stays harmless in CI
// runs without a live server.
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerAddr == "" {
		s.T().Skip("SERVER_ADDR not set, skipping end-to-end tests")
	}
	s.client = &http.Client{Timeout: 10 * time.Second}
}

// Step prints a colorized header so individual steps stand out in the logs.
func (s *BaseSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// DoJSON performs an HTTP call with an optional Bearer token and JSON body,
// decoding the reply into out when non-nil. It returns the status code.
func (s *BaseSuite) DoJSON(method, path, token string, body, out any) int {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		if s.Config.DebugJSON {
			s.T().Logf("%s %s REQUEST:\n%s", method, path, raw)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	request, err := http.NewRequest(method, "http://"+s.Config.ServerAddr+path, reader)
	s.Require().NoError(err)
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := s.client.Do(request)
	s.Require().NoError(err, "Failed to reach server at "+s.Config.ServerAddr)
	defer resp.Body.Close()
	s.T().Logf("HTTP %s %s [%d] in %v", method, path, resp.StatusCode, time.Since(start))

	if out != nil {
		var buf bytes.Buffer
		s.Require().NoError(json.NewDecoder(io.TeeReader(resp.Body, &buf)).Decode(out))
		if s.Config.DebugJSON {
			s.T().Logf("RESPONSE:\n%s", buf.String())
		}
	}
	return resp.StatusCode
}

// DialWS opens a websocket connection against the running server.
func (s *BaseSuite) DialWS() *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+s.Config.ServerAddr+"/ws", nil)
	s.Require().NoError(err, "Failed to open websocket to "+s.Config.ServerAddr)
	return conn
}

// AwaitFrame reads frames until one of the wanted type arrives or the
// deadline passes. Frames of other types are logged and discarded.
func (s *BaseSuite) AwaitFrame(conn *websocket.Conn, want wire.MessageType, timeout time.Duration) wire.Frame {
	deadline := time.Now().Add(timeout)
	s.Require().NoError(conn.SetReadDeadline(deadline))

	for {
		_, raw, err := conn.ReadMessage()
		s.Require().NoError(err, "No %s frame within %v", want, timeout)

		var frame wire.Frame
		s.Require().NoError(json.Unmarshal(raw, &frame))
		if frame.Type == want {
			return frame
		}
		s.T().Logf("Skipping frame %s while waiting for %s", frame.Type, want)
	}
}
