package e2e

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

type BaseWsSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseWsSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerAddr == "" {
		s.T().Skip("E2E_SERVER_ADDR not set")
	}
}

func (s *BaseWsSuite) step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Connect joins the channel as label and consumes the welcome.
func (s *BaseWsSuite) Connect(label string) *websocket.Conn {
	s.step("connect " + label)
	endpoint := url.URL{Scheme: "ws", Host: s.Config.ServerAddr, Path: "/ws/" + label}
	conn, _, err := websocket.DefaultDialer.Dial(endpoint.String(), nil)
	s.Require().NoError(err, "Failed to connect to "+endpoint.String())
	s.Require().Equal("system", s.Read(conn)["user"])
	return conn
}

func (s *BaseWsSuite) Send(conn *websocket.Conn, text string) {
	payload, err := json.Marshal(map[string]string{"text": text})
	s.Require().NoError(err)
	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, payload))
}

func (s *BaseWsSuite) Read(conn *websocket.Conn) map[string]string {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	_, data, err := conn.ReadMessage()
	s.Require().NoError(err)
	var frame map[string]string
	s.Require().NoError(json.Unmarshal(data, &frame))
	s.T().Logf("received %s", string(data))
	return frame
}
