package e2e

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"chatd/wire"
)

type testChatSuite struct {
	BaseSuite
}

func TestChatSuite(t *testing.T) {
	suite.Run(t, &testChatSuite{})
}

type account struct {
	Name        string
	UserID      string
	Token       string
	AccessToken string
}

func (s *testChatSuite) TestFullChatFlow() {
	password := "Str0ng&Secret!pass"
	// Unique names per run so the suite can be replayed against the same server
	suffix := strings.ReplaceAll(uuid.New().String()[:8], "-", "")
	alice := &account{Name: "alice" + suffix}
	bob := &account{Name: "bob" + suffix}
	var channelID string

	// --- STEP 0: REGISTER & LOGIN ---
	s.Run("Step 0: Register and login both users", func() {
		for _, acc := range []*account{alice, bob} {
			s.Step("Registering " + acc.Name)
			var created map[string]string
			code := s.DoJSON(http.MethodPost, "/user/register", "",
				map[string]string{"name": acc.Name, "password": password}, &created)
			s.Require().Equal(http.StatusCreated, code)
			acc.UserID = created["id"]

			s.Step("Logging in " + acc.Name)
			var login struct {
				Token       string `json:"token"`
				AccessToken string `json:"access_token"`
			}
			code = s.DoJSON(http.MethodPost, "/user/login", "",
				map[string]string{"name": acc.Name, "password": password}, &login)
			s.Require().Equal(http.StatusOK, code)
			s.Require().NotEmpty(login.Token, "Login must hand out a websocket session token")
			s.Require().NotEmpty(login.AccessToken, "Login must hand out a REST access token")
			acc.Token = login.Token
			acc.AccessToken = login.AccessToken
		}
	})

	// --- STEP 1: CREATE A CHANNEL ---
	s.Run("Step 1: Create a text channel", func() {
		s.Step("Creating channel as " + alice.Name)
		var channel struct {
			ID string `json:"id"`
		}
		code := s.DoJSON(http.MethodPost, "/textchannel/create", alice.AccessToken,
			map[string]string{"name": "e2e-" + suffix, "description": "scenario channel"}, &channel)
		s.Require().Equal(http.StatusCreated, code)
		channelID = channel.ID
	})

	// --- STEP 2: WEBSOCKET AUTHENTICATION ---
	var bobConn *websocket.Conn
	s.Run("Step 2: Authenticate bob's websocket connection", func() {
		s.Step("Opening websocket for " + bob.Name)
		conn := s.DialWS()
		s.T().Cleanup(func() { _ = conn.Close() })

		err := conn.WriteMessage(websocket.TextMessage, wire.Frame{
			Version: wire.Version,
			Type:    wire.TypeAuth,
			Content: map[string]string{"token": bob.Token},
		}.Encode())
		s.Require().NoError(err)

		welcome := s.AwaitFrame(conn, wire.TypeWelcome, 5*time.Second)
		s.Require().Equal(bob.UserID, welcome.Content["userid"])
		bobConn = conn
	})

	// --- STEP 3: MESSAGE DELIVERY ---
	s.Run("Step 3: Alice posts, bob receives the fan-out", func() {
		s.Step("Sending message as " + alice.Name)
		content := "end to end delivery probe " + suffix
		var sent map[string]string
		code := s.DoJSON(http.MethodPost, "/message/send", alice.AccessToken,
			map[string]any{"channel_id": channelID, "content": content}, &sent)
		s.Require().Equal(http.StatusOK, code)

		frame := s.AwaitFrame(bobConn, wire.TypeMessageSent, 5*time.Second)
		s.Require().Equal(sent["id"], frame.Content["id"])
		s.Require().Equal(content, frame.Content["content"])
		s.Require().Equal(channelID, frame.Content["channel"])
	})

	// --- STEP 4: HISTORY ---
	s.Run("Step 4: History returns the persisted message", func() {
		s.Step("Fetching history as " + bob.Name)
		var history struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		code := s.DoJSON(http.MethodGet, "/message/history?channel="+channelID+"&limit=10",
			bob.AccessToken, nil, &history)
		s.Require().Equal(http.StatusOK, code)
		s.Require().NotEmpty(history.Messages)
		s.Require().Contains(history.Messages[0].Content, "end to end delivery probe")
	})

	// --- STEP 5: PRESENCE ---
	s.Run("Step 5: Bob shows as online over REST", func() {
		s.Step("Reading presence for " + bob.Name)
		var status map[string]string
		code := s.DoJSON(http.MethodGet, "/user/status/"+bob.UserID, alice.AccessToken, nil, &status)
		s.Require().Equal(http.StatusOK, code)
		s.Require().Equal("ONLINE", status["status"])
	})
}
