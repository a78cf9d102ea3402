package api

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chatd/domain"
	"chatd/errors"
	"chatd/repositories"
)

func TestServer_Message_Send(t *testing.T) {
	req := require.New(t)
	f := newServerFixture(t)
	userID := uuid.New()
	channel := uuid.New()

	f.channelStore.EXPECT().Exists(channel).Return(true, nil)

	var stored domain.ChatMessage
	f.messageStore.EXPECT().Store(gomock.Any()).DoAndReturn(func(msg domain.ChatMessage) error {
		stored = msg
		return nil
	})

	rec := f.do(t, http.MethodPost, "/message/send", f.bearerFor(t, userID),
		messageSendRequest{ChannelID: channel, Content: "hello there"})

	req.Equal(http.StatusOK, rec.Code)
	body := decodeResponse[map[string]uuid.UUID](t, rec)
	req.Equal(stored.ID, body["id"])
	req.Equal(userID, stored.Author)
	req.Equal("hello there", stored.Content)
}

func TestServer_Message_Send_Unknown_Channel(t *testing.T) {
	req := require.New(t)
	f := newServerFixture(t)
	channel := uuid.New()

	f.channelStore.EXPECT().Exists(channel).Return(false, nil)

	rec := f.do(t, http.MethodPost, "/message/send", f.bearerFor(t, uuid.New()),
		messageSendRequest{ChannelID: channel, Content: "hello"})

	req.Equal(http.StatusNotFound, rec.Code)
}

func TestServer_Message_Send_Empty_Content(t *testing.T) {
	req := require.New(t)
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/message/send", f.bearerFor(t, uuid.New()),
		messageSendRequest{ChannelID: uuid.New(), Content: ""})

	req.Equal(http.StatusBadRequest, rec.Code)
}

func TestServer_Message_History(t *testing.T) {
	req := require.New(t)
	f := newServerFixture(t)
	channel := uuid.New()
	next := "0001234:abc"

	f.messages.EXPECT().History(channel, nil, 2).Return([]domain.ChatMessage{
		{ID: uuid.New(), Channel: channel, Content: "second", CreatedAt: time.Now().UTC()},
		{ID: uuid.New(), Channel: channel, Content: "first", CreatedAt: time.Now().UTC()},
	}, &next, nil)

	rec := f.do(t, http.MethodGet,
		"/message/history?channel="+channel.String()+"&limit=2",
		f.bearerFor(t, uuid.New()), nil)

	req.Equal(http.StatusOK, rec.Code)
	body := decodeResponse[struct {
		Messages []messageResponse `json:"messages"`
		Cursor   *string           `json:"cursor"`
	}](t, rec)
	req.Len(body.Messages, 2)
	req.Equal("second", body.Messages[0].Content)
	req.NotNil(body.Cursor)
	req.Equal(next, *body.Cursor)
}

func TestServer_Message_History_Invalid_Channel(t *testing.T) {
	req := require.New(t)
	f := newServerFixture(t)

	rec := f.do(t, http.MethodGet, "/message/history?channel=not-a-uuid",
		f.bearerFor(t, uuid.New()), nil)

	req.Equal(http.StatusBadRequest, rec.Code)
}

func TestServer_Message_Search(t *testing.T) {
	req := require.New(t)
	f := newServerFixture(t)
	channel := uuid.New()
	hit := repositories.SearchHit{
		ID:      uuid.New(),
		Channel: channel,
		Author:  uuid.New(),
		Content: "release is shipping tonight",
		At:      time.Now().UTC(),
	}

	f.search.EXPECT().SearchPaginated(gomock.Any(), "release", channel, 0).
		Return([]repositories.SearchHit{hit}, uint64(1), nil)

	rec := f.do(t, http.MethodGet,
		"/message/search?q=release&channel="+channel.String(),
		f.bearerFor(t, uuid.New()), nil)

	req.Equal(http.StatusOK, rec.Code)
	body := decodeResponse[struct {
		Total uint64            `json:"total"`
		Hits  []messageResponse `json:"hits"`
	}](t, rec)
	req.Equal(uint64(1), body.Total)
	req.Len(body.Hits, 1)
	req.Equal(hit.ID, body.Hits[0].ID)
}

func TestServer_Message_Search_Missing_Query(t *testing.T) {
	req := require.New(t)
	f := newServerFixture(t)

	rec := f.do(t, http.MethodGet, "/message/search?channel="+uuid.New().String(),
		f.bearerFor(t, uuid.New()), nil)

	req.Equal(http.StatusBadRequest, rec.Code)
}

func TestServer_Message_Search_Backend_Failure(t *testing.T) {
	req := require.New(t)
	f := newServerFixture(t)
	channel := uuid.New()

	f.search.EXPECT().SearchPaginated(gomock.Any(), "boom", channel, 0).
		Return(nil, uint64(0), fmt.Errorf("%w: index unavailable", errors.ErrInternal))

	rec := f.do(t, http.MethodGet,
		"/message/search?q=boom&channel="+channel.String(),
		f.bearerFor(t, uuid.New()), nil)

	req.Equal(http.StatusInternalServerError, rec.Code)
}
