/*
 * Copyright 2020 Tero Vierimaa
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package pandora

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tvierimaa/panharmonicon/messages"
	"github.com/tvierimaa/panharmonicon/models"
)

func TestBlowfishECB_RoundTrip(t *testing.T) {
	cases := []string{
		"",
		"a",
		"hello world",
		`{"username":"tero","password":"s3cr3t","loginType":"user"}`,
	}
	for _, plaintext := range cases {
		cipherHex, err := blowfishEncryptECB(partnerEncryptKey, plaintext)
		require.NoError(t, err)

		decoded, err := blowfishDecryptECB(partnerEncryptKey, cipherHex)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decoded)
	}
}

func TestBlowfishDecryptECB_RejectsBadLength(t *testing.T) {
	_, err := blowfishDecryptECB(partnerDecryptKey, "abcd")
	assert.Error(t, err)
}

func TestPkcs7PadUnpad_RoundTrip(t *testing.T) {
	for n := 0; n < 20; n++ {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i)
		}
		padded := pkcs7Pad(data, 8)
		assert.Equal(t, 0, len(padded)%8)
		assert.Equal(t, data, pkcs7Unpad(padded))
	}
}

// fakeClient is a scriptable mock pandora.Client for exercising ApiWorker's
// dispatch logic without any network traffic.
type fakeClient struct {
	connected bool

	partnerLoginErr error
	userLoginErr    error

	stations    map[string]string
	stationsErr error

	tracks     []models.Track
	tracksErr  error

	feedbackErr error

	lastAddFeedbackPositive *bool
	lastDeleteFeedbackTrack *models.Track
}

func (f *fakeClient) PartnerLogin(ctx context.Context) error {
	if f.partnerLoginErr != nil {
		return f.partnerLoginErr
	}
	return nil
}

func (f *fakeClient) UserLogin(ctx context.Context, username, password string) error {
	if f.userLoginErr != nil {
		return f.userLoginErr
	}
	f.connected = true
	return nil
}

func (f *fakeClient) Connected() bool { return f.connected }
func (f *fakeClient) Reset()          { f.connected = false }

func (f *fakeClient) GetStationList(ctx context.Context) (map[string]string, error) {
	return f.stations, f.stationsErr
}

func (f *fakeClient) GetPlaylist(ctx context.Context, stationID string) ([]models.Track, error) {
	return f.tracks, f.tracksErr
}

func (f *fakeClient) AddFeedback(ctx context.Context, track models.Track, positive bool) error {
	f.lastAddFeedbackPositive = &positive
	return f.feedbackErr
}

func (f *fakeClient) DeleteFeedbackForTrack(ctx context.Context, track models.Track) error {
	f.lastDeleteFeedbackTrack = &track
	return f.feedbackErr
}

type fakeCredentials struct {
	creds models.Credentials
}

func (f fakeCredentials) Credentials() models.Credentials { return f.creds }

func startWorker(t *testing.T, client Client, creds models.Credentials) *ApiWorker {
	t.Helper()
	w := NewApiWorker(client, fakeCredentials{creds: creds})
	require.NoError(t, w.Start())
	t.Cleanup(func() {
		if w.IsRunning() {
			_ = w.Stop()
		}
	})
	return w
}

func recvResult(t *testing.T, w *ApiWorker) messages.ApiResult {
	t.Helper()
	select {
	case r := <-w.Results():
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ApiResult")
		return messages.ApiResult{}
	}
}

func TestApiWorker_ConnectSuccess(t *testing.T) {
	client := &fakeClient{}
	creds := models.NewConfigFileCredentials("tero", "hunter2")
	w := startWorker(t, client, creds)

	w.Commands() <- messages.ApiConnect()
	res := recvResult(t, w)
	assert.Equal(t, messages.ApiResConnected, res.Kind)
	assert.True(t, client.Connected())
}

func TestApiWorker_ConnectAlreadyConnectedShortCircuits(t *testing.T) {
	client := &fakeClient{connected: true}
	creds := models.NewConfigFileCredentials("tero", "hunter2")
	w := startWorker(t, client, creds)

	w.Commands() <- messages.ApiConnect()
	res := recvResult(t, w)
	assert.Equal(t, messages.ApiResConnected, res.Kind)
}

func TestApiWorker_ConnectNoCredentials(t *testing.T) {
	client := &fakeClient{}
	creds := models.NewInvalidCredentials("tero")
	w := startWorker(t, client, creds)

	w.Commands() <- messages.ApiConnect()
	res := recvResult(t, w)
	assert.Equal(t, messages.ApiResAuthFailed, res.Kind)
}

func TestApiWorker_ConnectPartnerLoginFails(t *testing.T) {
	client := &fakeClient{partnerLoginErr: errors.New("network down")}
	creds := models.NewConfigFileCredentials("tero", "hunter2")
	w := startWorker(t, client, creds)

	w.Commands() <- messages.ApiConnect()
	res := recvResult(t, w)
	assert.Equal(t, messages.ApiResAuthFailed, res.Kind)
	assert.Contains(t, res.Message, "network down")
}

func TestApiWorker_ConnectUserLoginFails(t *testing.T) {
	client := &fakeClient{userLoginErr: errors.New("bad password")}
	creds := models.NewConfigFileCredentials("tero", "hunter2")
	w := startWorker(t, client, creds)

	w.Commands() <- messages.ApiConnect()
	res := recvResult(t, w)
	assert.Equal(t, messages.ApiResAuthFailed, res.Kind)
	assert.False(t, client.Connected())
}

func TestApiWorker_GetStationListWhileDisconnected(t *testing.T) {
	client := &fakeClient{}
	creds := models.NewConfigFileCredentials("tero", "hunter2")
	w := startWorker(t, client, creds)

	w.Commands() <- messages.ApiGetStationList()
	res := recvResult(t, w)
	assert.Equal(t, messages.ApiResError, res.Kind)
}

func TestApiWorker_GetStationListSuccess(t *testing.T) {
	client := &fakeClient{connected: true, stations: map[string]string{"s1": "Jazz"}}
	creds := models.NewConfigFileCredentials("tero", "hunter2")
	w := startWorker(t, client, creds)

	w.Commands() <- messages.ApiGetStationList()
	res := recvResult(t, w)
	require.Equal(t, messages.ApiResStationList, res.Kind)
	assert.Equal(t, "Jazz", res.Stations["s1"])
}

func TestApiWorker_GetPlaylistPropagatesError(t *testing.T) {
	client := &fakeClient{connected: true, tracksErr: errors.New("station expired")}
	creds := models.NewConfigFileCredentials("tero", "hunter2")
	w := startWorker(t, client, creds)

	w.Commands() <- messages.ApiGetPlaylist("s1")
	res := recvResult(t, w)
	assert.Equal(t, messages.ApiResError, res.Kind)
	assert.Contains(t, res.Message, "station expired")
}

func TestApiWorker_RateTrackUpDownClear(t *testing.T) {
	track := models.Track{TrackToken: "tok1"}

	t.Run("up", func(t *testing.T) {
		client := &fakeClient{connected: true}
		w := startWorker(t, client, models.NewConfigFileCredentials("tero", "hunter2"))
		w.Commands() <- messages.ApiRateTrack(track, messages.RatingUp)
		res := recvResult(t, w)
		require.Equal(t, messages.ApiResRated, res.Kind)
		assert.Equal(t, 1, res.Rating)
		require.NotNil(t, client.lastAddFeedbackPositive)
		assert.True(t, *client.lastAddFeedbackPositive)
	})

	t.Run("down", func(t *testing.T) {
		client := &fakeClient{connected: true}
		w := startWorker(t, client, models.NewConfigFileCredentials("tero", "hunter2"))
		w.Commands() <- messages.ApiRateTrack(track, messages.RatingDown)
		res := recvResult(t, w)
		require.Equal(t, messages.ApiResRated, res.Kind)
		assert.Equal(t, 0, res.Rating)
		require.NotNil(t, client.lastAddFeedbackPositive)
		assert.False(t, *client.lastAddFeedbackPositive)
	})

	t.Run("clear", func(t *testing.T) {
		client := &fakeClient{connected: true}
		w := startWorker(t, client, models.NewConfigFileCredentials("tero", "hunter2"))
		w.Commands() <- messages.ApiRateTrack(track, messages.RatingClear)
		res := recvResult(t, w)
		require.Equal(t, messages.ApiResRated, res.Kind)
		require.NotNil(t, client.lastDeleteFeedbackTrack)
		assert.Equal(t, "tok1", client.lastDeleteFeedbackTrack.TrackToken)
	})
}

func TestApiWorker_Disconnect(t *testing.T) {
	client := &fakeClient{connected: true}
	w := startWorker(t, client, models.NewConfigFileCredentials("tero", "hunter2"))

	w.Commands() <- messages.ApiDisconnect()
	res := recvResult(t, w)
	assert.Equal(t, messages.ApiResDisconnected, res.Kind)
	assert.False(t, client.Connected())
}

func TestApiWorker_QuitStopsLoop(t *testing.T) {
	client := &fakeClient{connected: true}
	w := NewApiWorker(client, fakeCredentials{creds: models.NewConfigFileCredentials("tero", "hunter2")})
	require.NoError(t, w.Start())

	w.Commands() <- messages.ApiQuit()
	res := recvResult(t, w)
	assert.Equal(t, messages.ApiResQuitAck, res.Kind)

	// loop() returns after Quit, so the task.Task marks itself not running
	// without needing an explicit Stop().
	require.Eventually(t, func() bool { return !w.IsRunning() }, time.Second, 10*time.Millisecond)
}
