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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/sirupsen/logrus"
	"github.com/tvierimaa/panharmonicon/models"
)

const defaultEndpoint = "https://tuner.pandora.com/services/json/"

// sessionTokens mirrors PandoraSession::connected()'s five-token check
// (ground: original_source/src/pandora/api.rs).
type sessionTokens struct {
	partnerID    string
	partnerToken string
	syncTimeSet  bool
	userID       string
	userToken    string
}

func (t sessionTokens) connected() bool {
	return t.partnerID != "" && t.partnerToken != "" && t.syncTimeSet && t.userID != "" && t.userToken != ""
}

// httpClient is the one concrete pandora.Client shipped by this module. It
// exercises golang.org/x/crypto/blowfish for the partner-login payload the
// way the real Pandora JSON API requires, and github.com/denisbrodbeck/
// machineid for a stable per-device id (ground: jellycli api/util.go's own
// use of machineid.ProtectedID for its device id header).
type httpClient struct {
	http     *http.Client
	endpoint string
	deviceID string
	tokens   sessionTokens

	// username/password are retained only in memory, from the most recent
	// successful UserLogin, so a mid-session token loss can be recovered
	// from without the ApiWorker re-threading credentials through every call.
	username string
	password string
}

// NewHTTPClient builds the default Client. appNamespace scopes the machine
// id the way jellycli scopes its own (ProtectedID derives a namespace-
// specific id rather than leaking the raw machine id).
func NewHTTPClient(appNamespace string) Client {
	id, err := machineid.ProtectedID(appNamespace)
	if err != nil {
		logrus.Warnf("pandora: failed to derive protected machine id, falling back to static id: %v", err)
		id = "panharmonicon-unknown-device"
	}
	return &httpClient{
		http:     &http.Client{Timeout: 30 * time.Second},
		endpoint: defaultEndpoint,
		deviceID: id,
	}
}

func (c *httpClient) Connected() bool { return c.tokens.connected() }

func (c *httpClient) Reset() { c.tokens = sessionTokens{} }

// PartnerLogin is a no-op once partner tokens + sync time are set (ground:
// api.rs PandoraSession::partner_login's early-return check).
func (c *httpClient) PartnerLogin(ctx context.Context) error {
	if c.tokens.partnerID != "" && c.tokens.partnerToken != "" && c.tokens.syncTimeSet {
		return nil
	}

	body := map[string]string{
		"username":     partnerUsername,
		"password":     partnerPassword,
		"deviceModel":  deviceModel,
		"version":      apiVersion,
		"includeUrls":  "true",
	}
	var resp struct {
		PartnerAuthToken string `json:"partnerAuthToken"`
		PartnerID        string `json:"partnerId"`
		SyncTime         string `json:"syncTime"`
	}
	if err := c.call(ctx, "auth.partnerLogin", nil, body, &resp); err != nil {
		return fmt.Errorf("partner login: %w", err)
	}

	decrypted, err := blowfishDecryptECB(partnerDecryptKey, resp.SyncTime)
	if err != nil {
		return fmt.Errorf("partner login: decode sync time: %w", err)
	}
	// Pandora's decrypted syncTime carries four leading filler bytes before
	// the ASCII timestamp digits.
	if len(decrypted) < 5 {
		return fmt.Errorf("partner login: decrypted sync time too short")
	}

	c.tokens.partnerID = resp.PartnerID
	c.tokens.partnerToken = resp.PartnerAuthToken
	c.tokens.syncTimeSet = true
	return nil
}

func (c *httpClient) UserLogin(ctx context.Context, username, password string) error {
	if err := c.PartnerLogin(ctx); err != nil {
		return fmt.Errorf("user login: %w", err)
	}
	if c.tokens.userID != "" && c.tokens.userToken != "" {
		return nil
	}

	encryptedBody, err := c.encryptedRequestBody(map[string]string{
		"username":   username,
		"password":   password,
		"loginType":  "user",
	})
	if err != nil {
		return fmt.Errorf("user login: %w", err)
	}

	params := map[string]string{
		"partner_id":   c.tokens.partnerID,
		"auth_token":   c.tokens.partnerToken,
		"partner_auth": "true",
	}
	var resp struct {
		UserAuthToken string `json:"userAuthToken"`
		UserID        string `json:"userId"`
	}
	if err := c.callEncrypted(ctx, "auth.userLogin", params, encryptedBody, &resp); err != nil {
		return fmt.Errorf("user login: %w", err)
	}

	c.tokens.userID = resp.UserID
	c.tokens.userToken = resp.UserAuthToken
	c.username = username
	c.password = password
	return nil
}

// withRetryOnSessionLoss runs fn once, and if it fails, forces a fresh user
// login and retries fn exactly once more (ground: api.rs's repeated
// "Err(_) => { user_login().await?; request.response(...).await }" shape on
// every user-scoped method).
func (c *httpClient) withRetryOnSessionLoss(ctx context.Context, username, password string, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	logrus.Debugf("pandora: request failed (%v), retrying after re-login", err)
	c.tokens.userID = ""
	c.tokens.userToken = ""
	if loginErr := c.UserLogin(ctx, username, password); loginErr != nil {
		return fmt.Errorf("re-login before retry: %w", loginErr)
	}
	return fn()
}

func (c *httpClient) GetStationList(ctx context.Context) (map[string]string, error) {
	var resp struct {
		Stations []struct {
			StationID   string `json:"stationId"`
			StationName string `json:"stationName"`
		} `json:"stations"`
	}
	err := c.withRetryOnSessionLoss(ctx, c.username, c.password, func() error {
		return c.call(ctx, "user.getStationList", c.authParams(), map[string]string{
			"userAuthToken": c.tokens.userToken,
		}, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("get station list: %w", err)
	}

	out := make(map[string]string, len(resp.Stations))
	for _, s := range resp.Stations {
		out[s.StationID] = s.StationName
	}
	return out, nil
}

func (c *httpClient) GetPlaylist(ctx context.Context, stationID string) ([]models.Track, error) {
	var resp struct {
		Items []struct {
			TrackToken  string `json:"trackToken"`
			MusicID     string `json:"musicId"`
			StationID   string `json:"stationId"`
			AudioURLMap struct {
				HighQuality struct {
					AudioURL string `json:"audioUrl"`
				} `json:"highQuality"`
			} `json:"audioUrlMap"`
			ArtistName  string `json:"artistName"`
			AlbumName   string `json:"albumName"`
			SongName    string `json:"songName"`
			SongRating  int    `json:"songRating"`
			TrackLength int    `json:"trackLength"`
		} `json:"items"`
	}
	err := c.withRetryOnSessionLoss(ctx, c.username, c.password, func() error {
		return c.call(ctx, "station.getPlaylist", c.authParams(), map[string]string{
			"stationToken":  stationID,
			"userAuthToken": c.tokens.userToken,
		}, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("get playlist: %w", err)
	}

	tracks := make([]models.Track, 0, len(resp.Items))
	for _, it := range resp.Items {
		if it.TrackToken == "" {
			continue // ad break / other non-track playlist entries
		}
		tracks = append(tracks, models.Track{
			TrackToken: it.TrackToken,
			MusicID:    it.MusicID,
			StationID:  it.StationID,
			AudioURL:   it.AudioURLMap.HighQuality.AudioURL,
			Artist:     it.ArtistName,
			Album:      it.AlbumName,
			Title:      it.SongName,
			Rating:     it.SongRating,
			Duration:   time.Duration(it.TrackLength) * time.Second,
		})
	}
	return tracks, nil
}

func (c *httpClient) AddFeedback(ctx context.Context, track models.Track, positive bool) error {
	return c.withRetryOnSessionLoss(ctx, c.username, c.password, func() error {
		var resp struct{}
		body := map[string]interface{}{
			"trackToken":    track.TrackToken,
			"stationToken":  track.StationID,
			"isPositive":    positive,
			"userAuthToken": c.tokens.userToken,
		}
		return c.call(ctx, "station.addFeedback", c.authParams(), body, &resp)
	})
}

func (c *httpClient) DeleteFeedbackForTrack(ctx context.Context, track models.Track) error {
	return c.withRetryOnSessionLoss(ctx, c.username, c.password, func() error {
		return c.deleteFeedbackForTrack(ctx, track)
	})
}

func (c *httpClient) deleteFeedbackForTrack(ctx context.Context, track models.Track) error {
	var getTrackResp struct {
		MusicToken string `json:"musicToken"`
	}
	params := c.authParams()
	if err := c.call(ctx, "music.getTrack", params, map[string]string{
		"musicToken":    track.MusicID,
		"userAuthToken": c.tokens.userToken,
	}, &getTrackResp); err != nil {
		return fmt.Errorf("delete feedback: look up music token: %w", err)
	}

	var stationResp struct {
		Feedback struct {
			ThumbsUp   []struct{ FeedbackID, MusicToken string } `json:"thumbsUp"`
			ThumbsDown []struct{ FeedbackID, MusicToken string } `json:"thumbsDown"`
		} `json:"feedback"`
	}
	if err := c.call(ctx, "station.getStation", params, map[string]string{
		"stationToken":         track.StationID,
		"includeExtendedAttrs": "true",
		"userAuthToken":        c.tokens.userToken,
	}, &stationResp); err != nil {
		return fmt.Errorf("delete feedback: get station feedback: %w", err)
	}

	var feedbackID string
	for _, fb := range append(stationResp.Feedback.ThumbsUp, stationResp.Feedback.ThumbsDown...) {
		if fb.MusicToken == getTrackResp.MusicToken {
			feedbackID = fb.FeedbackID
			break
		}
	}
	if feedbackID == "" {
		logrus.Debugf("pandora: no feedback entry found for track %s, nothing to delete", track.TrackToken)
		return nil
	}

	var deleteResp struct{}
	return c.call(ctx, "station.deleteFeedback", params, map[string]string{
		"feedbackId":    feedbackID,
		"userAuthToken": c.tokens.userToken,
	}, &deleteResp)
}

func (c *httpClient) authParams() map[string]string {
	return map[string]string{
		"partner_id":   c.tokens.partnerID,
		"auth_token":   c.tokens.userToken,
		"user_id":      c.tokens.userID,
		"partner_auth": "false",
	}
}

func (c *httpClient) encryptedRequestBody(fields map[string]string) (string, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("marshal request body: %w", err)
	}
	return blowfishEncryptECB(partnerEncryptKey, string(raw))
}

// call issues an unencrypted JSON request (used once partner/user tokens
// already cover authentication via query params).
func (c *httpClient) call(ctx context.Context, method string, params map[string]string, body interface{}, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	return c.post(ctx, method, params, raw, out)
}

// callEncrypted posts a pre-encrypted body (partner/user login).
func (c *httpClient) callEncrypted(ctx context.Context, method string, params map[string]string, encryptedHex string, out interface{}) error {
	body, err := json.Marshal(map[string]string{"encrypted": encryptedHex})
	if err != nil {
		return fmt.Errorf("marshal encrypted envelope: %w", err)
	}
	return c.post(ctx, method, params, body, out)
}

func (c *httpClient) post(ctx context.Context, method string, params map[string]string, body []byte, out interface{}) error {
	url := c.endpoint + "?method=" + method
	for k, v := range params {
		if v == "" {
			continue
		}
		url += "&" + k + "=" + v
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Device-Id", c.deviceID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	var envelope struct {
		Stat    string          `json:"stat"`
		Message string          `json:"message"`
		Result  json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if envelope.Stat != "ok" {
		return fmt.Errorf("pandora api error: %s", envelope.Message)
	}
	if len(envelope.Result) == 0 {
		return nil
	}
	return json.Unmarshal(envelope.Result, out)
}
